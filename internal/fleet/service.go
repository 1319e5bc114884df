package fleet

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtauto/dtauto/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*Vehicle, error)
	GetVehicleByVIN(ctx context.Context, vin string) (*Vehicle, error)
	InsertVehicle(ctx context.Context, v Vehicle) (*Vehicle, error)
	UpdateVehicle(ctx context.Context, v Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
}

// DistributionHook runs after a vehicle's sale is durably recorded. The
// ledger service implements it to generate the profit distribution.
type DistributionHook interface {
	HandleVehicleSold(ctx context.Context, vehicleID int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates vehicle inventory operations.
type Service struct {
	repo         RepositoryPort
	distribution DistributionHook
	audit        AuditPort
	logger       *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, distribution DistributionHook, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, distribution: distribution, audit: audit, logger: logger}
}

// CreateInput describes a newly acquired vehicle.
type CreateInput struct {
	Year          int
	Make          string
	Model         string
	VIN           string
	PurchasePrice float64
	TargetPrice   *float64
	MinimumPrice  *float64
	ShipmentID    *int64
}

// UpdateInput edits descriptive attributes; lifecycle moves go through
// UpdateStatus and MarkSold.
type UpdateInput struct {
	Year          int
	Make          string
	Model         string
	PurchasePrice float64
	TargetPrice   *float64
	MinimumPrice  *float64
	ShipmentID    *int64
}

// SaleInput completes a sale.
type SaleInput struct {
	SalePrice    float64
	SaleDate     time.Time
	BuyerName    string
	BuyerContact string
}

// List returns all vehicles.
func (s *Service) List(ctx context.Context) ([]Vehicle, error) {
	return s.repo.ListVehicles(ctx)
}

// Get fetches one vehicle.
func (s *Service) Get(ctx context.Context, id int64) (*Vehicle, error) {
	v, err := s.repo.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.ErrNotFound
	}
	return v, nil
}

// Create registers a newly acquired vehicle.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Vehicle, error) {
	existing, err := s.repo.GetVehicleByVIN(ctx, input.VIN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrVINExists
	}
	created, err := s.repo.InsertVehicle(ctx, Vehicle{
		Year:          input.Year,
		Make:          input.Make,
		Model:         input.Model,
		VIN:           input.VIN,
		PurchasePrice: input.PurchasePrice,
		TargetPrice:   input.TargetPrice,
		MinimumPrice:  input.MinimumPrice,
		ShipmentID:    input.ShipmentID,
		Status:        StatusAcquired,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "vehicle.create", created.ID, map[string]any{"vin": created.VIN})
	return created, nil
}

// Update edits descriptive attributes. Allowed on sold vehicles too; the
// sale state itself never changes here.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Year = input.Year
	v.Make = input.Make
	v.Model = input.Model
	v.PurchasePrice = input.PurchasePrice
	v.TargetPrice = input.TargetPrice
	v.MinimumPrice = input.MinimumPrice
	v.ShipmentID = input.ShipmentID
	if err := s.repo.UpdateVehicle(ctx, *v); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "vehicle.update", id, nil)
	return v, nil
}

// UpdateStatus moves the vehicle along the lifecycle. The sold state is
// reachable only through MarkSold and never left.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to Status) (*Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status == StatusSold {
		return nil, ErrAlreadySold
	}
	if to == StatusSold || !transitionAllowed(v.Status, to) {
		return nil, ErrInvalidTransition
	}
	from := v.Status
	v.Status = to
	if err := s.repo.UpdateVehicle(ctx, *v); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "vehicle.status", id, map[string]any{"from": from, "to": to})
	return v, nil
}

// MarkSold performs the guarded terminal transition and then generates the
// profit distribution. The status update is persisted before the hook runs
// so the distribution references durable point-in-time state.
func (s *Service) MarkSold(ctx context.Context, id int64, input SaleInput) (*Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status == StatusSold {
		return nil, ErrAlreadySold
	}
	if input.SalePrice <= 0 {
		return nil, ErrInvalidSalePrice
	}
	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}
	v.Status = StatusSold
	v.SalePrice = &input.SalePrice
	v.SaleDate = &saleDate
	v.BuyerName = input.BuyerName
	v.BuyerContact = input.BuyerContact
	if err := s.repo.UpdateVehicle(ctx, *v); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "vehicle.sold", id, map[string]any{"sale_price": input.SalePrice})

	if s.distribution != nil {
		if err := s.distribution.HandleVehicleSold(ctx, id); err != nil {
			// The sale itself is durable; surface the distribution failure.
			return nil, err
		}
	}
	return v, nil
}

// Delete removes an unsold vehicle.
func (s *Service) Delete(ctx context.Context, id int64) error {
	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Status == StatusSold {
		return ErrSoldImmutable
	}
	if err := s.repo.DeleteVehicle(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "vehicle.delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "vehicle",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
