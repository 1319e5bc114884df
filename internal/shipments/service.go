package shipments

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtauto/dtauto/internal/costs"
	"github.com/dtauto/dtauto/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListShipments(ctx context.Context) ([]Shipment, error)
	GetShipment(ctx context.Context, id int64) (*Shipment, error)
	InsertShipment(ctx context.Context, s Shipment) (*Shipment, error)
	UpdateShipment(ctx context.Context, s Shipment) error
}

// CostMirror is the slice of the cost service the shipment lifecycle needs:
// keeping auto_shipment entries in step with the aggregate fields, and
// freezing the ledger at customs clearance.
type CostMirror interface {
	SyncShipmentCosts(ctx context.Context, mirror costs.ShipmentCosts) error
	LockShipment(ctx context.Context, shipmentID int64) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the shipment lifecycle.
type Service struct {
	repo   RepositoryPort
	mirror CostMirror
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, mirror CostMirror, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, mirror: mirror, audit: audit, logger: logger}
}

// Input carries every writable shipment attribute except the status.
type Input struct {
	Reference           string
	Origin              string
	Destination         string
	Carrier             string
	DepartureDate       *time.Time
	ArrivalDate         *time.Time
	GroundTransportCost float64
	CustomsBrokerFees   float64
	OceanFreightCost    float64
	ImportFeesCost      float64
	BillOfLadingURL     string
	CustomsDocsURL      string
}

// List returns all shipments.
func (s *Service) List(ctx context.Context) ([]Shipment, error) {
	return s.repo.ListShipments(ctx)
}

// Get fetches one shipment.
func (s *Service) Get(ctx context.Context, id int64) (*Shipment, error) {
	sh, err := s.repo.GetShipment(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, shared.ErrNotFound
	}
	return sh, nil
}

// Create registers a planned shipment and mirrors its aggregate cost fields
// into the cost ledger.
func (s *Service) Create(ctx context.Context, input Input) (*Shipment, error) {
	created, err := s.repo.InsertShipment(ctx, Shipment{
		Reference:           input.Reference,
		Origin:              input.Origin,
		Destination:         input.Destination,
		Carrier:             input.Carrier,
		Status:              StatusPlanned,
		DepartureDate:       input.DepartureDate,
		ArrivalDate:         input.ArrivalDate,
		GroundTransportCost: input.GroundTransportCost,
		CustomsBrokerFees:   input.CustomsBrokerFees,
		OceanFreightCost:    input.OceanFreightCost,
		ImportFeesCost:      input.ImportFeesCost,
		BillOfLadingURL:     input.BillOfLadingURL,
		CustomsDocsURL:      input.CustomsDocsURL,
	})
	if err != nil {
		return nil, err
	}
	if err := s.syncMirror(ctx, created); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "shipment.create", created.ID, map[string]any{"reference": created.Reference})
	return created, nil
}

// Update edits shipment attributes and re-syncs the cost mirror. Once the
// shipment is cleared the aggregate cost fields are frozen with the rest of
// its ledger scope.
func (s *Service) Update(ctx context.Context, id int64, input Input) (*Shipment, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.Cleared() && costFieldsChanged(*sh, input) {
		return nil, &costs.LockedError{ShipmentID: sh.ID}
	}
	sh.Reference = input.Reference
	sh.Origin = input.Origin
	sh.Destination = input.Destination
	sh.Carrier = input.Carrier
	sh.DepartureDate = input.DepartureDate
	sh.ArrivalDate = input.ArrivalDate
	sh.GroundTransportCost = input.GroundTransportCost
	sh.CustomsBrokerFees = input.CustomsBrokerFees
	sh.OceanFreightCost = input.OceanFreightCost
	sh.ImportFeesCost = input.ImportFeesCost
	sh.BillOfLadingURL = input.BillOfLadingURL
	sh.CustomsDocsURL = input.CustomsDocsURL
	// Mirror first: allocation reads the ledger entries, so a failed sync
	// must leave the stored aggregates untouched.
	if !sh.Cleared() {
		if err := s.syncMirror(ctx, sh); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateShipment(ctx, *sh); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "shipment.update", id, nil)
	return sh, nil
}

// UpdateStatus advances the shipment along the chain. Entering
// customs_cleared goes through ClearCustoms; everything else only needs to
// move forward.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to Status) (*Shipment, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == StatusCustomsCleared {
		return nil, ErrClearanceRequired
	}
	if !transitionAllowed(sh.Status, to) {
		return nil, ErrInvalidTransition
	}
	from := sh.Status
	sh.Status = to
	if err := s.repo.UpdateShipment(ctx, *sh); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "shipment.status", id, map[string]any{"from": from, "to": to})
	return sh, nil
}

// ClearCustoms marks the shipment customs_cleared and locks every cost in
// its scope. The status change is persisted before the batch lock so a
// retried lock finds the shipment already cleared.
func (s *Service) ClearCustoms(ctx context.Context, id int64) (*Shipment, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.Cleared() {
		return nil, ErrAlreadyCleared
	}
	sh.Status = StatusCustomsCleared
	if err := s.repo.UpdateShipment(ctx, *sh); err != nil {
		return nil, err
	}
	locked, err := s.mirror.LockShipment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "shipment.clear_customs", id, map[string]any{"locked_entries": locked})
	if s.logger != nil {
		s.logger.Info("shipment cleared customs",
			slog.Int64("shipment_id", id),
			slog.Int64("locked_entries", locked))
	}
	return sh, nil
}

func (s *Service) syncMirror(ctx context.Context, sh *Shipment) error {
	return s.mirror.SyncShipmentCosts(ctx, costs.ShipmentCosts{
		ShipmentID:      sh.ID,
		GroundTransport: sh.GroundTransportCost,
		CustomsBroker:   sh.CustomsBrokerFees,
		OceanFreight:    sh.OceanFreightCost,
		ImportFees:      sh.ImportFeesCost,
	})
}

func costFieldsChanged(sh Shipment, input Input) bool {
	return sh.GroundTransportCost != input.GroundTransportCost ||
		sh.CustomsBrokerFees != input.CustomsBrokerFees ||
		sh.OceanFreightCost != input.OceanFreightCost ||
		sh.ImportFeesCost != input.ImportFeesCost
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "shipment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
