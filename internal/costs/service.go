package costs

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtauto/dtauto/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListCosts(ctx context.Context, filter Filter) ([]Cost, error)
	GetCost(ctx context.Context, id int64) (*Cost, error)
	InsertCost(ctx context.Context, cost Cost) (*Cost, error)
	UpdateCost(ctx context.Context, cost Cost) error
	DeleteCost(ctx context.Context, id int64) error
	UpsertAutoCost(ctx context.Context, shipmentID int64, category string, amount float64) error
	DeleteAutoCost(ctx context.Context, shipmentID int64, category string) error
	LockShipmentScope(ctx context.Context, shipmentID int64) (int64, error)
	ShipmentCleared(ctx context.Context, shipmentID int64) (bool, error)
	VehicleShipment(ctx context.Context, vehicleID int64) (*int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the cost ledger.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateInput describes a manual ledger entry.
type CreateInput struct {
	Category   string
	Amount     float64
	IncurredAt time.Time
	VehicleID  *int64
	ShipmentID *int64
	ReceiptURL string
	Note       string
}

// List returns ledger entries matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Cost, error) {
	return s.repo.ListCosts(ctx, filter)
}

// Create records a manual cost after the lock guard clears.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Cost, error) {
	if input.VehicleID != nil && input.ShipmentID != nil {
		return nil, ErrAmbiguousLink
	}
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.guardScope(ctx, input.VehicleID, input.ShipmentID); err != nil {
		return nil, err
	}

	cost := Cost{
		Category:   input.Category,
		Amount:     input.Amount,
		IncurredAt: input.IncurredAt,
		VehicleID:  input.VehicleID,
		ShipmentID: input.ShipmentID,
		Source:     SourceManual,
		ReceiptURL: input.ReceiptURL,
		Note:       input.Note,
	}
	if cost.IncurredAt.IsZero() {
		cost.IncurredAt = time.Now()
	}
	created, err := s.repo.InsertCost(ctx, cost)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "cost.create", created.ID, map[string]any{"category": created.Category, "amount": created.Amount})
	return created, nil
}

// Update edits a manual cost. Locked or auto-managed entries are rejected.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (*Cost, error) {
	existing, err := s.repo.GetCost(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, shared.ErrNotFound
	}
	if existing.Source == SourceAutoShipment {
		return nil, ErrAutoManaged
	}
	if err := s.guardExisting(ctx, existing); err != nil {
		return nil, err
	}
	if input.VehicleID != nil && input.ShipmentID != nil {
		return nil, ErrAmbiguousLink
	}
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	// Re-pointing the entry must not dodge a lock on the new target either.
	if err := s.guardScope(ctx, input.VehicleID, input.ShipmentID); err != nil {
		return nil, err
	}

	existing.Category = input.Category
	existing.Amount = input.Amount
	if !input.IncurredAt.IsZero() {
		existing.IncurredAt = input.IncurredAt
	}
	existing.VehicleID = input.VehicleID
	existing.ShipmentID = input.ShipmentID
	existing.ReceiptURL = input.ReceiptURL
	existing.Note = input.Note
	if err := s.repo.UpdateCost(ctx, *existing); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "cost.update", id, map[string]any{"amount": existing.Amount})
	return existing, nil
}

// Delete removes a manual cost unless it is locked or auto-managed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.GetCost(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return shared.ErrNotFound
	}
	if existing.Source == SourceAutoShipment {
		return ErrAutoManaged
	}
	if err := s.guardExisting(ctx, existing); err != nil {
		return err
	}
	if err := s.repo.DeleteCost(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "cost.delete", id, nil)
	return nil
}

// SyncShipmentCosts mirrors a shipment's aggregate cost fields into
// auto_shipment ledger entries, one per category. Zero amounts remove the
// mirror entry. Called by the shipments service on every shipment save.
func (s *Service) SyncShipmentCosts(ctx context.Context, mirror ShipmentCosts) error {
	cleared, err := s.repo.ShipmentCleared(ctx, mirror.ShipmentID)
	if err != nil {
		return err
	}
	if cleared {
		return &LockedError{ShipmentID: mirror.ShipmentID}
	}
	fields := map[string]float64{
		CategoryGroundTransport: mirror.GroundTransport,
		CategoryCustomsBroker:   mirror.CustomsBroker,
		CategoryOceanFreight:    mirror.OceanFreight,
		CategoryImportFees:      mirror.ImportFees,
	}
	for category, amount := range fields {
		if amount > 0 {
			if err := s.repo.UpsertAutoCost(ctx, mirror.ShipmentID, category, amount); err != nil {
				return err
			}
			continue
		}
		if err := s.repo.DeleteAutoCost(ctx, mirror.ShipmentID, category); err != nil {
			return err
		}
	}
	return nil
}

// LockShipment freezes every entry in the shipment's scope: costs on the
// shipment itself and costs on any vehicle assigned to it. One batch update,
// one-way.
func (s *Service) LockShipment(ctx context.Context, shipmentID int64) (int64, error) {
	locked, err := s.repo.LockShipmentScope(ctx, shipmentID)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "cost.lock_shipment", shipmentID, map[string]any{"locked_entries": locked})
	if s.logger != nil {
		s.logger.Info("shipment cost ledger locked",
			slog.Int64("shipment_id", shipmentID),
			slog.Int64("entries", locked))
	}
	return locked, nil
}

// guardExisting rejects mutation of an already locked entry.
func (s *Service) guardExisting(ctx context.Context, cost *Cost) error {
	if !cost.Locked {
		return nil
	}
	shipmentID, err := s.lockingShipment(ctx, cost)
	if err != nil {
		return err
	}
	return &LockedError{ShipmentID: shipmentID}
}

// guardScope rejects new entries against a cleared shipment or a vehicle
// assigned to one.
func (s *Service) guardScope(ctx context.Context, vehicleID, shipmentID *int64) error {
	target := shipmentID
	if target == nil && vehicleID != nil {
		resolved, err := s.repo.VehicleShipment(ctx, *vehicleID)
		if err != nil {
			return err
		}
		target = resolved
	}
	if target == nil {
		return nil
	}
	cleared, err := s.repo.ShipmentCleared(ctx, *target)
	if err != nil {
		return err
	}
	if cleared {
		return &LockedError{ShipmentID: *target}
	}
	return nil
}

func (s *Service) lockingShipment(ctx context.Context, cost *Cost) (int64, error) {
	if cost.ShipmentID != nil {
		return *cost.ShipmentID, nil
	}
	if cost.VehicleID != nil {
		resolved, err := s.repo.VehicleShipment(ctx, *cost.VehicleID)
		if err != nil {
			return 0, err
		}
		if resolved != nil {
			return *resolved, nil
		}
	}
	return 0, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "cost",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
