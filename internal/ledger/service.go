package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtauto/dtauto/internal/shared"
)

// RepositoryPort abstracts persistence for the distribution service.
type RepositoryPort interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	ListCosts(ctx context.Context) ([]Cost, error)
	ListShipments(ctx context.Context) ([]Shipment, error)
	GetDistributionByVehicle(ctx context.Context, vehicleID int64) (*Distribution, error)
	ListDistributions(ctx context.Context) ([]Distribution, error)
	ListEntries(ctx context.Context, distributionID int64) ([]Entry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional insert pair.
type TxRepository interface {
	InsertDistribution(ctx context.Context, dist Distribution) (int64, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns profit distribution generation and the read paths the
// analytics layer recomputes from.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// GenerateDistribution creates the one-per-sale distribution record and its
// two partner entries. It must run only after the vehicle is durably sold
// with an actual sale price.
//
// The operation is idempotent: an existing distribution for the vehicle is
// returned as-is, and the unique constraint on vehicle_id turns a concurrent
// duplicate insert into the same outcome rather than a second record.
func (s *Service) GenerateDistribution(ctx context.Context, vehicleID int64) (*Distribution, error) {
	existing, err := s.repo.GetDistributionByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	costs, err := s.repo.ListCosts(ctx)
	if err != nil {
		return nil, err
	}
	shipments, err := s.repo.ListShipments(ctx)
	if err != nil {
		return nil, err
	}

	var vehicle *Vehicle
	for i := range vehicles {
		if vehicles[i].ID == vehicleID {
			vehicle = &vehicles[i]
			break
		}
	}
	if vehicle == nil {
		return nil, shared.ErrNotFound
	}
	if vehicle.Status != statusVehicleSold {
		return nil, ErrNotSold
	}
	if vehicle.SalePrice == nil {
		return nil, ErrMissingSalePrice
	}

	landed := LandedCosts(vehicles, costs, shipments)
	gross := *vehicle.SalePrice - landed[vehicle.ID]
	// The vehicle must not count its own contribution before it has a
	// recorded distribution.
	cumulative := CumulativeReinvestment(vehicles, landed, vehicle.ID)
	split := ComputeSplit(gross, cumulative)

	dist := Distribution{
		VehicleID:              vehicle.ID,
		GrossProfit:            round2(gross),
		TotalCost:              round2(landed[vehicle.ID]),
		SalePrice:              *vehicle.SalePrice,
		ReinvestmentAmount:     split.ReinvestmentAmount,
		ReinvestmentPhase:      split.ReinvestmentPhase,
		CumulativeReinvestment: round2(cumulative),
		SaleDate:               saleDate(*vehicle),
		CreatedAt:              time.Now(),
	}
	if dist.SaleDate.IsZero() {
		dist.SaleDate = time.Now()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertDistribution(ctx, dist)
		if err != nil {
			return err
		}
		dist.ID = id
		entries := []Entry{
			{DistributionID: id, Partner: PartnerDominick, Amount: split.DominickShare, Status: EntryPending},
			{DistributionID: id, Partner: PartnerTony, Amount: split.TonyShare, Status: EntryPending},
		}
		for _, entry := range entries {
			if _, err := tx.InsertEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyDistributed) {
			// Lost the race to a concurrent sale completion; the winner's
			// record is the distribution.
			return s.repo.GetDistributionByVehicle(ctx, vehicleID)
		}
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx),
			Action:   "distribution.generate",
			Entity:   "profit_distribution",
			EntityID: strconv.FormatInt(dist.ID, 10),
			Meta: map[string]any{
				"vehicle_id":   vehicle.ID,
				"gross_profit": dist.GrossProfit,
				"phase":        dist.ReinvestmentPhase,
			},
		})
	}
	if s.logger != nil {
		s.logger.Info("profit distribution generated",
			slog.Int64("vehicle_id", vehicle.ID),
			slog.Float64("gross_profit", dist.GrossProfit),
			slog.Bool("reinvestment_phase", dist.ReinvestmentPhase))
	}
	return &dist, nil
}

// ListDistributions returns the full distribution history in sale order.
func (s *Service) ListDistributions(ctx context.Context) ([]Distribution, error) {
	return s.repo.ListDistributions(ctx)
}

// DistributionWithEntries loads a distribution and its partner entries.
func (s *Service) DistributionWithEntries(ctx context.Context, vehicleID int64) (*Distribution, []Entry, error) {
	dist, err := s.repo.GetDistributionByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, nil, err
	}
	if dist == nil {
		return nil, nil, shared.ErrNotFound
	}
	entries, err := s.repo.ListEntries(ctx, dist.ID)
	if err != nil {
		return nil, nil, err
	}
	return dist, entries, nil
}
