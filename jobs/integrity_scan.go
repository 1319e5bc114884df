package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dtauto/dtauto/internal/analytics"
	"github.com/dtauto/dtauto/internal/ledger"
	"github.com/dtauto/dtauto/internal/observability"
)

// LedgerSource provides the rows the integrity scan re-verifies. The
// analytics read repository satisfies it.
type LedgerSource interface {
	ListVehicles(ctx context.Context) ([]analytics.Vehicle, error)
	ListCosts(ctx context.Context) ([]ledger.Cost, error)
	ListShipments(ctx context.Context) ([]ledger.Shipment, error)
	ListDistributions(ctx context.Context) ([]ledger.Distribution, error)
	ListAllEntries(ctx context.Context) ([]ledger.Entry, error)
}

// IntegrityScanJob re-checks every persisted distribution against the
// allocation and split engines and logs any drift.
type IntegrityScanJob struct {
	Source  LedgerSource
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewIntegrityScanJob initialises the scan handler.
func NewIntegrityScanJob(source LedgerSource, logger *slog.Logger, metrics *observability.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Source: source, Logger: logger, Metrics: metrics}
}

// Drift describes one failed check on a persisted distribution.
type Drift struct {
	DistributionID int64
	VehicleID      int64
	Check          string
	Expected       float64
	Got            float64
}

// Handle executes the scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	drifts, scanned, err := j.Scan(ctx, payload.Tolerance)
	if err != nil {
		j.observe("error")
		if j.Logger != nil {
			j.Logger.Error("integrity scan failed", slog.Any("error", err))
		}
		return err
	}

	if j.Logger != nil {
		for _, d := range drifts {
			j.Logger.Warn("distribution drift detected",
				slog.Int64("distribution_id", d.DistributionID),
				slog.Int64("vehicle_id", d.VehicleID),
				slog.String("check", d.Check),
				slog.Float64("expected", d.Expected),
				slog.Float64("got", d.Got),
			)
		}
		j.Logger.Info("completed integrity scan",
			slog.Int("distributions", scanned),
			slog.Int("drifts", len(drifts)),
			slog.Duration("duration", time.Since(start)),
		)
	}
	j.observe("ok")
	return nil
}

// Scan verifies each persisted distribution: the entry shares plus the
// reinvestment amount must add back to the gross profit, the recorded split
// must match what the engine produces for the recorded cumulative, and the
// recorded total cost must match the landed cost recomputed from the costs
// as they stand now. Cost locking at customs clearance is what makes the
// last check meaningful.
func (j *IntegrityScanJob) Scan(ctx context.Context, tolerance float64) ([]Drift, int, error) {
	if tolerance <= 0 {
		tolerance = 0.01
	}

	vehicles, err := j.Source.ListVehicles(ctx)
	if err != nil {
		return nil, 0, err
	}
	costs, err := j.Source.ListCosts(ctx)
	if err != nil {
		return nil, 0, err
	}
	shipments, err := j.Source.ListShipments(ctx)
	if err != nil {
		return nil, 0, err
	}
	distributions, err := j.Source.ListDistributions(ctx)
	if err != nil {
		return nil, 0, err
	}
	entries, err := j.Source.ListAllEntries(ctx)
	if err != nil {
		return nil, 0, err
	}

	ledgerVehicles := make([]ledger.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		ledgerVehicles = append(ledgerVehicles, ledger.Vehicle{
			ID:            v.ID,
			PurchasePrice: v.PurchasePrice,
			TargetPrice:   v.TargetPrice,
			MinimumPrice:  v.MinimumPrice,
			SalePrice:     v.SalePrice,
			Status:        v.Status,
			ShipmentID:    v.ShipmentID,
			SaleDate:      v.SaleDate,
		})
	}
	landed := ledger.LandedCosts(ledgerVehicles, costs, shipments)

	shares := make(map[int64]map[ledger.Partner]float64, len(distributions))
	for _, e := range entries {
		byPartner, ok := shares[e.DistributionID]
		if !ok {
			byPartner = make(map[ledger.Partner]float64, 2)
			shares[e.DistributionID] = byPartner
		}
		byPartner[e.Partner] += e.Amount
	}

	var drifts []Drift
	for _, d := range distributions {
		byPartner := shares[d.ID]
		dominick := byPartner[ledger.PartnerDominick]
		tony := byPartner[ledger.PartnerTony]

		if diff := math.Abs(dominick + tony + d.ReinvestmentAmount - d.GrossProfit); diff > tolerance {
			drifts = append(drifts, Drift{
				DistributionID: d.ID,
				VehicleID:      d.VehicleID,
				Check:          "entries_plus_reinvestment",
				Expected:       d.GrossProfit,
				Got:            dominick + tony + d.ReinvestmentAmount,
			})
		}

		split := ledger.ComputeSplit(d.GrossProfit, d.CumulativeReinvestment)
		if math.Abs(split.DominickShare-dominick) > tolerance || math.Abs(split.TonyShare-tony) > tolerance {
			drifts = append(drifts, Drift{
				DistributionID: d.ID,
				VehicleID:      d.VehicleID,
				Check:          "split_shares",
				Expected:       split.DominickShare,
				Got:            dominick,
			})
		}
		if math.Abs(split.ReinvestmentAmount-d.ReinvestmentAmount) > tolerance {
			drifts = append(drifts, Drift{
				DistributionID: d.ID,
				VehicleID:      d.VehicleID,
				Check:          "reinvestment_amount",
				Expected:       split.ReinvestmentAmount,
				Got:            d.ReinvestmentAmount,
			})
		}

		if diff := math.Abs(d.SalePrice - d.TotalCost - d.GrossProfit); diff > tolerance {
			drifts = append(drifts, Drift{
				DistributionID: d.ID,
				VehicleID:      d.VehicleID,
				Check:          "gross_profit",
				Expected:       d.SalePrice - d.TotalCost,
				Got:            d.GrossProfit,
			})
		}

		if current, ok := landed[d.VehicleID]; ok {
			if diff := math.Abs(current - d.TotalCost); diff > tolerance {
				drifts = append(drifts, Drift{
					DistributionID: d.ID,
					VehicleID:      d.VehicleID,
					Check:          "landed_cost",
					Expected:       current,
					Got:            d.TotalCost,
				})
			}
		}
	}
	return drifts, len(distributions), nil
}

func (j *IntegrityScanJob) observe(status string) {
	if j.Metrics != nil {
		j.Metrics.ObserveJob(TaskLedgerIntegrityScan, status)
	}
}
