package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtauto/dtauto/internal/ledger"
)

// Vehicle is the analytics read model: engine inputs plus display fields.
type Vehicle struct {
	ID            int64
	Year          int
	Make          string
	Model         string
	PurchasePrice float64
	TargetPrice   *float64
	MinimumPrice  *float64
	SalePrice     *float64
	Status        string
	ShipmentID    *int64
	SaleDate      *time.Time
}

// Label renders the display name used in reports.
func (v Vehicle) Label() string {
	return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
}

// Repository exposes the read queries the dashboard relies on.
type Repository interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	ListCosts(ctx context.Context) ([]ledger.Cost, error)
	ListShipments(ctx context.Context) ([]ledger.Shipment, error)
	ListDistributions(ctx context.Context) ([]ledger.Distribution, error)
	ListAllEntries(ctx context.Context) ([]ledger.Entry, error)
}

// Service computes dashboard views. All money math goes through the ledger
// engines; this package only aggregates and shapes their output.
type Service struct {
	repo Repository
}

// NewService wires a Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// DashboardMetrics is the landing view.
type DashboardMetrics struct {
	InventoryByStatus      map[string]int
	VehiclesSold           int
	TotalInvested          float64
	RealizedProfit         float64
	CumulativeReinvestment float64
	ReinvestmentGoal       float64
	ReinvestmentPhase      bool
}

// SaleRow is one settled sale in the financial summary.
type SaleRow struct {
	VehicleID         int64
	Vehicle           string
	SaleDate          time.Time
	SalePrice         float64
	LandedCost        float64
	Profit            float64
	ReinvestmentPhase bool
	DominickShare     float64
	TonyShare         float64
	Reinvested        float64
}

// FinancialSummary lists sales chronologically with running totals.
type FinancialSummary struct {
	Rows            []SaleRow
	TotalSales      float64
	TotalLandedCost float64
	TotalProfit     float64
	TotalDominick   float64
	TotalTony       float64
	TotalReinvested float64
}

// ProjectionRow estimates an unsold vehicle's outcome.
type ProjectionRow struct {
	VehicleID      int64
	Vehicle        string
	ExpectedPrice  float64
	LandedCost     float64
	ExpectedProfit float64
	DominickShare  float64
	TonyShare      float64
	Reinvested     float64
}

// Projections covers the whole unsold inventory under the phase that
// applies right now.
type Projections struct {
	Rows                []ProjectionRow
	TotalExpectedProfit float64
	ReinvestmentPhase   bool
}

// PartnerStanding is one leaderboard line.
type PartnerStanding struct {
	Partner string
	Earned  float64
	Paid    float64
	Pending float64
}

type engineInput struct {
	vehicles  []Vehicle
	costs     []ledger.Cost
	shipments []ledger.Shipment
}

func (in engineInput) ledgerVehicles() []ledger.Vehicle {
	out := make([]ledger.Vehicle, 0, len(in.vehicles))
	for _, v := range in.vehicles {
		out = append(out, ledger.Vehicle{
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
	return out
}

// loadEngineInput fetches vehicles, costs and shipments in parallel.
func (s *Service) loadEngineInput(ctx context.Context) (engineInput, error) {
	var in engineInput
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.vehicles, err = s.repo.ListVehicles(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		in.costs, err = s.repo.ListCosts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		in.shipments, err = s.repo.ListShipments(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return engineInput{}, err
	}
	return in, nil
}

// Dashboard aggregates inventory counts and the reinvestment standing.
func (s *Service) Dashboard(ctx context.Context) (DashboardMetrics, error) {
	in, err := s.loadEngineInput(ctx)
	if err != nil {
		return DashboardMetrics{}, err
	}
	lv := in.ledgerVehicles()
	landed := ledger.LandedCosts(lv, in.costs, in.shipments)
	cumulative := ledger.CumulativeReinvestment(lv, landed, 0)

	metrics := DashboardMetrics{
		InventoryByStatus:      make(map[string]int),
		CumulativeReinvestment: ledger.CappedReinvestment(cumulative),
		ReinvestmentGoal:       ledger.ReinvestmentGoal,
		ReinvestmentPhase:      cumulative < ledger.ReinvestmentGoal,
	}
	for _, v := range in.vehicles {
		metrics.InventoryByStatus[v.Status]++
		if v.Status == "sold" && v.SalePrice != nil {
			metrics.VehiclesSold++
			metrics.RealizedProfit += *v.SalePrice - landed[v.ID]
			continue
		}
		metrics.TotalInvested += landed[v.ID]
	}
	metrics.RealizedProfit = round2(metrics.RealizedProfit)
	metrics.TotalInvested = round2(metrics.TotalInvested)
	return metrics, nil
}

// Financials builds the per-sale summary from the persisted distribution
// ledger, so the report always matches what was recorded at sale time.
func (s *Service) Financials(ctx context.Context) (FinancialSummary, error) {
	var (
		vehicles      []Vehicle
		distributions []ledger.Distribution
		entries       []ledger.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vehicles, err = s.repo.ListVehicles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		distributions, err = s.repo.ListDistributions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.repo.ListAllEntries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return FinancialSummary{}, err
	}

	labels := make(map[int64]string, len(vehicles))
	for _, v := range vehicles {
		labels[v.ID] = v.Label()
	}
	shares := make(map[int64]map[ledger.Partner]float64, len(distributions))
	for _, e := range entries {
		if shares[e.DistributionID] == nil {
			shares[e.DistributionID] = make(map[ledger.Partner]float64, 2)
		}
		shares[e.DistributionID][e.Partner] += e.Amount
	}

	var summary FinancialSummary
	summary.Rows = make([]SaleRow, 0, len(distributions))
	for _, d := range distributions {
		row := SaleRow{
			VehicleID:         d.VehicleID,
			Vehicle:           labels[d.VehicleID],
			SaleDate:          d.SaleDate,
			SalePrice:         d.SalePrice,
			LandedCost:        d.TotalCost,
			Profit:            d.GrossProfit,
			ReinvestmentPhase: d.ReinvestmentPhase,
			DominickShare:     shares[d.ID][ledger.PartnerDominick],
			TonyShare:         shares[d.ID][ledger.PartnerTony],
			Reinvested:        d.ReinvestmentAmount,
		}
		summary.Rows = append(summary.Rows, row)
		summary.TotalSales += row.SalePrice
		summary.TotalLandedCost += row.LandedCost
		summary.TotalProfit += row.Profit
		summary.TotalDominick += row.DominickShare
		summary.TotalTony += row.TonyShare
		summary.TotalReinvested += row.Reinvested
	}
	summary.TotalSales = round2(summary.TotalSales)
	summary.TotalLandedCost = round2(summary.TotalLandedCost)
	summary.TotalProfit = round2(summary.TotalProfit)
	summary.TotalDominick = round2(summary.TotalDominick)
	summary.TotalTony = round2(summary.TotalTony)
	summary.TotalReinvested = round2(summary.TotalReinvested)
	return summary, nil
}

// Projections estimates unsold inventory outcomes at the target price,
// falling back to the minimum price, under the split that applies today.
func (s *Service) Projections(ctx context.Context) (Projections, error) {
	in, err := s.loadEngineInput(ctx)
	if err != nil {
		return Projections{}, err
	}
	lv := in.ledgerVehicles()
	landed := ledger.LandedCosts(lv, in.costs, in.shipments)
	cumulative := ledger.CumulativeReinvestment(lv, landed, 0)

	out := Projections{ReinvestmentPhase: cumulative < ledger.ReinvestmentGoal}
	for _, v := range in.vehicles {
		if v.Status == "sold" {
			continue
		}
		price := v.TargetPrice
		if price == nil {
			price = v.MinimumPrice
		}
		if price == nil {
			continue
		}
		profit := round2(*price - landed[v.ID])
		split := ledger.ComputeSplit(profit, cumulative)
		out.Rows = append(out.Rows, ProjectionRow{
			VehicleID:      v.ID,
			Vehicle:        v.Label(),
			ExpectedPrice:  *price,
			LandedCost:     landed[v.ID],
			ExpectedProfit: profit,
			DominickShare:  split.DominickShare,
			TonyShare:      split.TonyShare,
			Reinvested:     split.ReinvestmentAmount,
		})
		out.TotalExpectedProfit += profit
	}
	out.TotalExpectedProfit = round2(out.TotalExpectedProfit)
	return out, nil
}

// Leaderboard totals each partner's earned, paid and pending shares.
func (s *Service) Leaderboard(ctx context.Context) ([]PartnerStanding, error) {
	entries, err := s.repo.ListAllEntries(ctx)
	if err != nil {
		return nil, err
	}
	byPartner := map[ledger.Partner]*PartnerStanding{
		ledger.PartnerDominick: {Partner: string(ledger.PartnerDominick)},
		ledger.PartnerTony:     {Partner: string(ledger.PartnerTony)},
	}
	for _, e := range entries {
		standing, ok := byPartner[e.Partner]
		if !ok {
			continue
		}
		standing.Earned += e.Amount
		if e.Status == ledger.EntryClosed {
			standing.Paid += e.Amount
		}
	}
	out := make([]PartnerStanding, 0, len(byPartner))
	for _, partner := range []ledger.Partner{ledger.PartnerDominick, ledger.PartnerTony} {
		standing := byPartner[partner]
		standing.Earned = round2(standing.Earned)
		standing.Paid = round2(standing.Paid)
		standing.Pending = round2(standing.Earned - standing.Paid)
		out = append(out, *standing)
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
