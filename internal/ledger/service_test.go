package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLedgerRepo struct {
	vehicles      []Vehicle
	costs         []Cost
	shipments     []Shipment
	distributions map[int64]*Distribution
	entries       map[int64][]Entry
	nextDistID    int64
	nextEntryID   int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		distributions: make(map[int64]*Distribution),
		entries:       make(map[int64][]Entry),
	}
}

func (r *memoryLedgerRepo) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	return r.vehicles, nil
}

func (r *memoryLedgerRepo) ListCosts(ctx context.Context) ([]Cost, error) {
	return r.costs, nil
}

func (r *memoryLedgerRepo) ListShipments(ctx context.Context) ([]Shipment, error) {
	return r.shipments, nil
}

func (r *memoryLedgerRepo) GetDistributionByVehicle(ctx context.Context, vehicleID int64) (*Distribution, error) {
	for _, d := range r.distributions {
		if d.VehicleID == vehicleID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryLedgerRepo) ListDistributions(ctx context.Context) ([]Distribution, error) {
	var out []Distribution
	for _, d := range r.distributions {
		out = append(out, *d)
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListEntries(ctx context.Context, distributionID int64) ([]Entry, error) {
	return r.entries[distributionID], nil
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryLedgerRepo) InsertDistribution(ctx context.Context, dist Distribution) (int64, error) {
	for _, d := range r.distributions {
		if d.VehicleID == dist.VehicleID {
			return 0, ErrAlreadyDistributed
		}
	}
	r.nextDistID++
	dist.ID = r.nextDistID
	r.distributions[dist.ID] = &dist
	return dist.ID, nil
}

func (r *memoryLedgerRepo) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	r.nextEntryID++
	entry.ID = r.nextEntryID
	r.entries[entry.DistributionID] = append(r.entries[entry.DistributionID], entry)
	return entry.ID, nil
}

func TestGenerateDistributionEndToEnd(t *testing.T) {
	// Vehicle A (10000) and B (30000) share shipment S with one
	// unattributed cost of 4000. A sells for 13000 with no prior sales.
	repo := newMemoryLedgerRepo()
	saleDate := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	repo.vehicles = []Vehicle{
		{ID: 1, PurchasePrice: 10000, ShipmentID: i64(1), Status: "sold", SalePrice: f64(13000), SaleDate: &saleDate},
		{ID: 2, PurchasePrice: 30000, ShipmentID: i64(1), Status: "in_transit"},
	}
	repo.costs = []Cost{{ID: 1, Amount: 4000, ShipmentID: i64(1)}}
	repo.shipments = []Shipment{{ID: 1}}
	svc := NewService(repo, nil, nil)

	dist, err := svc.GenerateDistribution(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, dist)
	require.InDelta(t, 11000, dist.TotalCost, 0.01)
	require.InDelta(t, 2000, dist.GrossProfit, 0.01)
	require.Equal(t, 0.0, dist.CumulativeReinvestment)
	require.True(t, dist.ReinvestmentPhase)
	require.InDelta(t, 1200, dist.ReinvestmentAmount, 0.01)
	require.Equal(t, saleDate, dist.SaleDate)

	entries := repo.entries[dist.ID]
	require.Len(t, entries, 2)
	require.Equal(t, PartnerDominick, entries[0].Partner)
	require.Equal(t, PartnerTony, entries[1].Partner)
	for _, e := range entries {
		require.InDelta(t, 400, e.Amount, 0.01)
		require.Equal(t, EntryPending, e.Status)
	}
}

func TestGenerateDistributionIdempotent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.vehicles = []Vehicle{
		{ID: 1, PurchasePrice: 10000, Status: "sold", SalePrice: f64(12000), SaleDate: datePtr(2025, time.March, 1)},
	}
	svc := NewService(repo, nil, nil)

	first, err := svc.GenerateDistribution(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.GenerateDistribution(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.distributions, 1)
	require.Len(t, repo.entries[first.ID], 2)
}

func TestGenerateDistributionExcludesOwnSale(t *testing.T) {
	// A prior profitable sale pushes the counter; the new sale must not
	// count itself when picking the phase.
	repo := newMemoryLedgerRepo()
	repo.vehicles = []Vehicle{
		{ID: 1, PurchasePrice: 10000, Status: "sold", SalePrice: f64(260000), SaleDate: datePtr(2025, time.January, 1)},
		{ID: 2, PurchasePrice: 10000, Status: "sold", SalePrice: f64(11000), SaleDate: datePtr(2025, time.February, 1)},
	}
	svc := NewService(repo, nil, nil)

	// Vehicle 1 profit is 250000 -> contribution 150000, exactly the goal.
	dist, err := svc.GenerateDistribution(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, dist.ReinvestmentPhase)
	require.Equal(t, 0.0, dist.ReinvestmentAmount)
	require.InDelta(t, 150000, dist.CumulativeReinvestment, 0.01)

	// Vehicle 1's own distribution must not count vehicle 1; only vehicle
	// 2's 1000 profit contributes (600).
	dist1, err := svc.GenerateDistribution(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, dist1.ReinvestmentPhase)
	require.InDelta(t, 600, dist1.CumulativeReinvestment, 0.01)
}

func TestGenerateDistributionGuards(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.vehicles = []Vehicle{
		{ID: 1, PurchasePrice: 10000, Status: "in_stock", TargetPrice: f64(14000)},
		{ID: 2, PurchasePrice: 10000, Status: "sold"},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.GenerateDistribution(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotSold)

	_, err = svc.GenerateDistribution(context.Background(), 2)
	require.ErrorIs(t, err, ErrMissingSalePrice)

	_, err = svc.GenerateDistribution(context.Background(), 99)
	require.Error(t, err)
}

func TestGenerateDistributionLosesRaceGracefully(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.vehicles = []Vehicle{
		{ID: 1, PurchasePrice: 10000, Status: "sold", SalePrice: f64(12000), SaleDate: datePtr(2025, time.March, 1)},
	}

	// Simulate a concurrent winner slipping in between the guard check and
	// the insert.
	winner := &Distribution{ID: 7, VehicleID: 1, GrossProfit: 2000}
	raceRepo := &racingRepo{memoryLedgerRepo: repo, winner: winner}
	raced := NewService(raceRepo, nil, nil)

	dist, err := raced.GenerateDistribution(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, winner.ID, dist.ID)
}

// racingRepo reports no distribution until the insert, which then fails with
// the unique-constraint conflict.
type racingRepo struct {
	*memoryLedgerRepo
	winner  *Distribution
	checked bool
}

func (r *racingRepo) GetDistributionByVehicle(ctx context.Context, vehicleID int64) (*Distribution, error) {
	if !r.checked {
		r.checked = true
		return nil, nil
	}
	return r.winner, nil
}

func (r *racingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return ErrAlreadyDistributed
}
