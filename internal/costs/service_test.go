package costs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

type memoryCostRepo struct {
	costs            map[int64]*Cost
	nextID           int64
	clearedShipments map[int64]bool
	vehicleShipments map[int64]*int64
}

func newMemoryCostRepo() *memoryCostRepo {
	return &memoryCostRepo{
		costs:            make(map[int64]*Cost),
		clearedShipments: make(map[int64]bool),
		vehicleShipments: make(map[int64]*int64),
	}
}

func (r *memoryCostRepo) ListCosts(ctx context.Context, filter Filter) ([]Cost, error) {
	var out []Cost
	for _, c := range r.costs {
		if filter.VehicleID != nil && (c.VehicleID == nil || *c.VehicleID != *filter.VehicleID) {
			continue
		}
		if filter.ShipmentID != nil && (c.ShipmentID == nil || *c.ShipmentID != *filter.ShipmentID) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *memoryCostRepo) GetCost(ctx context.Context, id int64) (*Cost, error) {
	c, ok := r.costs[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *memoryCostRepo) InsertCost(ctx context.Context, cost Cost) (*Cost, error) {
	r.nextID++
	cost.ID = r.nextID
	r.costs[cost.ID] = &cost
	copied := cost
	return &copied, nil
}

func (r *memoryCostRepo) UpdateCost(ctx context.Context, cost Cost) error {
	existing, ok := r.costs[cost.ID]
	if !ok {
		return errors.New("missing")
	}
	cost.Locked = existing.Locked
	cost.Source = existing.Source
	r.costs[cost.ID] = &cost
	return nil
}

func (r *memoryCostRepo) DeleteCost(ctx context.Context, id int64) error {
	delete(r.costs, id)
	return nil
}

func (r *memoryCostRepo) UpsertAutoCost(ctx context.Context, shipmentID int64, category string, amount float64) error {
	for _, c := range r.costs {
		if c.Source == SourceAutoShipment && c.ShipmentID != nil && *c.ShipmentID == shipmentID && c.Category == category {
			c.Amount = amount
			return nil
		}
	}
	r.nextID++
	r.costs[r.nextID] = &Cost{ID: r.nextID, Category: category, Amount: amount, ShipmentID: &shipmentID, Source: SourceAutoShipment}
	return nil
}

func (r *memoryCostRepo) DeleteAutoCost(ctx context.Context, shipmentID int64, category string) error {
	for id, c := range r.costs {
		if c.Source == SourceAutoShipment && c.ShipmentID != nil && *c.ShipmentID == shipmentID && c.Category == category {
			delete(r.costs, id)
		}
	}
	return nil
}

func (r *memoryCostRepo) LockShipmentScope(ctx context.Context, shipmentID int64) (int64, error) {
	var locked int64
	for _, c := range r.costs {
		inScope := c.ShipmentID != nil && *c.ShipmentID == shipmentID
		if !inScope && c.VehicleID != nil {
			if sid := r.vehicleShipments[*c.VehicleID]; sid != nil && *sid == shipmentID {
				inScope = true
			}
		}
		if inScope && !c.Locked {
			c.Locked = true
			locked++
		}
	}
	return locked, nil
}

func (r *memoryCostRepo) ShipmentCleared(ctx context.Context, shipmentID int64) (bool, error) {
	return r.clearedShipments[shipmentID], nil
}

func (r *memoryCostRepo) VehicleShipment(ctx context.Context, vehicleID int64) (*int64, error) {
	return r.vehicleShipments[vehicleID], nil
}

func TestCreateRejectsAmbiguousLink(t *testing.T) {
	svc := NewService(newMemoryCostRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Category: "repair", Amount: 100, VehicleID: i64(1), ShipmentID: i64(2),
	})
	require.ErrorIs(t, err, ErrAmbiguousLink)
}

func TestCreateBlockedByClearedShipment(t *testing.T) {
	repo := newMemoryCostRepo()
	repo.clearedShipments[5] = true
	repo.vehicleShipments[9] = i64(5)
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{Category: "storage", Amount: 50, ShipmentID: i64(5)})
	require.ErrorIs(t, err, ErrLocked)
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, int64(5), locked.ShipmentID)

	// Vehicles assigned to the cleared shipment are part of the lock scope.
	_, err = svc.Create(context.Background(), CreateInput{Category: "repair", Amount: 75, VehicleID: i64(9)})
	require.ErrorIs(t, err, ErrLocked)
}

func TestLockedCostIsImmutable(t *testing.T) {
	repo := newMemoryCostRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Category: "repair", Amount: 300, ShipmentID: i64(1)})
	require.NoError(t, err)
	unrelated, err := svc.Create(context.Background(), CreateInput{Category: "repair", Amount: 40, ShipmentID: i64(2)})
	require.NoError(t, err)

	locked, err := svc.LockShipment(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), locked)
	repo.clearedShipments[1] = true

	_, err = svc.Update(context.Background(), created.ID, CreateInput{Category: "repair", Amount: 999, ShipmentID: i64(1)})
	require.ErrorIs(t, err, ErrLocked)
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), ErrLocked)

	// Costs on unrelated shipments stay mutable.
	_, err = svc.Update(context.Background(), unrelated.ID, CreateInput{Category: "repair", Amount: 45, ShipmentID: i64(2)})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), unrelated.ID))
}

func TestLockScopeIncludesVehicleCosts(t *testing.T) {
	repo := newMemoryCostRepo()
	repo.vehicleShipments[3] = i64(1)
	svc := NewService(repo, nil, nil)

	onVehicle, err := svc.Create(context.Background(), CreateInput{Category: "inspection", Amount: 120, VehicleID: i64(3)})
	require.NoError(t, err)

	locked, err := svc.LockShipment(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), locked)
	require.True(t, repo.costs[onVehicle.ID].Locked)

	err = svc.Delete(context.Background(), onVehicle.ID)
	require.ErrorIs(t, err, ErrLocked)
	var lockedErr *LockedError
	require.ErrorAs(t, err, &lockedErr)
	require.Equal(t, int64(1), lockedErr.ShipmentID)
}

func TestAutoManagedEntriesRejectDirectMutation(t *testing.T) {
	repo := newMemoryCostRepo()
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.SyncShipmentCosts(context.Background(), ShipmentCosts{
		ShipmentID: 1, OceanFreight: 2500,
	}))
	entries, err := svc.List(context.Background(), Filter{ShipmentID: i64(1)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, SourceAutoShipment, entries[0].Source)

	_, err = svc.Update(context.Background(), entries[0].ID, CreateInput{Category: CategoryOceanFreight, Amount: 1, ShipmentID: i64(1)})
	require.ErrorIs(t, err, ErrAutoManaged)
	require.ErrorIs(t, svc.Delete(context.Background(), entries[0].ID), ErrAutoManaged)
}

func TestSyncShipmentCostsUpsertsAndRemoves(t *testing.T) {
	repo := newMemoryCostRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.SyncShipmentCosts(ctx, ShipmentCosts{ShipmentID: 1, GroundTransport: 800, OceanFreight: 2500}))
	require.NoError(t, svc.SyncShipmentCosts(ctx, ShipmentCosts{ShipmentID: 1, GroundTransport: 850}))

	entries, err := svc.List(ctx, Filter{ShipmentID: i64(1)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, CategoryGroundTransport, entries[0].Category)
	require.Equal(t, 850.0, entries[0].Amount)
}

func TestSyncShipmentCostsRefusesClearedShipment(t *testing.T) {
	repo := newMemoryCostRepo()
	repo.clearedShipments[1] = true
	svc := NewService(repo, nil, nil)

	err := svc.SyncShipmentCosts(context.Background(), ShipmentCosts{ShipmentID: 1, ImportFees: 300})
	require.ErrorIs(t, err, ErrLocked)
}
