package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAllocatedSharesProportional(t *testing.T) {
	vehicles := []Vehicle{
		{ID: 1, PurchasePrice: 10000, ShipmentID: i64(1)},
		{ID: 2, PurchasePrice: 30000, ShipmentID: i64(1)},
	}
	costs := []Cost{
		{ID: 1, Amount: 4000, ShipmentID: i64(1)},
	}
	shipments := []Shipment{{ID: 1}}

	shares := AllocatedShares(vehicles, costs, shipments)
	require.InDelta(t, 1000, shares[1], 0.01)
	require.InDelta(t, 3000, shares[2], 0.01)
}

func TestAllocationConservation(t *testing.T) {
	vehicles := []Vehicle{
		{ID: 1, PurchasePrice: 7350.25, ShipmentID: i64(1)},
		{ID: 2, PurchasePrice: 12100.10, ShipmentID: i64(1)},
		{ID: 3, PurchasePrice: 999.99, ShipmentID: i64(1)},
	}
	costs := []Cost{
		{ID: 1, Amount: 1833.33, ShipmentID: i64(1)},
		{ID: 2, Amount: 420.50, ShipmentID: i64(1)},
	}
	shipments := []Shipment{{ID: 1}}

	shares := AllocatedShares(vehicles, costs, shipments)
	var sum float64
	for _, s := range shares {
		sum += s
	}
	require.InDelta(t, 1833.33+420.50, sum, 0.01)
}

func TestAllocationEqualSplitFallback(t *testing.T) {
	// Purchase prices missing across the whole shipment: equal split.
	vehicles := []Vehicle{
		{ID: 1, ShipmentID: i64(1)},
		{ID: 2, ShipmentID: i64(1)},
		{ID: 3, ShipmentID: i64(1)},
	}
	costs := []Cost{{ID: 1, Amount: 900, ShipmentID: i64(1)}}
	shipments := []Shipment{{ID: 1}}

	shares := AllocatedShares(vehicles, costs, shipments)
	for id := int64(1); id <= 3; id++ {
		require.InDelta(t, 300, shares[id], 0.01)
	}
}

func TestAllocationSkipsEmptyShipments(t *testing.T) {
	vehicles := []Vehicle{
		{ID: 1, PurchasePrice: 5000, ShipmentID: i64(1)},
		{ID: 2, PurchasePrice: 5000}, // not assigned anywhere
	}
	costs := []Cost{
		{ID: 1, Amount: 1000, ShipmentID: i64(2)}, // shipment with no vehicles
	}
	shipments := []Shipment{{ID: 1}, {ID: 2}}

	shares := AllocatedShares(vehicles, costs, shipments)
	require.Empty(t, shares)
}

func TestLandedCostAdditivity(t *testing.T) {
	vehicles := []Vehicle{
		{ID: 1, PurchasePrice: 10000, ShipmentID: i64(1)},
		{ID: 2, PurchasePrice: 30000, ShipmentID: i64(1)},
		{ID: 3, PurchasePrice: 8000}, // no shipment, direct costs only
	}
	costs := []Cost{
		{ID: 1, Amount: 4000, ShipmentID: i64(1)},
		{ID: 2, Amount: 250, VehicleID: i64(1)},
		{ID: 3, Amount: 125.50, VehicleID: i64(3)},
	}
	shipments := []Shipment{{ID: 1}}

	landed := LandedCosts(vehicles, costs, shipments)
	require.InDelta(t, 10000+250+1000, landed[1], 0.01)
	require.InDelta(t, 30000+3000, landed[2], 0.01)
	require.InDelta(t, 8000+125.50, landed[3], 0.01)
}

func TestLandedCostsTotalOverSparseInput(t *testing.T) {
	// No costs, no shipments, vehicles with zero prices: no panic, no error
	// path, every vehicle present in the map.
	vehicles := []Vehicle{{ID: 1}, {ID: 2, PurchasePrice: 100}}

	landed := LandedCosts(vehicles, nil, nil)
	require.Len(t, landed, 2)
	require.Equal(t, 0.0, landed[1])
	require.Equal(t, 100.0, landed[2])
}

func TestAllocationIgnoresVehicleTiedShipmentCosts(t *testing.T) {
	// A cost linked to both a shipment and a vehicle is a direct vehicle
	// cost, not part of the shared pool.
	vehicles := []Vehicle{
		{ID: 1, PurchasePrice: 1000, ShipmentID: i64(1)},
		{ID: 2, PurchasePrice: 1000, ShipmentID: i64(1)},
	}
	costs := []Cost{
		{ID: 1, Amount: 500, ShipmentID: i64(1), VehicleID: i64(1)},
	}
	shipments := []Shipment{{ID: 1}}

	landed := LandedCosts(vehicles, costs, shipments)
	require.InDelta(t, 1500, landed[1], 0.01)
	require.InDelta(t, 1000, landed[2], 0.01)
}
