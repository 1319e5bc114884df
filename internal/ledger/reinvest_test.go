package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func soldVehicle(id int64, purchase, sale float64, y, m, d int) Vehicle {
	return Vehicle{
		ID:            id,
		PurchasePrice: purchase,
		SalePrice:     f64(sale),
		Status:        "sold",
		SaleDate:      datePtr(y, time.Month(m), d),
	}
}

func TestCumulativeReinvestmentSumsProfitableSales(t *testing.T) {
	vehicles := []Vehicle{
		soldVehicle(1, 10000, 13000, 2025, 1, 10), // +3000 -> 1800
		soldVehicle(2, 20000, 19000, 2025, 2, 5),  // loss, contributes nothing
		soldVehicle(3, 5000, 7500, 2025, 3, 1),    // +2500 -> 1500
		{ID: 4, PurchasePrice: 8000, Status: "in_stock"},
	}
	landed := LandedCosts(vehicles, nil, nil)

	total := CumulativeReinvestment(vehicles, landed, 0)
	require.InDelta(t, 3300, total, 0.01)
}

func TestCumulativeReinvestmentExcludesVehicle(t *testing.T) {
	vehicles := []Vehicle{
		soldVehicle(1, 10000, 13000, 2025, 1, 10),
		soldVehicle(2, 5000, 7500, 2025, 2, 1),
	}
	landed := LandedCosts(vehicles, nil, nil)

	require.InDelta(t, 1800+1500, CumulativeReinvestment(vehicles, landed, 0), 0.01)
	require.InDelta(t, 1500, CumulativeReinvestment(vehicles, landed, 1), 0.01)
	require.InDelta(t, 1800, CumulativeReinvestment(vehicles, landed, 2), 0.01)
}

func TestCumulativeReinvestmentMonotonic(t *testing.T) {
	// Replaying sale prefixes in chronological order never decreases the
	// counter; losses leave it unchanged.
	vehicles := []Vehicle{
		soldVehicle(1, 10000, 12000, 2025, 1, 1),
		soldVehicle(2, 10000, 9000, 2025, 2, 1),
		soldVehicle(3, 10000, 15000, 2025, 3, 1),
	}
	landed := LandedCosts(vehicles, nil, nil)

	prev := 0.0
	sold := SoldChronologically(vehicles)
	for i := 1; i <= len(sold); i++ {
		total := CumulativeReinvestment(sold[:i], landed, 0)
		require.GreaterOrEqual(t, total, prev)
		prev = total
	}
	// The loss in the middle contributed exactly nothing.
	withLoss := CumulativeReinvestment(sold[:2], landed, 0)
	withoutLoss := CumulativeReinvestment(sold[:1], landed, 0)
	require.Equal(t, withoutLoss, withLoss)
}

func TestSoldChronologicallyOrdersBySaleDate(t *testing.T) {
	vehicles := []Vehicle{
		soldVehicle(3, 100, 200, 2025, 6, 1),
		soldVehicle(1, 100, 200, 2025, 1, 1),
		{ID: 4, PurchasePrice: 100, Status: "sold"}, // no sale price: not a completed sale
		soldVehicle(2, 100, 200, 2025, 3, 15),
	}

	sold := SoldChronologically(vehicles)
	require.Len(t, sold, 3)
	require.Equal(t, int64(1), sold[0].ID)
	require.Equal(t, int64(2), sold[1].ID)
	require.Equal(t, int64(3), sold[2].ID)
}

func TestCappedReinvestment(t *testing.T) {
	require.Equal(t, 120000.0, CappedReinvestment(120000))
	require.Equal(t, ReinvestmentGoal, CappedReinvestment(ReinvestmentGoal))
	require.Equal(t, ReinvestmentGoal, CappedReinvestment(987654.32))
}
