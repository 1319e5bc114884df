package ledger

import (
	"sort"
	"time"
)

// CumulativeReinvestment replays every sold vehicle with a recorded sale
// price in chronological sale-date order and sums the 60% contribution of
// each strictly positive profit. Loss-making sales contribute nothing; the
// counter never regresses.
//
// excludeID skips one vehicle, used when computing that vehicle's own
// distribution before it counts itself. Zero excludes nothing.
//
// The value is derived by replay on every call. It is never persisted as a
// mutable counter, so every consumer sees the same figure for the same data.
func CumulativeReinvestment(vehicles []Vehicle, landed map[int64]float64, excludeID int64) float64 {
	var total float64
	for _, v := range SoldChronologically(vehicles) {
		if v.ID == excludeID {
			continue
		}
		profit := *v.SalePrice - landed[v.ID]
		if profit > 0 {
			total += profit * reinvestmentRate
		}
	}
	return total
}

// CappedReinvestment clamps the replayed total at the goal for display.
// Phase selection always uses the uncapped value.
func CappedReinvestment(total float64) float64 {
	if total > ReinvestmentGoal {
		return ReinvestmentGoal
	}
	return total
}

// SoldChronologically filters vehicles down to completed sales (sold status
// with a recorded sale price) ordered by sale date, oldest first. Ties and
// missing dates fall back to id order so replay stays deterministic.
func SoldChronologically(vehicles []Vehicle) []Vehicle {
	sold := make([]Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status == statusVehicleSold && v.SalePrice != nil {
			sold = append(sold, v)
		}
	}
	sort.SliceStable(sold, func(i, j int) bool {
		di, dj := saleDate(sold[i]), saleDate(sold[j])
		if di.Equal(dj) {
			return sold[i].ID < sold[j].ID
		}
		return di.Before(dj)
	})
	return sold
}

func saleDate(v Vehicle) time.Time {
	if v.SaleDate == nil {
		return time.Time{}
	}
	return *v.SaleDate
}
