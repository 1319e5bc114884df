package ledger

import "math"

// LandedCosts computes the fully landed cost of every vehicle:
// purchase price + costs tied to the vehicle directly + a proportional share
// of the shipment-level costs not attributed to any single vehicle.
//
// The function is total: missing numerics count as zero and no input shape
// produces an error. The result is recomputed on every call and never cached;
// it is a pure function of its inputs.
func LandedCosts(vehicles []Vehicle, costs []Cost, shipments []Shipment) map[int64]float64 {
	shares := AllocatedShares(vehicles, costs, shipments)

	direct := make(map[int64]float64)
	for _, c := range costs {
		if c.VehicleID != nil {
			direct[*c.VehicleID] += c.Amount
		}
	}

	landed := make(map[int64]float64, len(vehicles))
	for _, v := range vehicles {
		landed[v.ID] = v.PurchasePrice + direct[v.ID] + shares[v.ID]
	}
	return landed
}

// AllocatedShares distributes each shipment's unattributed costs across its
// assigned vehicles, weighted by purchase price. When a shipment's purchase
// total is zero the cost is split equally instead. Shipments with no
// vehicles or no positive unattributed cost allocate nothing.
func AllocatedShares(vehicles []Vehicle, costs []Cost, shipments []Shipment) map[int64]float64 {
	members := make(map[int64][]Vehicle)
	for _, v := range vehicles {
		if v.ShipmentID != nil {
			members[*v.ShipmentID] = append(members[*v.ShipmentID], v)
		}
	}

	unattributed := make(map[int64]float64)
	for _, c := range costs {
		if c.ShipmentID != nil && c.VehicleID == nil {
			unattributed[*c.ShipmentID] += c.Amount
		}
	}

	shares := make(map[int64]float64)
	for _, s := range shipments {
		total := unattributed[s.ID]
		assigned := members[s.ID]
		if total <= 0 || len(assigned) == 0 {
			continue
		}
		var purchaseTotal float64
		for _, v := range assigned {
			purchaseTotal += v.PurchasePrice
		}
		for _, v := range assigned {
			if purchaseTotal > 0 {
				shares[v.ID] += total * (v.PurchasePrice / purchaseTotal)
			} else {
				shares[v.ID] += total / float64(len(assigned))
			}
		}
	}
	return shares
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
