package shipments

import (
	"errors"
	"time"
)

// Status enumerates the shipment lifecycle. The chain is strictly ordered;
// a shipment never moves backwards.
type Status string

const (
	StatusPlanned         Status = "planned"
	StatusInGroundTransit Status = "in_ground_transit"
	StatusAtPort          Status = "at_port"
	StatusOnVessel        Status = "on_vessel"
	StatusArrived         Status = "arrived"
	StatusCustomsCleared  Status = "customs_cleared"
	StatusCompleted       Status = "completed"
)

var statusRank = map[Status]int{
	StatusPlanned:         0,
	StatusInGroundTransit: 1,
	StatusAtPort:          2,
	StatusOnVessel:        3,
	StatusArrived:         4,
	StatusCustomsCleared:  5,
	StatusCompleted:       6,
}

// Shipment groups vehicles moving together and carries the aggregate cost
// fields mirrored into the cost ledger.
type Shipment struct {
	ID                  int64
	Reference           string
	Origin              string
	Destination         string
	Carrier             string
	Status              Status
	DepartureDate       *time.Time
	ArrivalDate         *time.Time
	GroundTransportCost float64
	CustomsBrokerFees   float64
	OceanFreightCost    float64
	ImportFeesCost      float64
	BillOfLadingURL     string
	CustomsDocsURL      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Cleared reports whether the customs lock has been applied.
func (s Shipment) Cleared() bool {
	return statusRank[s.Status] >= statusRank[StatusCustomsCleared]
}

// ErrInvalidTransition rejects a backwards move or an unknown status.
var ErrInvalidTransition = errors.New("shipments: invalid status transition")

// ErrClearanceRequired rejects entering customs_cleared through the plain
// status endpoint. ClearCustoms is the only way in because it also locks
// the cost ledger.
var ErrClearanceRequired = errors.New("shipments: customs clearance uses the clearance operation")

// ErrAlreadyCleared rejects clearing customs twice.
var ErrAlreadyCleared = errors.New("shipments: customs already cleared")

func transitionAllowed(from, to Status) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
