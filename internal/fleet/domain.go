package fleet

import (
	"errors"
	"time"
)

// Status enumerates the vehicle lifecycle.
type Status string

const (
	// StatusAcquired is the state at purchase.
	StatusAcquired Status = "acquired"
	// StatusInTransit covers ground and ocean legs.
	StatusInTransit Status = "in_transit"
	// StatusInStock means available for sale.
	StatusInStock Status = "in_stock"
	// StatusSold is reached exactly once and never reverts.
	StatusSold Status = "sold"
	// StatusInspection is a side state for vehicles under review.
	StatusInspection Status = "inspection"
	// StatusNotWorking is a side state for vehicles needing repair.
	StatusNotWorking Status = "not_working"
)

// allowedTransitions describes the forward chain plus the two side states.
// Sold is reachable only through MarkSold and is terminal.
var allowedTransitions = map[Status][]Status{
	StatusAcquired:   {StatusInTransit, StatusInspection, StatusNotWorking},
	StatusInTransit:  {StatusInStock, StatusInspection, StatusNotWorking},
	StatusInStock:    {StatusInspection, StatusNotWorking},
	StatusInspection: {StatusInStock, StatusNotWorking},
	StatusNotWorking: {StatusInStock, StatusInspection},
}

// Vehicle is a unit of inventory.
type Vehicle struct {
	ID            int64
	Year          int
	Make          string
	Model         string
	VIN           string
	PurchasePrice float64
	TargetPrice   *float64
	MinimumPrice  *float64
	SalePrice     *float64
	Status        Status
	ShipmentID    *int64
	SaleDate      *time.Time
	BuyerName     string
	BuyerContact  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ErrVINExists indicates a duplicate VIN.
var ErrVINExists = errors.New("fleet: vin already registered")

// ErrAlreadySold guards the terminal sale state.
var ErrAlreadySold = errors.New("fleet: vehicle already sold")

// ErrInvalidTransition rejects a status change outside the lifecycle.
var ErrInvalidTransition = errors.New("fleet: invalid status transition")

// ErrInvalidSalePrice indicates a missing or non-positive sale price.
var ErrInvalidSalePrice = errors.New("fleet: sale price must be > 0")

// ErrSoldImmutable rejects deleting a sold vehicle; its distribution record
// depends on it.
var ErrSoldImmutable = errors.New("fleet: sold vehicles cannot be deleted")

func transitionAllowed(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
