package ledger

import (
	"errors"
	"time"
)

// ReinvestmentGoal is the cumulative contribution at which the profit split
// switches from 60/20/20 to 50/50.
const ReinvestmentGoal = 150000.0

const (
	reinvestmentRate  = 0.6
	phaseSplitEach    = 0.2
	steadySplitEach   = 0.5
	statusVehicleSold = "sold"
)

// Partner identifies one of the two partners.
type Partner string

const (
	// PartnerDominick is the first partner.
	PartnerDominick Partner = "dominick"
	// PartnerTony is the second partner.
	PartnerTony Partner = "tony"
)

// EntryStatus tracks settlement of a partner's share.
type EntryStatus string

const (
	// EntryPending means the share has not been paid out yet.
	EntryPending EntryStatus = "pending"
	// EntryClosed means the share is settled and linked to a payment.
	EntryClosed EntryStatus = "closed"
)

// Vehicle is the slice of vehicle state the engines consume.
type Vehicle struct {
	ID            int64
	PurchasePrice float64
	TargetPrice   *float64
	MinimumPrice  *float64
	SalePrice     *float64
	Status        string
	ShipmentID    *int64
	SaleDate      *time.Time
}

// Cost is a ledger entry as seen by the engines. A cost references at most
// one of vehicle or shipment; both nil means an overhead entry that is never
// allocated.
type Cost struct {
	ID         int64
	Amount     float64
	VehicleID  *int64
	ShipmentID *int64
}

// Shipment identifies a transport batch for allocation purposes.
type Shipment struct {
	ID int64
}

// Split is the outcome of dividing a gross profit between the partners.
type Split struct {
	DominickShare      float64
	TonyShare          float64
	ReinvestmentAmount float64
	ReinvestmentPhase  bool
}

// Distribution is the persisted parent record of a single sale's split.
type Distribution struct {
	ID                     int64
	VehicleID              int64
	GrossProfit            float64
	TotalCost              float64
	SalePrice              float64
	ReinvestmentAmount     float64
	ReinvestmentPhase      bool
	CumulativeReinvestment float64
	SaleDate               time.Time
	CreatedAt              time.Time
}

// Entry is one partner's share of a distribution.
type Entry struct {
	ID             int64
	DistributionID int64
	Partner        Partner
	Amount         float64
	Status         EntryStatus
	PaymentID      *int64
}

// ErrAlreadyDistributed signals that a distribution exists for the vehicle.
// The unique constraint on vehicle_id converts the concurrent-sale race into
// this error instead of a silent duplicate.
var ErrAlreadyDistributed = errors.New("ledger: vehicle already distributed")

// ErrNotSold indicates the vehicle has not reached the sold state.
var ErrNotSold = errors.New("ledger: vehicle is not sold")

// ErrMissingSalePrice indicates a sold vehicle without a recorded sale price.
var ErrMissingSalePrice = errors.New("ledger: sale price not recorded")
