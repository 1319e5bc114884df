package costs

import (
	"errors"
	"fmt"
	"time"
)

// Source distinguishes how a ledger entry came to exist.
type Source string

const (
	// SourceManual is an operator-entered cost, usually with a receipt.
	SourceManual Source = "manual"
	// SourceAutoShipment is synthesized from a shipment's aggregate cost
	// fields and cannot be deleted on its own.
	SourceAutoShipment Source = "auto_shipment"
)

// Categories mirrored from shipment aggregate fields.
const (
	CategoryGroundTransport = "ground_transport"
	CategoryCustomsBroker   = "customs_broker"
	CategoryOceanFreight    = "ocean_freight"
	CategoryImportFees      = "import_fees"
)

// Cost is a discrete money event, optionally tied to exactly one of a
// vehicle or a shipment.
type Cost struct {
	ID         int64
	Category   string
	Amount     float64
	IncurredAt time.Time
	VehicleID  *int64
	ShipmentID *int64
	Source     Source
	Locked     bool
	ReceiptURL string
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter narrows cost listings.
type Filter struct {
	VehicleID  *int64
	ShipmentID *int64
}

// ShipmentCosts carries a shipment's aggregate cost fields for mirroring
// into auto_shipment ledger entries.
type ShipmentCosts struct {
	ShipmentID      int64
	GroundTransport float64
	CustomsBroker   float64
	OceanFreight    float64
	ImportFees      float64
}

// ErrLocked is the sentinel for any locked-ledger rejection.
var ErrLocked = errors.New("costs: ledger entry locked")

// ErrAutoManaged rejects direct mutation of auto_shipment entries.
var ErrAutoManaged = errors.New("costs: entry is managed by its shipment")

// ErrAmbiguousLink rejects costs pointing at both a vehicle and a shipment.
var ErrAmbiguousLink = errors.New("costs: entry may reference a vehicle or a shipment, not both")

// ErrInvalidAmount indicates a non-positive amount.
var ErrInvalidAmount = errors.New("costs: amount must be > 0")

// LockedError reports which shipment's customs clearance froze the entry.
type LockedError struct {
	ShipmentID int64
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("costs: ledger locked by customs clearance of shipment %d", e.ShipmentID)
}

// Is makes errors.Is(err, ErrLocked) match.
func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}
