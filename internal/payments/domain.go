package payments

import (
	"errors"
	"time"
)

// Method enumerates how a partner share was paid out.
type Method string

const (
	MethodCash     Method = "cash"
	MethodWire     Method = "wire"
	MethodZelle    Method = "zelle"
	MethodCheck    Method = "check"
	MethodTransfer Method = "bank_transfer"
)

// Payment settles exactly one distribution entry.
type Payment struct {
	ID        int64
	EntryID   int64
	Partner   string
	Amount    float64
	Method    Method
	Reference string
	Note      string
	PaidAt    time.Time
	CreatedAt time.Time
}

// ErrEntryClosed rejects settling an entry twice.
var ErrEntryClosed = errors.New("payments: distribution entry already settled")

// ErrUnknownEntry indicates the distribution entry does not exist.
var ErrUnknownEntry = errors.New("payments: distribution entry not found")
