package users

import (
	"errors"
	"time"
)

// User is a dashboard account. The two partner accounts carry the partner
// key used by the distribution ledger; staff accounts leave it empty.
type User struct {
	ID           int64
	Email        string
	Name         string
	Partner      string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrEmailExists indicates a duplicate email.
var ErrEmailExists = errors.New("users: email already registered")

// ErrWrongPassword rejects a password change with a bad current password.
var ErrWrongPassword = errors.New("users: current password does not match")
