package model

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists        = errors.New("account already exists")
	ErrNotFound             = errors.New("account not found")
	ErrInvalidAccountID     = errors.New("invalid account id")
	ErrLocked               = errors.New("account locked")
	ErrSessionAlreadyActive = errors.New("logout required before switching accounts")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrRecipientNotFound    = errors.New("recipient account not found")
	ErrSameAccount          = errors.New("cannot transfer to the same account")
	ErrConfirmationMismatch = errors.New("pin confirmation does not match")
	ErrInvalidPin           = errors.New("invalid pin")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// InvalidPinError is returned by a failed login that still has attempts left.
type InvalidPinError struct {
	Remaining int
}

func (e *InvalidPinError) Error() string {
	return fmt.Sprintf("invalid pin: %d attempts remaining", e.Remaining)
}

// Unwrap lets errors.Is(err, ErrInvalidPin) match.
func (e *InvalidPinError) Unwrap() error {
	return ErrInvalidPin
}
