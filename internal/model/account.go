package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a row in the accounts table.
type Account struct {
	ID             string
	PinHash        string // opaque verifier, see pin.Verifier
	Balance        decimal.Decimal
	Locked         bool // one-way: false -> true
	FailedAttempts int  // consecutive failed logins, reset on success
	CreatedAt      time.Time
}
