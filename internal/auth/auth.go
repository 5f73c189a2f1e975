// Package auth verifies PINs with a bounded number of attempts and locks
// accounts that exhaust them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cleared-dev/teller/internal/model"
	"github.com/cleared-dev/teller/internal/pin"
	"github.com/cleared-dev/teller/internal/store"
)

// DefaultMaxAttempts is the number of consecutive failures that locks an account.
const DefaultMaxAttempts = 3

// State is the outcome of one login attempt.
type State int

const (
	StateAwaitingPin State = iota
	StateAuthenticated
	StateLocked
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateAwaitingPin:
		return "awaiting-pin"
	case StateAuthenticated:
		return "authenticated"
	case StateLocked:
		return "locked"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result describes where an attempt left the account.
type Result struct {
	State     State
	Account   model.Account // set when Authenticated
	Remaining int           // set when AwaitingPin
	Reason    error         // set when Rejected
}

// Err maps a non-authenticated result to the login error taxonomy.
func (r Result) Err() error {
	switch r.State {
	case StateAuthenticated:
		return nil
	case StateAwaitingPin:
		return &model.InvalidPinError{Remaining: r.Remaining}
	case StateLocked:
		return model.ErrLocked
	default:
		return r.Reason
	}
}

// Authenticator checks PINs against stored verifiers.
type Authenticator struct {
	store       *store.Store
	verifier    pin.Verifier
	maxAttempts int
	log         *slog.Logger
}

// New creates an Authenticator. maxAttempts <= 0 means DefaultMaxAttempts.
func New(s *store.Store, v pin.Verifier, maxAttempts int, log *slog.Logger) *Authenticator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{store: s, verifier: v, maxAttempts: maxAttempts, log: log}
}

// MaxAttempts returns the configured attempt budget.
func (a *Authenticator) MaxAttempts() int {
	return a.maxAttempts
}

// Attempt checks one PIN for accountID. The failed-attempt counter and lock
// flag are updated in the same unit as the read. The returned error is
// non-nil only for store failures; rule outcomes are reported via Result.
func (a *Authenticator) Attempt(ctx context.Context, accountID, candidate string) (Result, error) {
	var (
		res        Result
		justLocked bool
	)
	err := a.store.Update(ctx, func(tx *store.Tx) error {
		acct, err := tx.Account(ctx, accountID)
		if errors.Is(err, model.ErrNotFound) {
			res = Result{State: StateRejected, Reason: model.ErrNotFound}
			return nil
		}
		if err != nil {
			return err
		}

		// A locked account never consumes an attempt.
		if acct.Locked {
			res = Result{State: StateLocked}
			return nil
		}

		ok, err := a.verifier.Verify(acct.PinHash, candidate)
		if err != nil {
			return fmt.Errorf("verifying pin for %s: %w", accountID, err)
		}

		if ok {
			if acct.FailedAttempts != 0 {
				acct.FailedAttempts = 0
				if err := tx.SaveAccount(ctx, acct); err != nil {
					return err
				}
			}
			res = Result{State: StateAuthenticated, Account: acct}
			return nil
		}

		acct.FailedAttempts++
		remaining := a.maxAttempts - acct.FailedAttempts
		if remaining <= 0 {
			acct.Locked = true
			justLocked = true
			res = Result{State: StateLocked}
		} else {
			res = Result{State: StateAwaitingPin, Remaining: remaining}
		}
		return tx.SaveAccount(ctx, acct)
	})
	if err != nil {
		return Result{}, err
	}

	switch {
	case justLocked:
		a.log.Warn("account locked after failed attempts", "account", accountID, "attempts", a.maxAttempts)
	case res.State == StateLocked:
		a.log.Info("login rejected: account locked", "account", accountID)
	case res.State == StateAwaitingPin:
		a.log.Info("invalid pin", "account", accountID, "remaining", res.Remaining)
	case res.State == StateRejected:
		a.log.Info("login rejected", "account", accountID, "reason", res.Reason)
	}
	return res, nil
}
