// Package accounts creates and looks up ledger accounts.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/teller/internal/model"
	"github.com/cleared-dev/teller/internal/pin"
	"github.com/cleared-dev/teller/internal/store"
)

// Directory enforces account existence and uniqueness.
type Directory struct {
	store    *store.Store
	verifier pin.Verifier
	log      *slog.Logger
}

// NewDirectory creates a Directory backed by s.
func NewDirectory(s *store.Store, v pin.Verifier, log *slog.Logger) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{store: s, verifier: v, log: log}
}

// Exists reports whether an account with id is persisted.
func (d *Directory) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := d.Lookup(ctx, id)
	return ok, err
}

// Lookup returns the account with id, if any.
func (d *Directory) Lookup(ctx context.Context, id string) (model.Account, bool, error) {
	a, err := d.store.Account(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, err
	}
	return a, true, nil
}

// Create persists a new unlocked account with a zero balance.
func (d *Directory) Create(ctx context.Context, id, p string) (model.Account, error) {
	if strings.TrimSpace(id) == "" || id != strings.TrimSpace(id) {
		return model.Account{}, fmt.Errorf("creating account %q: %w", id, model.ErrInvalidAccountID)
	}
	if !pin.Valid(p) {
		return model.Account{}, fmt.Errorf("creating account %s: pin must be %d digits: %w", id, pin.Length, model.ErrInvalidPin)
	}

	hash, err := d.verifier.Hash(p)
	if err != nil {
		return model.Account{}, err
	}

	var created model.Account
	err = d.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.Account(ctx, id)
		if err == nil {
			return fmt.Errorf("creating account %s: %w", id, model.ErrAlreadyExists)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		created = model.Account{
			ID:        id,
			PinHash:   hash,
			Balance:   decimal.Zero,
			CreatedAt: tx.Now(),
		}
		return tx.InsertAccount(ctx, created)
	})
	if err != nil {
		return model.Account{}, err
	}

	d.log.Info("account created", "account", id)
	return created, nil
}

// IDs returns every account id in ascending order.
func (d *Directory) IDs(ctx context.Context) ([]string, error) {
	return d.store.AccountIDs(ctx)
}
