// Package teller holds the authenticated session and the balance-affecting
// operations it allows. Only one session is active per Teller.
package teller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/teller/internal/accounts"
	"github.com/cleared-dev/teller/internal/auth"
	"github.com/cleared-dev/teller/internal/model"
	"github.com/cleared-dev/teller/internal/pin"
	"github.com/cleared-dev/teller/internal/statement"
	"github.com/cleared-dev/teller/internal/store"
)

// DefaultDenomination is the smallest accepted deposit/withdrawal increment.
const DefaultDenomination = 10

// Options configures a Teller.
type Options struct {
	Denomination int64 // default DefaultDenomination
	MaxAttempts  int   // default auth.DefaultMaxAttempts
	Logger       *slog.Logger
}

// Session is the handle returned by Login. Pass it to every operation.
type Session struct {
	accountID string
	pinHash   string
	started   time.Time
}

// AccountID returns the account this session is bound to.
func (s *Session) AccountID() string {
	return s.accountID
}

// Started returns when the session logged in.
func (s *Session) Started() time.Time {
	return s.started
}

// Teller runs the session state machine against the ledger store.
type Teller struct {
	store    *store.Store
	dir      *accounts.Directory
	auth     *auth.Authenticator
	reader   *statement.Reader
	verifier pin.Verifier
	unit     decimal.Decimal
	log      *slog.Logger

	mu     sync.Mutex
	active *Session
}

// New creates a Teller over s.
func New(s *store.Store, v pin.Verifier, opts Options) *Teller {
	if opts.Denomination <= 0 {
		opts.Denomination = DefaultDenomination
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Teller{
		store:    s,
		dir:      accounts.NewDirectory(s, v, log),
		auth:     auth.New(s, v, opts.MaxAttempts, log),
		reader:   statement.NewReader(s),
		verifier: v,
		unit:     decimal.NewFromInt(opts.Denomination),
		log:      log,
	}
}

// Directory exposes account creation and lookup.
func (t *Teller) Directory() *accounts.Directory {
	return t.dir
}

// CreateAccount registers a new account with a zero balance.
func (t *Teller) CreateAccount(ctx context.Context, id, p string) error {
	_, err := t.dir.Create(ctx, id, p)
	return err
}

// Login authenticates id with p and makes the resulting session active.
// Fails with model.ErrSessionAlreadyActive while another session is active.
func (t *Teller) Login(ctx context.Context, id, p string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return nil, model.ErrSessionAlreadyActive
	}

	res, err := t.auth.Attempt(ctx, id, p)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", id, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("login %s: %w", id, err)
	}

	t.active = &Session{
		accountID: res.Account.ID,
		pinHash:   res.Account.PinHash,
		started:   time.Now(),
	}
	t.log.Info("login", "account", id)
	return t.active, nil
}

// Logout ends h if it is the active session. Safe to call repeatedly.
func (t *Teller) Logout(h *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h != nil && h == t.active {
		t.active = nil
		t.log.Info("logout", "account", h.accountID)
	}
}

// Active returns the active session, if any.
func (t *Teller) Active() (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.active != nil
}

func (t *Teller) require(h *Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h == nil || h != t.active {
		return model.ErrNotAuthenticated
	}
	return nil
}

func (t *Teller) checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Mod(t.unit).IsZero() {
		return fmt.Errorf("amount %s must be a positive multiple of %s: %w", amount, t.unit, model.ErrInvalidAmount)
	}
	return nil
}

// Snapshot returns the session's account id and its persisted balance.
func (t *Teller) Snapshot(ctx context.Context, h *Session) (string, decimal.Decimal, error) {
	if err := t.require(h); err != nil {
		return "", decimal.Zero, err
	}
	acct, err := t.store.Account(ctx, h.accountID)
	if err != nil {
		return "", decimal.Zero, err
	}
	return acct.ID, acct.Balance, nil
}

// Withdraw debits amount from the session's account and returns the new balance.
func (t *Teller) Withdraw(ctx context.Context, h *Session, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := t.require(h); err != nil {
		return decimal.Zero, err
	}
	if err := t.checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := t.store.Update(ctx, func(tx *store.Tx) error {
		acct, err := tx.Account(ctx, h.accountID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(acct.Balance) {
			return fmt.Errorf("withdraw %s from balance %s: %w", amount, acct.Balance, model.ErrInsufficientFunds)
		}
		acct.Balance = acct.Balance.Sub(amount)
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		if _, err := tx.Append(ctx, model.TransactionRecord{AccountID: acct.ID, Type: model.TxWithdraw, Amount: amount}); err != nil {
			return err
		}
		balance = acct.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	t.log.Info("withdraw", "account", h.accountID, "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

// Deposit credits amount to the session's account and returns the new balance.
func (t *Teller) Deposit(ctx context.Context, h *Session, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := t.require(h); err != nil {
		return decimal.Zero, err
	}
	if err := t.checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := t.store.Update(ctx, func(tx *store.Tx) error {
		acct, err := tx.Account(ctx, h.accountID)
		if err != nil {
			return err
		}
		acct.Balance = acct.Balance.Add(amount)
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		if _, err := tx.Append(ctx, model.TransactionRecord{AccountID: acct.ID, Type: model.TxDeposit, Amount: amount}); err != nil {
			return err
		}
		balance = acct.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	t.log.Info("deposit", "account", h.accountID, "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

// Transfer moves amount from the session's account to dest. Both balances
// and both log records are written in one unit.
func (t *Teller) Transfer(ctx context.Context, h *Session, dest string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := t.require(h); err != nil {
		return decimal.Zero, err
	}
	if err := t.checkAmount(amount); err != nil {
		return decimal.Zero, err
	}
	if dest == h.accountID {
		return decimal.Zero, model.ErrSameAccount
	}

	var balance decimal.Decimal
	err := t.store.Update(ctx, func(tx *store.Tx) error {
		src, err := tx.Account(ctx, h.accountID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(src.Balance) {
			return fmt.Errorf("transfer %s from balance %s: %w", amount, src.Balance, model.ErrInsufficientFunds)
		}
		dst, err := tx.Account(ctx, dest)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("transfer to %s: %w", dest, model.ErrRecipientNotFound)
		}
		if err != nil {
			return err
		}

		src.Balance = src.Balance.Sub(amount)
		dst.Balance = dst.Balance.Add(amount)
		if err := tx.SaveAccount(ctx, src); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, dst); err != nil {
			return err
		}
		if _, err := tx.Append(ctx, model.TransactionRecord{
			AccountID: src.ID, Type: model.TxTransferOut, Amount: amount, Counterparty: dst.ID,
		}); err != nil {
			return err
		}
		if _, err := tx.Append(ctx, model.TransactionRecord{
			AccountID: dst.ID, Type: model.TxTransferIn, Amount: amount, Counterparty: src.ID,
		}); err != nil {
			return err
		}
		balance = src.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	t.log.Info("transfer", "from", h.accountID, "to", dest, "amount", amount.String())
	return balance, nil
}

// ChangePin replaces the session account's PIN. newPin must be 4 digits,
// differ from the current PIN and equal confirmPin.
func (t *Teller) ChangePin(ctx context.Context, h *Session, newPin, confirmPin string) error {
	if err := t.require(h); err != nil {
		return err
	}
	if newPin != confirmPin {
		return model.ErrConfirmationMismatch
	}
	if !pin.Valid(newPin) {
		return fmt.Errorf("new pin must be %d digits: %w", pin.Length, model.ErrInvalidPin)
	}

	hash, err := t.verifier.Hash(newPin)
	if err != nil {
		return err
	}

	err = t.store.Update(ctx, func(tx *store.Tx) error {
		acct, err := tx.Account(ctx, h.accountID)
		if err != nil {
			return err
		}
		same, err := t.verifier.Verify(acct.PinHash, newPin)
		if err != nil {
			return err
		}
		if same {
			return fmt.Errorf("new pin matches the current pin: %w", model.ErrInvalidPin)
		}
		acct.PinHash = hash
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		_, err = tx.Append(ctx, model.TransactionRecord{AccountID: acct.ID, Type: model.TxPinChange, Amount: decimal.Zero})
		return err
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	h.pinHash = hash
	t.mu.Unlock()

	t.log.Info("pin changed", "account", h.accountID)
	return nil
}

// Statement returns the session account's balance and history, and logs a
// Statement marker record.
func (t *Teller) Statement(ctx context.Context, h *Session) (statement.Statement, error) {
	if err := t.require(h); err != nil {
		return statement.Statement{}, err
	}

	var st statement.Statement
	err := t.store.Update(ctx, func(tx *store.Tx) error {
		acct, err := tx.Account(ctx, h.accountID)
		if err != nil {
			return err
		}
		if _, err := tx.Append(ctx, model.TransactionRecord{AccountID: acct.ID, Type: model.TxStatement, Amount: decimal.Zero}); err != nil {
			return err
		}
		recs, err := tx.Transactions(ctx, acct.ID)
		if err != nil {
			return err
		}
		st = statement.Statement{
			AccountID:   acct.ID,
			Balance:     acct.Balance,
			GeneratedAt: tx.Now(),
			Records:     recs,
		}
		return nil
	})
	if err != nil {
		return statement.Statement{}, err
	}
	return st, nil
}

// History returns the session account's records without logging a marker.
func (t *Teller) History(ctx context.Context, h *Session) ([]model.TransactionRecord, error) {
	if err := t.require(h); err != nil {
		return nil, err
	}
	return t.reader.History(ctx, h.accountID)
}
