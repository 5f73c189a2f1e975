// Package store persists accounts and the append-only transaction log in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/teller/internal/id"
	"github.com/cleared-dev/teller/internal/model"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Options tunes how the store is opened.
type Options struct {
	// BusyTimeout bounds how long a unit waits for another process's write lock.
	BusyTimeout time.Duration
	// Now overrides the clock used to stamp records.
	Now func() time.Time
}

// Store is the ledger store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	// _txlock=immediate takes the write lock at BEGIN, so a unit's reads
	// cannot go stale before its writes.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL",
		path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, unavailable("opening database", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, unavailable("creating schema", err)
	}
	return &Store{db: db, now: opts.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn as one atomic unit. Any error from fn rolls the unit back
// and is returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	tx := &Tx{tx: sqlTx, now: s.now}

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// Account reads one account outside of any unit.
func (s *Store) Account(ctx context.Context, accountID string) (model.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, selectAccount, accountID))
}

// AccountIDs lists every account id in ascending order.
func (s *Store) AccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, unavailable("listing accounts", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var accountID string
		if err := rows.Scan(&accountID); err != nil {
			return nil, unavailable("scanning account id", err)
		}
		ids = append(ids, accountID)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing accounts", err)
	}
	return ids, nil
}

// Transactions returns an account's records ordered by timestamp, then insertion.
func (s *Store) Transactions(ctx context.Context, accountID string) ([]model.TransactionRecord, error) {
	return queryTransactions(ctx, s.db, accountID)
}

// Tx is the handle passed to an Update unit.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// Now returns the store clock.
func (t *Tx) Now() time.Time {
	return t.now().UTC()
}

// Account reads an account inside the unit. Returns model.ErrNotFound if absent.
func (t *Tx) Account(ctx context.Context, accountID string) (model.Account, error) {
	return scanAccount(t.tx.QueryRowContext(ctx, selectAccount, accountID))
}

// InsertAccount adds a new account row. Returns model.ErrAlreadyExists on a duplicate id.
func (t *Tx) InsertAccount(ctx context.Context, a model.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.Now()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, pin_hash, balance, locked, failed_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.PinHash, a.Balance.String(), a.Locked, a.FailedAttempts, formatTime(a.CreatedAt),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return fmt.Errorf("inserting account %s: %w", a.ID, model.ErrAlreadyExists)
	}
	if err != nil {
		return unavailable("inserting account", err)
	}
	return nil
}

// SaveAccount writes the mutable fields of an existing account.
func (t *Tx) SaveAccount(ctx context.Context, a model.Account) error {
	if a.Balance.IsNegative() {
		return fmt.Errorf("saving account %s: negative balance %s: %w", a.ID, a.Balance, model.ErrInsufficientFunds)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET pin_hash = ?, balance = ?, locked = ?, failed_attempts = ?
		WHERE id = ?`,
		a.PinHash, a.Balance.String(), a.Locked, a.FailedAttempts, a.ID,
	)
	if err != nil {
		return unavailable("updating account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("updating account", err)
	}
	if n == 0 {
		return fmt.Errorf("updating account %s: %w", a.ID, model.ErrNotFound)
	}
	return nil
}

// Append writes a record to the log, stamping its ID, timestamp and sequence.
func (t *Tx) Append(ctx context.Context, rec model.TransactionRecord) (model.TransactionRecord, error) {
	if !rec.Type.Valid() {
		return rec, fmt.Errorf("appending record: unknown type %q", rec.Type)
	}
	rec.Timestamp = t.Now()
	recID, err := id.New(rec.Timestamp)
	if err != nil {
		return rec, err
	}
	rec.ID = recID

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, type, amount, counterparty, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AccountID, string(rec.Type), rec.Amount.String(), rec.Counterparty, formatTime(rec.Timestamp),
	)
	if err != nil {
		return rec, unavailable("appending record", err)
	}
	rec.Seq, err = res.LastInsertId()
	if err != nil {
		return rec, unavailable("appending record", err)
	}
	return rec, nil
}

// Transactions reads an account's records inside the unit.
func (t *Tx) Transactions(ctx context.Context, accountID string) ([]model.TransactionRecord, error) {
	return queryTransactions(ctx, t.tx, accountID)
}

const selectAccount = `
	SELECT id, pin_hash, balance, locked, failed_attempts, created_at
	FROM accounts WHERE id = ?`

func scanAccount(row *sql.Row) (model.Account, error) {
	var (
		a       model.Account
		balance string
		created string
	)
	err := row.Scan(&a.ID, &a.PinHash, &balance, &a.Locked, &a.FailedAttempts, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, unavailable("reading account", err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return model.Account{}, fmt.Errorf("account %s: parsing balance %q: %w", a.ID, balance, err)
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", a.ID, err)
	}
	return a, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTransactions(ctx context.Context, q querier, accountID string) ([]model.TransactionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT seq, id, account_id, type, amount, counterparty, timestamp
		FROM transactions WHERE account_id = ?
		ORDER BY timestamp, seq`, accountID)
	if err != nil {
		return nil, unavailable("querying transactions", err)
	}
	defer rows.Close()

	var recs []model.TransactionRecord
	for rows.Next() {
		var (
			r      model.TransactionRecord
			typ    string
			amount string
			ts     string
		)
		if err := rows.Scan(&r.Seq, &r.ID, &r.AccountID, &typ, &amount, &r.Counterparty, &ts); err != nil {
			return nil, unavailable("scanning transaction", err)
		}
		r.Type = model.TxType(typ)
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("record %s: parsing amount %q: %w", r.ID, amount, err)
		}
		if r.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("querying transactions", err)
	}
	return recs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
