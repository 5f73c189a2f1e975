package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/teller/internal/model"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "teller.db")
	s, err := Open(path, Options{Now: func() time.Time { return testTime }})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func insert(t *testing.T, s *Store, a model.Account) {
	t.Helper()
	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.InsertAccount(context.Background(), a)
	})
	require.NoError(t, err)
}

func TestSchemaCreated(t *testing.T) {
	_, path := newTestStore(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('accounts','transactions')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["accounts"])
	assert.True(t, found["transactions"])
}

func TestInsertAndReadAccount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	insert(t, s, model.Account{ID: "A1", PinHash: "hash", Balance: decimal.NewFromInt(120)})

	got, err := s.Account(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", got.ID)
	assert.Equal(t, "hash", got.PinHash)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(120)))
	assert.False(t, got.Locked)
	assert.Equal(t, 0, got.FailedAttempts)
	assert.True(t, got.CreatedAt.Equal(testTime))
}

func TestAccountNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Account(context.Background(), "X9")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInsertDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.InsertAccount(context.Background(), model.Account{ID: "A1", PinHash: "other"})
	})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestSaveAccount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	err := s.Update(ctx, func(tx *Tx) error {
		a, err := tx.Account(ctx, "A1")
		if err != nil {
			return err
		}
		a.Balance = decimal.NewFromInt(50)
		a.Locked = true
		a.FailedAttempts = 3
		return tx.SaveAccount(ctx, a)
	})
	require.NoError(t, err)

	got, err := s.Account(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)))
	assert.True(t, got.Locked)
	assert.Equal(t, 3, got.FailedAttempts)
}

func TestSaveAccountRejectsNegativeBalance(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	err := s.Update(ctx, func(tx *Tx) error {
		return tx.SaveAccount(ctx, model.Account{ID: "A1", PinHash: "hash", Balance: decimal.NewFromInt(-10)})
	})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
}

func TestSaveAccountMissing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		return tx.SaveAccount(ctx, model.Account{ID: "nobody"})
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx *Tx) error {
		a, err := tx.Account(ctx, "A1")
		if err != nil {
			return err
		}
		a.Balance = decimal.NewFromInt(100)
		if err := tx.SaveAccount(ctx, a); err != nil {
			return err
		}
		if _, err := tx.Append(ctx, model.TransactionRecord{AccountID: "A1", Type: model.TxDeposit, Amount: a.Balance}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Account(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	recs, err := s.Transactions(ctx, "A1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAppendOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	types := []model.TxType{model.TxDeposit, model.TxWithdraw, model.TxStatement}
	err := s.Update(ctx, func(tx *Tx) error {
		for _, typ := range types {
			if _, err := tx.Append(ctx, model.TransactionRecord{AccountID: "A1", Type: typ, Amount: decimal.NewFromInt(10)}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	recs, err := s.Transactions(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, types[i], r.Type, "same timestamp, insertion order")
		assert.True(t, r.Timestamp.Equal(testTime))
		assert.NotEmpty(t, r.ID)
	}
	assert.Less(t, recs[0].Seq, recs[1].Seq)
	assert.Less(t, recs[1].Seq, recs[2].Seq)
}

func TestAppendUnknownType(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	err := s.Update(ctx, func(tx *Tx) error {
		_, err := tx.Append(ctx, model.TransactionRecord{AccountID: "A1", Type: "Refund"})
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestTransactionsAreAppendOnly(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})
	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		_, err := tx.Append(ctx, model.TransactionRecord{AccountID: "A1", Type: model.TxDeposit, Amount: decimal.NewFromInt(10)})
		return err
	}))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`UPDATE transactions SET amount = '1000'`)
	assert.Error(t, err)
	_, err = db.Exec(`DELETE FROM transactions`)
	assert.Error(t, err)
}

func TestAccountIDs(t *testing.T) {
	s, _ := newTestStore(t)
	insert(t, s, model.Account{ID: "B2", PinHash: "hash"})
	insert(t, s, model.Account{ID: "A1", PinHash: "hash"})

	ids, err := s.AccountIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, ids)
}

func TestClosedStoreUnavailable(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Account(context.Background(), "A1")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	err = s.Update(context.Background(), func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestTimeFormatSortsLexically(t *testing.T) {
	a := formatTime(time.Date(2025, 1, 1, 0, 0, 5, 500_000_000, time.UTC))
	b := formatTime(time.Date(2025, 1, 1, 0, 0, 5, 450_000_000, time.UTC))
	c := formatTime(time.Date(2025, 1, 1, 0, 0, 6, 0, time.UTC))
	assert.Less(t, b, a)
	assert.Less(t, a, c)

	got, err := parseTime(a)
	require.NoError(t, err)
	assert.Equal(t, 500_000_000, got.Nanosecond())
}
