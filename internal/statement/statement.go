// Package statement reads account history from the ledger.
package statement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/teller/internal/model"
)

// Statement is an account's balance together with its ordered history.
type Statement struct {
	AccountID   string
	Balance     decimal.Decimal
	GeneratedAt time.Time
	Records     []model.TransactionRecord // oldest first
}

// Source is the read side of the ledger store.
type Source interface {
	Account(ctx context.Context, id string) (model.Account, error)
	Transactions(ctx context.Context, accountID string) ([]model.TransactionRecord, error)
}

// Reader produces statements without writing to the log.
type Reader struct {
	src Source
	now func() time.Time
}

// NewReader creates a Reader over src.
func NewReader(src Source) *Reader {
	return &Reader{src: src, now: time.Now}
}

// History returns an account's records ordered oldest to newest.
func (r *Reader) History(ctx context.Context, accountID string) ([]model.TransactionRecord, error) {
	if _, err := r.src.Account(ctx, accountID); err != nil {
		return nil, err
	}
	return r.src.Transactions(ctx, accountID)
}

// Read returns the current balance and history of accountID.
func (r *Reader) Read(ctx context.Context, accountID string) (Statement, error) {
	acct, err := r.src.Account(ctx, accountID)
	if err != nil {
		return Statement{}, err
	}
	recs, err := r.src.Transactions(ctx, accountID)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		AccountID:   acct.ID,
		Balance:     acct.Balance,
		GeneratedAt: r.now().UTC(),
		Records:     recs,
	}, nil
}

// Totals sums credits and debits across records. Markers are ignored.
func Totals(recs []model.TransactionRecord) (credits, debits decimal.Decimal) {
	credits, debits = decimal.Zero, decimal.Zero
	for _, rec := range recs {
		switch rec.Type.Sign() {
		case 1:
			credits = credits.Add(rec.Amount)
		case -1:
			debits = debits.Add(rec.Amount)
		}
	}
	return credits, debits
}
