// Package audit replays the transaction log and checks it against stored balances.
package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/teller/internal/model"
)

// Rule names a ledger invariant.
type Rule string

const (
	RuleBalance      Rule = "balance"      // replayed log equals stored balance
	RuleNonNegative  Rule = "non-negative" // running balance never below zero
	RuleAmount       Rule = "amount"       // money records positive, markers zero
	RuleOrder        Rule = "order"        // timestamps non-decreasing
	RuleTransferPair Rule = "transfer-pair"
	RuleUnknownType  Rule = "unknown-type"
)

// Violation describes a single invariant violation.
type Violation struct {
	Rule        Rule
	AccountID   string
	RecordID    string
	Description string
}

func (v Violation) Error() string {
	if v.RecordID == "" {
		return fmt.Sprintf("%s [%s]: %s", v.Rule, v.AccountID, v.Description)
	}
	return fmt.Sprintf("%s [%s %s]: %s", v.Rule, v.AccountID, v.RecordID, v.Description)
}

// Source is the read side of the ledger store.
type Source interface {
	AccountIDs(ctx context.Context) ([]string, error)
	Account(ctx context.Context, id string) (model.Account, error)
	Transactions(ctx context.Context, accountID string) ([]model.TransactionRecord, error)
}

// Account checks one account's records, oldest first, against its stored state.
func Account(acct model.Account, recs []model.TransactionRecord) []Violation {
	var errs []Violation
	add := func(rule Rule, recID, format string, args ...any) {
		errs = append(errs, Violation{Rule: rule, AccountID: acct.ID, RecordID: recID, Description: fmt.Sprintf(format, args...)})
	}

	running := decimal.Zero
	for i, r := range recs {
		if !r.Type.Valid() {
			add(RuleUnknownType, r.ID, "unknown type %q", r.Type)
			continue
		}

		if r.Type.Marker() {
			if !r.Amount.IsZero() {
				add(RuleAmount, r.ID, "%s record has amount %s", r.Type, r.Amount)
			}
		} else if !r.Amount.IsPositive() {
			add(RuleAmount, r.ID, "%s record has non-positive amount %s", r.Type, r.Amount)
		}

		if i > 0 && r.Timestamp.Before(recs[i-1].Timestamp) {
			add(RuleOrder, r.ID, "timestamp %s before previous %s", r.Timestamp, recs[i-1].Timestamp)
		}

		running = running.Add(r.Effect())
		if running.IsNegative() {
			add(RuleNonNegative, r.ID, "balance %s after %s", running, r.Type)
		}
	}

	if !running.Equal(acct.Balance) {
		add(RuleBalance, "", "log replays to %s, stored balance is %s", running, acct.Balance)
	}
	if acct.Balance.IsNegative() {
		add(RuleNonNegative, "", "stored balance %s", acct.Balance)
	}
	return errs
}

type transferKey struct {
	from, to string
	amount   string
}

// Transfers checks that every Transfer-Out has a matching Transfer-In on the
// counterparty and vice versa. logs maps account id to its records.
func Transfers(logs map[string][]model.TransactionRecord) []Violation {
	outs := make(map[transferKey][]model.TransactionRecord)
	ins := make(map[transferKey]int)

	for _, recs := range logs {
		for _, r := range recs {
			switch r.Type {
			case model.TxTransferOut:
				k := transferKey{from: r.AccountID, to: r.Counterparty, amount: r.Amount.String()}
				outs[k] = append(outs[k], r)
			case model.TxTransferIn:
				ins[transferKey{from: r.Counterparty, to: r.AccountID, amount: r.Amount.String()}]++
			}
		}
	}

	var errs []Violation
	keys := make([]transferKey, 0, len(outs)+len(ins))
	seen := make(map[transferKey]bool)
	for k := range outs {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range ins {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].amount < keys[j].amount
	})

	for _, k := range keys {
		nOut, nIn := len(outs[k]), ins[k]
		if nOut == nIn {
			continue
		}
		recID := ""
		if nOut > 0 {
			recID = outs[k][0].ID
		}
		errs = append(errs, Violation{
			Rule:        RuleTransferPair,
			AccountID:   k.from,
			RecordID:    recID,
			Description: fmt.Sprintf("%d transfer-out vs %d transfer-in of %s to %s", nOut, nIn, k.amount, k.to),
		})
	}
	return errs
}

// Ledger audits the given accounts, or every account when ids is empty.
// Transfer pairing is only checked when every account is audited.
func Ledger(ctx context.Context, src Source, ids ...string) ([]Violation, error) {
	all := len(ids) == 0
	if all {
		var err error
		if ids, err = src.AccountIDs(ctx); err != nil {
			return nil, err
		}
	}

	var errs []Violation
	logs := make(map[string][]model.TransactionRecord, len(ids))
	for _, id := range ids {
		acct, err := src.Account(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("auditing %s: %w", id, err)
		}
		recs, err := src.Transactions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("auditing %s: %w", id, err)
		}
		logs[id] = recs
		errs = append(errs, Account(acct, recs)...)
	}
	if all {
		errs = append(errs, Transfers(logs)...)
	}
	return errs, nil
}
