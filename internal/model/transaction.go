package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType classifies transaction log records.
type TxType string

const (
	TxWithdraw    TxType = "Withdraw"
	TxDeposit     TxType = "Deposit"
	TxTransferOut TxType = "Transfer-Out"
	TxTransferIn  TxType = "Transfer-In"
	TxStatement   TxType = "Statement"
	TxPinChange   TxType = "PinChange"
)

// Valid reports whether t is a known record type.
func (t TxType) Valid() bool {
	switch t {
	case TxWithdraw, TxDeposit, TxTransferOut, TxTransferIn, TxStatement, TxPinChange:
		return true
	}
	return false
}

// Marker reports whether records of this type carry no money movement.
func (t TxType) Marker() bool {
	return t == TxStatement || t == TxPinChange
}

// Sign returns +1 for credits, -1 for debits and 0 for markers.
func (t TxType) Sign() int {
	switch t {
	case TxDeposit, TxTransferIn:
		return 1
	case TxWithdraw, TxTransferOut:
		return -1
	}
	return 0
}

// TransactionRecord is one append-only entry in the transaction log.
type TransactionRecord struct {
	ID           string // ULID
	Seq          int64  // insertion order, assigned by the store
	AccountID    string
	Type         TxType
	Amount       decimal.Decimal
	Counterparty string // other side of a transfer, empty otherwise
	Timestamp    time.Time
}

// Effect returns the signed balance change this record implies.
func (r TransactionRecord) Effect() decimal.Decimal {
	return r.Amount.Mul(decimal.NewFromInt(int64(r.Type.Sign())))
}
