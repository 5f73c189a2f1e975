package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/teller/internal/model"
)

// Header is the CSV header for exported statements.
const Header = "id,seq,timestamp,account_id,type,amount,counterparty"

const (
	numFields       = 7
	colID           = 0
	colSeq          = 1
	colTimestamp    = 2
	colAccountID    = 3
	colType         = 4
	colAmount       = 5
	colCounterparty = 6
)

// MarshalRecord converts a record to a CSV row.
func MarshalRecord(r model.TransactionRecord) []string {
	row := make([]string, numFields)
	row[colID] = r.ID
	row[colSeq] = strconv.FormatInt(r.Seq, 10)
	row[colTimestamp] = r.Timestamp.UTC().Format(time.RFC3339Nano)
	row[colAccountID] = r.AccountID
	row[colType] = string(r.Type)
	row[colAmount] = r.Amount.String()
	row[colCounterparty] = r.Counterparty
	return row
}

// UnmarshalRecord converts a CSV row to a record.
func UnmarshalRecord(row []string) (model.TransactionRecord, error) {
	if len(row) != numFields {
		return model.TransactionRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	seq, err := strconv.ParseInt(row[colSeq], 10, 64)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing seq %q: %w", row[colSeq], err)
	}
	ts, err := time.Parse(time.RFC3339Nano, row[colTimestamp])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing timestamp %q: %w", row[colTimestamp], err)
	}
	typ := model.TxType(row[colType])
	if !typ.Valid() {
		return model.TransactionRecord{}, fmt.Errorf("unknown type %q", row[colType])
	}
	amount, err := decimal.NewFromString(row[colAmount])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
	}

	return model.TransactionRecord{
		ID:           row[colID],
		Seq:          seq,
		Timestamp:    ts,
		AccountID:    row[colAccountID],
		Type:         typ,
		Amount:       amount,
		Counterparty: row[colCounterparty],
	}, nil
}

// WriteCSV writes a header followed by one row per record.
func WriteCSV(w io.Writer, recs []model.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range recs {
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a statement written by WriteCSV.
func ReadCSV(r io.Reader) ([]model.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var recs []model.TransactionRecord
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
