package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedRecord is matched by every MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a row the core cannot interpret.
// It is not a validation error: well-formed uploads never produce one.
type MalformedRecordError struct {
	Row       int
	TrxNumber string
	Field     string
	Value     string
	Err       error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("row %d: invalid %s %q", e.Row, e.Field, e.Value)
	if e.TrxNumber != "" {
		msg += fmt.Sprintf(" (TRX_NUMBER %s)", e.TrxNumber)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecord}
	}
	return []error{ErrMalformedRecord, e.Err}
}

// Partition is the split of a record set into invoices and a payment pool.
type Partition struct {
	Invoices []Invoice // Input order
	Payments []Payment // Input order
}

// Pool returns a fresh pool over the partition's payments.
func (p *Partition) Pool() *Pool {
	return NewPool(p.Payments)
}

// PartitionRecords classifies records by CLASS and parses their amounts.
// Records with any other class are ignored.
func PartitionRecords(records []Record) (*Partition, error) {
	part := &Partition{}

	for _, rec := range records {
		class := strings.TrimSpace(rec.Class)
		if class != ClassInvoice && class != ClassPayment {
			continue
		}

		customer := strings.TrimSpace(rec.Customer)
		trx := strings.TrimSpace(rec.TrxNumber)
		if trx == "" {
			return nil, &MalformedRecordError{Row: rec.Row, Field: "TRX_NUMBER", Value: rec.TrxNumber}
		}
		if customer == "" {
			return nil, &MalformedRecordError{Row: rec.Row, TrxNumber: trx, Field: "CUSTOMER_NAME", Value: rec.Customer}
		}

		amount, err := parseAmount(rec.Amount)
		if err != nil {
			return nil, &MalformedRecordError{Row: rec.Row, TrxNumber: trx, Field: "INV_AMOUNT", Value: rec.Amount, Err: err}
		}

		if class == ClassInvoice {
			part.Invoices = append(part.Invoices, Invoice{Customer: customer, TrxID: trx, Amount: amount})
		} else {
			part.Payments = append(part.Payments, Payment{Customer: customer, TrxID: trx, Amount: amount})
		}
	}

	return part, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errors.New("amount is blank")
	}
	return decimal.NewFromString(s)
}
