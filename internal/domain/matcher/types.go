package matcher

import (
	"github.com/shopspring/decimal"
)

// Record classes recognised by the partitioner.
const (
	ClassInvoice = "INV"
	ClassPayment = "PMT"
)

// MaxCombinationLimit bounds MaxCombinationSize. Subset counts grow with
// C(n, r), so larger settling sets are never searched.
const MaxCombinationLimit = 5

// Config holds matcher configuration
type Config struct {
	Tolerance          decimal.Decimal // Absolute currency units, inclusive (default: 1.00)
	DiscountRate       decimal.Decimal // Discounted coverage target (default: 0.88)
	MaxCombinationSize int             // Largest payment subset tried, at most MaxCombinationLimit (default: 5)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Tolerance:          decimal.RequireFromString("1.00"),
		DiscountRate:       decimal.RequireFromString("0.88"),
		MaxCombinationSize: MaxCombinationLimit,
	}
}

// Coverage labels how much of an invoice a match settles.
type Coverage string

const (
	CoverageNone Coverage = ""
	Coverage100  Coverage = "100%"
	Coverage88   Coverage = "88%"
)

// Record is one raw row of the uploaded ledger.
// Amount is kept as the cell text; it is parsed by Partition.
type Record struct {
	Row       int // 1-based spreadsheet row, for error messages
	Class     string
	Customer  string
	TrxNumber string
	Amount    string
}

// Invoice is an open invoice awaiting settlement.
type Invoice struct {
	Customer string
	TrxID    string
	Amount   decimal.Decimal
}

// Payment is an incoming payment that can settle invoices of the same customer.
type Payment struct {
	Customer string
	TrxID    string
	Amount   decimal.Decimal
}

// Match is a winning settlement for one invoice.
type Match struct {
	Invoice  Invoice
	Payments []Payment // Pool order
	Coverage Coverage
}

// Sum returns the total of the matched payment amounts.
func (m *Match) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range m.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// MatchRecord is one output row: an (invoice, payment) pair of a winning match.
type MatchRecord struct {
	InvoiceTrxID  string
	Customer      string
	InvoiceAmount decimal.Decimal
	PaymentTrxID  string
	PaymentAmount decimal.Decimal
	Coverage      Coverage
}

// Summary aggregates the outcome of one run.
type Summary struct {
	Invoices            int
	Payments            int
	MatchedInvoices     int
	SingleMatches       int
	CombinationMatches  int
	FullCoverage        int // Matches labelled 100%
	DiscountedCoverage  int // Matches labelled 88%
	UnmatchedInvoices   int
	ConsumedPayments    int
	UnmatchedInvoiceIDs []string
}

// Result is the output of Reconcile.
type Result struct {
	Matches []MatchRecord
	Summary Summary
}
