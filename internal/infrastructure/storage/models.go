package storage

import (
	"encoding/json"
	"time"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the audit record of one processed upload. It holds counts only,
// never the ledger itself.
type Run struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`

	Invoices           int `json:"invoices"`
	Payments           int `json:"payments"`
	MatchedInvoices    int `json:"matched_invoices"`
	SingleMatches      int `json:"single_matches"`
	CombinationMatches int `json:"combination_matches"`
	FullCoverage       int `json:"full_coverage"`
	DiscountedCoverage int `json:"discounted_coverage"`
	UnmatchedInvoices  int `json:"unmatched_invoices"`
	ConsumedPayments   int `json:"consumed_payments"`

	UnmatchedInvoiceIDs []string `json:"unmatched_invoice_ids"`
	UnmatchedJSON       string   `json:"-"` // For DB storage

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// applySummary copies matcher counts onto the run
func (r *Run) applySummary(s matcher.Summary) {
	r.Invoices = s.Invoices
	r.Payments = s.Payments
	r.MatchedInvoices = s.MatchedInvoices
	r.SingleMatches = s.SingleMatches
	r.CombinationMatches = s.CombinationMatches
	r.FullCoverage = s.FullCoverage
	r.DiscountedCoverage = s.DiscountedCoverage
	r.UnmatchedInvoices = s.UnmatchedInvoices
	r.ConsumedPayments = s.ConsumedPayments
	r.UnmatchedInvoiceIDs = append([]string(nil), s.UnmatchedInvoiceIDs...)
}

// Summary rebuilds the matcher summary stored on the run
func (r *Run) Summary() matcher.Summary {
	return matcher.Summary{
		Invoices:            r.Invoices,
		Payments:            r.Payments,
		MatchedInvoices:     r.MatchedInvoices,
		SingleMatches:       r.SingleMatches,
		CombinationMatches:  r.CombinationMatches,
		FullCoverage:        r.FullCoverage,
		DiscountedCoverage:  r.DiscountedCoverage,
		UnmatchedInvoices:   r.UnmatchedInvoices,
		ConsumedPayments:    r.ConsumedPayments,
		UnmatchedInvoiceIDs: append([]string(nil), r.UnmatchedInvoiceIDs...),
	}
}

func encodeIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func decodeIDs(raw string) []string {
	ids := []string{}
	// Errors ignored; the column is informational
	_ = json.Unmarshal([]byte(raw), &ids)
	return ids
}
