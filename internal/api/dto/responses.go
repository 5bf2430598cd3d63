package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response stamped with the current time.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RunResponse represents a processed upload in API responses.
type RunResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	StartedAt    string `json:"started_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Summary RunSummaryResponse `json:"summary"`
}

// RunSummaryResponse holds the matching counts of a run.
type RunSummaryResponse struct {
	Invoices            int      `json:"invoices"`
	Payments            int      `json:"payments"`
	MatchedInvoices     int      `json:"matched_invoices"`
	SingleMatches       int      `json:"single_matches"`
	CombinationMatches  int      `json:"combination_matches"`
	FullCoverage        int      `json:"full_coverage"`
	DiscountedCoverage  int      `json:"discounted_coverage"`
	UnmatchedInvoices   int      `json:"unmatched_invoices"`
	ConsumedPayments    int      `json:"consumed_payments"`
	UnmatchedInvoiceIDs []string `json:"unmatched_invoice_ids"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs       []RunResponse `json:"runs"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}
