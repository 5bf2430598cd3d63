package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/invoice-matcher/internal/application/service"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/storage"
)

// PrintMatchSummary prints the result of an offline match
func PrintMatchSummary(w io.Writer, outcome *service.Outcome, output string) {
	s := outcome.Result.Summary

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Invoices=%d Payments=%d Matched=%d Unmatched=%d\n",
		s.Invoices, s.Payments, s.MatchedInvoices, s.UnmatchedInvoices)
	fmt.Fprintf(w, "Matches: Single=%d Combination=%d | Coverage: 100%%=%d Discounted=%d | Payments used=%d\n",
		s.SingleMatches, s.CombinationMatches, s.FullCoverage, s.DiscountedCoverage, s.ConsumedPayments)

	if len(s.UnmatchedInvoiceIDs) > 0 {
		fmt.Fprintln(w, "\nUnmatched invoices:")
		for _, id := range s.UnmatchedInvoiceIDs {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	}

	fmt.Fprintf(w, "\nWrote %d rows to %s\n", len(outcome.Result.Matches), output)
	if outcome.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", outcome.RunID)
	}
}

// PrintRuns prints a run history table
func PrintRuns(w io.Writer, result *storage.RunListResult) {
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-20s %-24s %-28s %-9s %-8s %-10s %s\n",
		"Started", "Status", "File", "Invoices", "Matched", "Unmatched", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 140))
	for _, run := range result.Runs {
		status := string(run.Status)
		if run.ErrorCode != "" {
			status += " (" + run.ErrorCode + ")"
		}
		fmt.Fprintf(w, "%-20s %-24s %-28s %-9d %-8d %-10d %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			run.Filename,
			run.Invoices,
			run.MatchedInvoices,
			run.UnmatchedInvoices,
			run.ID)
	}

	fmt.Fprintf(w, "\nShowing %d of %d runs\n", len(result.Runs), result.TotalCount)
}
