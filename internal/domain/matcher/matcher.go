// Package matcher settles open invoices against incoming payments.
//
// The matcher uses greedy, order-dependent criteria:
//   - Invoices are processed one at a time in input order
//   - Only payments of the invoice's customer that are still in the pool are candidates
//   - A single payment is tried first, then subsets of 2..5 payments
//   - A sum covers an invoice when it lies within 1.00 of 100% or of 88% of the invoice amount
//   - Every matched payment leaves the pool for the rest of the run
//
// The result is first-fit, not an optimal assignment: reordering invoices can
// change which of them get matched.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	result, err := m.Reconcile(records)
//	for _, row := range result.Matches {
//		fmt.Println(row.InvoiceTrxID, row.PaymentTrxID, row.Coverage)
//	}
package matcher

// Matcher matches invoices with payments
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// FindSingle returns the first available payment that covers the invoice.
// Payments are tried in pool order and 100% is checked before 88% for each one;
// there is no search for a closer payment once one qualifies.
func (m *Matcher) FindSingle(inv Invoice, available []Payment) (*Match, bool) {
	t := m.config.targetsFor(inv)
	for _, p := range available {
		if cov := m.config.coverage(p.Amount, t); cov != CoverageNone {
			return &Match{Invoice: inv, Payments: []Payment{p}, Coverage: cov}, true
		}
	}
	return nil, false
}

// MatchInvoice tries a single payment, then a combination, against the
// customer's available payments. It does not touch the pool.
func (m *Matcher) MatchInvoice(inv Invoice, pool *Pool) (*Match, bool) {
	available := pool.Available(inv.Customer)
	if len(available) == 0 {
		return nil, false
	}
	if match, ok := m.FindSingle(inv, available); ok {
		return match, true
	}
	return m.FindCombination(inv, available)
}

// Run folds over invoices in order, consuming matched payments from pool.
// Rows come out in invoice order, then in member order within a combination.
//
// Run is sequential by contract: each match changes what later invoices see.
func (m *Matcher) Run(invoices []Invoice, pool *Pool) []MatchRecord {
	records, _ := m.run(invoices, pool)
	return records
}

func (m *Matcher) run(invoices []Invoice, pool *Pool) ([]MatchRecord, Summary) {
	summary := Summary{
		Invoices: len(invoices),
		Payments: pool.Len(),
	}
	records := make([]MatchRecord, 0)

	for _, inv := range invoices {
		match, ok := m.MatchInvoice(inv, pool)
		if !ok {
			summary.UnmatchedInvoices++
			summary.UnmatchedInvoiceIDs = append(summary.UnmatchedInvoiceIDs, inv.TrxID)
			continue
		}

		ids := make([]string, len(match.Payments))
		for i, p := range match.Payments {
			ids[i] = p.TrxID
			records = append(records, MatchRecord{
				InvoiceTrxID:  inv.TrxID,
				Customer:      inv.Customer,
				InvoiceAmount: inv.Amount,
				PaymentTrxID:  p.TrxID,
				PaymentAmount: p.Amount,
				Coverage:      match.Coverage,
			})
		}
		summary.ConsumedPayments += pool.Consume(ids...)

		summary.MatchedInvoices++
		if len(match.Payments) == 1 {
			summary.SingleMatches++
		} else {
			summary.CombinationMatches++
		}
		if match.Coverage == Coverage100 {
			summary.FullCoverage++
		} else {
			summary.DiscountedCoverage++
		}
	}

	return records, summary
}

// Reconcile partitions records, builds a fresh pool and runs the matcher.
// The only error it returns is a MalformedRecordError from partitioning.
func (m *Matcher) Reconcile(records []Record) (*Result, error) {
	part, err := PartitionRecords(records)
	if err != nil {
		return nil, err
	}
	return m.Match(part), nil
}

// Match runs the matcher over an already partitioned record set.
func (m *Matcher) Match(part *Partition) *Result {
	matches, summary := m.run(part.Invoices, part.Pool())
	return &Result{
		Matches: matches,
		Summary: summary,
	}
}
