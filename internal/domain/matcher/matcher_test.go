package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Helper to create test invoice
func makeInvoice(customer, id, amount string) Invoice {
	return Invoice{Customer: customer, TrxID: id, Amount: d(amount)}
}

// Helper to create test payment
func makePayment(customer, id, amount string) Payment {
	return Payment{Customer: customer, TrxID: id, Amount: d(amount)}
}

func paymentIDs(rows []MatchRecord) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.PaymentTrxID
	}
	return ids
}

func TestMatcher_CombinationOfTwo_FullCoverage(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{makeInvoice("A", "INV1", "1000.00")}
	pool := NewPool([]Payment{
		makePayment("A", "PMT1", "500.00"),
		makePayment("A", "PMT2", "500.50"),
	})

	// Act
	rows := m.Run(invoices, pool)

	// Assert
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"PMT1", "PMT2"}, paymentIDs(rows))
	for _, r := range rows {
		assert.Equal(t, "INV1", r.InvoiceTrxID)
		assert.Equal(t, "A", r.Customer)
		assert.Equal(t, Coverage100, r.Coverage)
		assert.True(t, d("1000.00").Equal(r.InvoiceAmount))
	}
	assert.Equal(t, 0, pool.Len())
}

func TestMatcher_SinglePayment_DiscountedCoverage(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{makeInvoice("B", "INV2", "1000.00")}
	pool := NewPool([]Payment{makePayment("B", "PMT3", "880.00")})

	// Act
	rows := m.Run(invoices, pool)

	// Assert
	require.Len(t, rows, 1)
	assert.Equal(t, "PMT3", rows[0].PaymentTrxID)
	assert.Equal(t, Coverage88, rows[0].Coverage)
}

func TestMatcher_NoPaymentsForCustomer_Unmatched(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{makeInvoice("C", "INV3", "500.00")}
	pool := NewPool([]Payment{makePayment("Z", "PMT1", "500.00")})

	// Act
	rows := m.Run(invoices, pool)

	// Assert - Payment of another customer is never a candidate
	assert.Empty(t, rows)
	assert.Equal(t, 1, pool.Len())
}

func TestMatcher_SettlingSetLargerThanFive_Unmatched(t *testing.T) {
	// Arrange - six payments of 500 only sum to 3000 all together
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{makeInvoice("D", "INV4", "3000.00")}
	var payments []Payment
	for _, id := range []string{"P1", "P2", "P3", "P4", "P5", "P6"} {
		payments = append(payments, makePayment("D", id, "500.00"))
	}
	pool := NewPool(payments)

	// Act
	rows := m.Run(invoices, pool)

	// Assert
	assert.Empty(t, rows)
	assert.Equal(t, 6, pool.Len(), "Nothing should be consumed")
}

func TestMatcher_CombinationSizeCappedAtLimit(t *testing.T) {
	// Arrange - a config asking for six-payment subsets is still held to five
	config := DefaultConfig()
	config.MaxCombinationSize = 6
	m := NewMatcher(config)
	var payments []Payment
	for _, id := range []string{"P1", "P2", "P3", "P4", "P5", "P6"} {
		payments = append(payments, makePayment("D", id, "500.00"))
	}

	// Act
	_, ok := m.FindCombination(makeInvoice("D", "INV4", "3000.00"), payments)

	// Assert
	assert.False(t, ok)
}

func TestMatcher_EarlierInvoiceConsumesPayment(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{
		makeInvoice("E", "INV5", "200.00"),
		makeInvoice("E", "INV6", "200.00"),
	}
	pool := NewPool([]Payment{makePayment("E", "PMT9", "200.00")})

	// Act
	rows := m.Run(invoices, pool)

	// Assert
	require.Len(t, rows, 1)
	assert.Equal(t, "INV5", rows[0].InvoiceTrxID)
	assert.Equal(t, "PMT9", rows[0].PaymentTrxID)
	assert.Equal(t, Coverage100, rows[0].Coverage)
}

func TestMatcher_SinglePaymentCoveringBothTargets_Reports100(t *testing.T) {
	// For a small invoice one payment can be within tolerance of both targets
	// (10.00 and 8.80). The full target is checked first.
	m := NewMatcher(DefaultConfig())
	inv := makeInvoice("A", "INV1", "10.00")

	match, ok := m.FindSingle(inv, []Payment{makePayment("A", "P1", "9.50")})

	require.True(t, ok)
	assert.Equal(t, Coverage100, match.Coverage)
}

func TestMatcher_FindSingle_FirstQualifyingPaymentWins(t *testing.T) {
	// A discounted match earlier in pool order beats an exact one later on.
	m := NewMatcher(DefaultConfig())
	inv := makeInvoice("A", "INV1", "1000.00")
	available := []Payment{
		makePayment("A", "P1", "880.00"),
		makePayment("A", "P2", "1000.00"),
	}

	match, ok := m.FindSingle(inv, available)

	require.True(t, ok)
	assert.Equal(t, "P1", match.Payments[0].TrxID)
	assert.Equal(t, Coverage88, match.Coverage)
}

func TestMatcher_FindSingle_NoSearchForCloserPayment(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	inv := makeInvoice("A", "INV1", "100.00")
	available := []Payment{
		makePayment("A", "P1", "100.90"),
		makePayment("A", "P2", "100.00"),
	}

	match, ok := m.FindSingle(inv, available)

	require.True(t, ok)
	assert.Equal(t, "P1", match.Payments[0].TrxID)
}

func TestMatcher_SingleMatchSkipsCombinationSearch(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{makeInvoice("A", "INV1", "100.00")}
	pool := NewPool([]Payment{
		makePayment("A", "P1", "50.00"),
		makePayment("A", "P2", "50.00"),
		makePayment("A", "P3", "100.00"),
	})

	rows := m.Run(invoices, pool)

	require.Len(t, rows, 1)
	assert.Equal(t, "P3", rows[0].PaymentTrxID)
	assert.Equal(t, 2, pool.Len())
}

func TestMatcher_ToleranceBoundaryIsInclusive(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	t.Run("exactly one unit away matches", func(t *testing.T) {
		_, ok := m.FindSingle(makeInvoice("A", "I", "100.00"), []Payment{makePayment("A", "P", "101.00")})
		assert.True(t, ok)
	})

	t.Run("one cent beyond tolerance does not match", func(t *testing.T) {
		_, ok := m.FindSingle(makeInvoice("A", "I", "100.00"), []Payment{makePayment("A", "P", "101.01")})
		assert.False(t, ok)
	})

	t.Run("discounted boundary is inclusive too", func(t *testing.T) {
		// 88% of 1000.00 is 880.00
		match, ok := m.FindSingle(makeInvoice("A", "I", "1000.00"), []Payment{makePayment("A", "P", "879.00")})
		require.True(t, ok)
		assert.Equal(t, Coverage88, match.Coverage)
	})
}

func TestMatcher_GreedyOrderDependence(t *testing.T) {
	// The same payments settle different invoices depending on invoice order.
	payments := []Payment{
		makePayment("A", "P1", "60.00"),
		makePayment("A", "P2", "40.00"),
	}
	small := makeInvoice("A", "SMALL", "60.00")
	big := makeInvoice("A", "BIG", "100.00")
	m := NewMatcher(DefaultConfig())

	t.Run("small invoice first", func(t *testing.T) {
		rows := m.Run([]Invoice{small, big}, NewPool(payments))
		require.Len(t, rows, 1)
		assert.Equal(t, "SMALL", rows[0].InvoiceTrxID)
	})

	t.Run("big invoice first", func(t *testing.T) {
		rows := m.Run([]Invoice{big, small}, NewPool(payments))
		require.Len(t, rows, 2)
		assert.Equal(t, "BIG", rows[0].InvoiceTrxID)
		assert.Equal(t, "BIG", rows[1].InvoiceTrxID)
	})
}

func TestMatcher_SharedTrxIDAcrossCustomers_RemovedGlobally(t *testing.T) {
	// TRX_NUMBER is assumed globally unique. When it is not, consuming the id
	// for one customer also removes the other customer's payment.
	m := NewMatcher(DefaultConfig())
	invoices := []Invoice{
		makeInvoice("A", "INV-A", "100.00"),
		makeInvoice("B", "INV-B", "200.00"),
	}
	pool := NewPool([]Payment{
		makePayment("A", "DUP", "100.00"),
		makePayment("B", "DUP", "200.00"),
	})

	rows := m.Run(invoices, pool)

	require.Len(t, rows, 1)
	assert.Equal(t, "INV-A", rows[0].InvoiceTrxID)
	assert.Empty(t, pool.Available("B"))
}

func TestMatcher_EmptyInputs(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	rows := m.Run(nil, NewPool(nil))

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestMatcher_CustomConfig(t *testing.T) {
	// Arrange - Tighter tolerance, no combinations
	config := Config{
		Tolerance:          d("0.01"),
		DiscountRate:       d("0.90"),
		MaxCombinationSize: 1,
	}
	m := NewMatcher(config)

	t.Run("tolerance is honoured", func(t *testing.T) {
		_, ok := m.FindSingle(makeInvoice("A", "I", "100.00"), []Payment{makePayment("A", "P", "100.50")})
		assert.False(t, ok)
	})

	t.Run("discount label follows the rate", func(t *testing.T) {
		match, ok := m.FindSingle(makeInvoice("A", "I", "100.00"), []Payment{makePayment("A", "P", "90.00")})
		require.True(t, ok)
		assert.Equal(t, Coverage("90%"), match.Coverage)
	})

	t.Run("combinations disabled", func(t *testing.T) {
		_, ok := m.FindCombination(makeInvoice("A", "I", "100.00"), []Payment{
			makePayment("A", "P1", "50.00"),
			makePayment("A", "P2", "50.00"),
		})
		assert.False(t, ok)
	})
}

func TestMatcher_Reconcile(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	t.Run("partitions records and summarises the run", func(t *testing.T) {
		records := []Record{
			{Row: 2, Class: "INV", Customer: "A", TrxNumber: "INV1", Amount: "1000"},
			{Row: 3, Class: "PMT", Customer: "A", TrxNumber: "PMT1", Amount: "500"},
			{Row: 4, Class: "PMT", Customer: "A", TrxNumber: "PMT2", Amount: "500.5"},
			{Row: 5, Class: "INV", Customer: "B", TrxNumber: "INV2", Amount: "1000"},
			{Row: 6, Class: "PMT", Customer: "B", TrxNumber: "PMT3", Amount: "880"},
			{Row: 7, Class: "INV", Customer: "C", TrxNumber: "INV3", Amount: "500"},
			{Row: 8, Class: "ADJ", Customer: "C", TrxNumber: "ADJ1", Amount: "500"},
		}

		result, err := m.Reconcile(records)

		require.NoError(t, err)
		assert.Len(t, result.Matches, 3)
		s := result.Summary
		assert.Equal(t, 3, s.Invoices)
		assert.Equal(t, 3, s.Payments)
		assert.Equal(t, 2, s.MatchedInvoices)
		assert.Equal(t, 1, s.SingleMatches)
		assert.Equal(t, 1, s.CombinationMatches)
		assert.Equal(t, 1, s.FullCoverage)
		assert.Equal(t, 1, s.DiscountedCoverage)
		assert.Equal(t, 1, s.UnmatchedInvoices)
		assert.Equal(t, []string{"INV3"}, s.UnmatchedInvoiceIDs)
		assert.Equal(t, 3, s.ConsumedPayments)
	})

	t.Run("fails fast on an unparseable amount", func(t *testing.T) {
		records := []Record{
			{Row: 2, Class: "INV", Customer: "A", TrxNumber: "INV1", Amount: "abc"},
		}

		_, err := m.Reconcile(records)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})
}
