package matcher

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IsValidCoverage reports whether amount lies within tolerance of target.
// The boundary is inclusive.
func IsValidCoverage(amount, target, tolerance decimal.Decimal) bool {
	return amount.Sub(target).Abs().LessThanOrEqual(tolerance)
}

// targets holds the two amounts an invoice can be settled against.
// They are derived once per invoice and never change.
type targets struct {
	full       decimal.Decimal
	discounted decimal.Decimal
}

func (c Config) targetsFor(inv Invoice) targets {
	return targets{
		full:       inv.Amount,
		discounted: inv.Amount.Mul(c.DiscountRate),
	}
}

// coverage checks the full target first, then the discounted one.
func (c Config) coverage(sum decimal.Decimal, t targets) Coverage {
	if IsValidCoverage(sum, t.full, c.Tolerance) {
		return Coverage100
	}
	if IsValidCoverage(sum, t.discounted, c.Tolerance) {
		return c.discountLabel()
	}
	return CoverageNone
}

// Coverage returns the label sum earns against inv, or CoverageNone.
func (c Config) Coverage(sum decimal.Decimal, inv Invoice) Coverage {
	return c.coverage(sum, c.targetsFor(inv))
}

func (c Config) discountLabel() Coverage {
	return Coverage(c.DiscountRate.Mul(hundred).String() + "%")
}
