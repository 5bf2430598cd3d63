package matcher

import (
	"math"

	"github.com/shopspring/decimal"
)

// forEachCombination visits every size-r subset of amounts in lexicographic
// order over positions, passing the chosen positions and their running sum.
// Visiting stops as soon as visit returns true; the return value reports
// whether that happened.
func forEachCombination[T any](amounts []T, r int, zero T, add func(a, b T) T, visit func(idx []int, sum T) bool) bool {
	n := len(amounts)
	if r <= 0 || r > n {
		return false
	}

	idx := make([]int, r)

	var choose func(depth, start int, sum T) bool
	choose = func(depth, start int, sum T) bool {
		if depth == r {
			return visit(idx, sum)
		}
		// Leave room for the remaining r-depth-1 positions.
		for i := start; i <= n-(r-depth); i++ {
			idx[depth] = i
			if choose(depth+1, i+1, add(sum, amounts[i])) {
				return true
			}
		}
		return false
	}

	return choose(0, 0, zero)
}

// searchCombinations tries sizes 2..maxR in order and returns the positions
// of the first subset cover accepts.
func searchCombinations[T any](amounts []T, maxR int, zero T, add func(a, b T) T, cover func(sum T) Coverage) ([]int, Coverage, bool) {
	var (
		hit []int
		cov Coverage
	)
	for r := 2; r <= maxR; r++ {
		found := forEachCombination(amounts, r, zero, add, func(idx []int, sum T) bool {
			if cov = cover(sum); cov == CoverageNone {
				return false
			}
			hit = append([]int(nil), idx...)
			return true
		})
		if found {
			return hit, cov, true
		}
	}
	return nil, CoverageNone, false
}

func addInt64(a, b int64) int64 { return a + b }

const (
	// maxScale is the largest power of ten an int64 can hold.
	maxScale = 18

	// maxScaled bounds every scaled value so a sum of MaxCombinationLimit
	// amounts minus a target cannot overflow.
	maxScaled = math.MaxInt64 / (2 * (MaxCombinationLimit + 1))
)

var maxScaledDecimal = decimal.NewFromInt(maxScaled)

// scaledSearch is an exact integer image of one invoice's combination search.
// Amounts, targets and tolerance are all multiplied by 10^scale, where scale
// covers the finest fraction among them, so comparisons give the same answer
// as the decimal ones.
type scaledSearch struct {
	amounts    []int64
	full       int64
	discounted int64
	tolerance  int64
	label      Coverage
}

// newScaledSearch reports false when the values cannot be represented, in
// which case the caller searches with decimals.
func newScaledSearch(amounts []decimal.Decimal, t targets, tolerance decimal.Decimal, label Coverage) (*scaledSearch, bool) {
	var scale int32
	widen := func(v decimal.Decimal) {
		if e := v.Exponent(); -e > scale {
			scale = -e
		}
	}
	widen(t.full)
	widen(t.discounted)
	widen(tolerance)
	for _, a := range amounts {
		widen(a)
	}
	if scale > maxScale {
		return nil, false
	}

	toInt := func(v decimal.Decimal) (int64, bool) {
		shifted := v.Shift(scale)
		if shifted.Abs().GreaterThan(maxScaledDecimal) {
			return 0, false
		}
		return shifted.IntPart(), true
	}

	s := &scaledSearch{amounts: make([]int64, len(amounts)), label: label}
	var ok bool
	if s.full, ok = toInt(t.full); !ok {
		return nil, false
	}
	if s.discounted, ok = toInt(t.discounted); !ok {
		return nil, false
	}
	if s.tolerance, ok = toInt(tolerance); !ok {
		return nil, false
	}
	for i, a := range amounts {
		if s.amounts[i], ok = toInt(a); !ok {
			return nil, false
		}
	}
	return s, true
}

func within(sum, target, tolerance int64) bool {
	diff := sum - target
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// coverage mirrors Config.coverage: full target first, then discounted.
func (s *scaledSearch) coverage(sum int64) Coverage {
	if within(sum, s.full, s.tolerance) {
		return Coverage100
	}
	if within(sum, s.discounted, s.tolerance) {
		return s.label
	}
	return CoverageNone
}

// FindCombination searches subsets of 2..MaxCombinationSize available payments,
// smallest size first, for one whose sum covers the invoice.
//
// The first covering subset wins, even if a tighter one appears later.
// Invoices whose settling set is larger than MaxCombinationSize stay unmatched.
func (m *Matcher) FindCombination(inv Invoice, available []Payment) (*Match, bool) {
	n := len(available)
	maxR := min(m.config.MaxCombinationSize, MaxCombinationLimit, n)
	if maxR < 2 {
		return nil, false
	}

	t := m.config.targetsFor(inv)
	amounts := make([]decimal.Decimal, n)
	for i, p := range available {
		amounts[i] = p.Amount
	}

	var (
		idx   []int
		cov   Coverage
		found bool
	)
	if s, ok := newScaledSearch(amounts, t, m.config.Tolerance, m.config.discountLabel()); ok {
		idx, cov, found = searchCombinations(s.amounts, maxR, 0, addInt64, s.coverage)
	} else {
		idx, cov, found = searchCombinations(amounts, maxR, decimal.Zero, decimal.Decimal.Add,
			func(sum decimal.Decimal) Coverage { return m.config.coverage(sum, t) })
	}
	if !found {
		return nil, false
	}

	members := make([]Payment, len(idx))
	for k, i := range idx {
		members[k] = available[i]
	}
	return &Match{Invoice: inv, Payments: members, Coverage: cov}, true
}
