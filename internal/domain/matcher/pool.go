package matcher

import (
	"github.com/samber/lo"
)

// Pool is the set of payments not yet consumed in a run.
//
// Payments are grouped by customer and keep their input order within each
// group, which fixes the enumeration order of the matchers. A pool belongs to
// exactly one run and only ever shrinks.
type Pool struct {
	byCustomer map[string][]Payment
	// trxID -> customers holding at least one payment with that id
	owners map[string][]string
	size   int
}

// NewPool builds a pool from payments in input order.
func NewPool(payments []Payment) *Pool {
	p := &Pool{
		byCustomer: make(map[string][]Payment),
		owners:     make(map[string][]string),
	}
	for _, pay := range payments {
		p.add(pay)
	}
	return p
}

func (p *Pool) add(pay Payment) {
	p.byCustomer[pay.Customer] = append(p.byCustomer[pay.Customer], pay)
	if !lo.Contains(p.owners[pay.TrxID], pay.Customer) {
		p.owners[pay.TrxID] = append(p.owners[pay.TrxID], pay.Customer)
	}
	p.size++
}

// Available returns the customer's remaining payments in pool order.
// The returned slice must not be modified; Consume never writes into it.
func (p *Pool) Available(customer string) []Payment {
	return p.byCustomer[customer]
}

// Len returns the number of payments still available across all customers.
func (p *Pool) Len() int {
	return p.size
}

// Consume removes every payment carrying one of the given transaction ids.
//
// Removal is keyed on the id alone and spans all customers: if two customers
// share a TRX_NUMBER, consuming it for one makes it unavailable to the other.
// It returns the number of payments removed.
func (p *Pool) Consume(trxIDs ...string) int {
	removed := 0
	for _, id := range trxIDs {
		customers, ok := p.owners[id]
		if !ok {
			continue
		}
		for _, customer := range customers {
			before := p.byCustomer[customer]
			// lo.Reject allocates, so slices handed out by Available stay intact.
			after := lo.Reject(before, func(pay Payment, _ int) bool {
				return pay.TrxID == id
			})
			removed += len(before) - len(after)
			if len(after) == 0 {
				delete(p.byCustomer, customer)
			} else {
				p.byCustomer[customer] = after
			}
		}
		delete(p.owners, id)
	}
	p.size -= removed
	return removed
}
