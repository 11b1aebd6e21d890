// Package allocation holds the pure payment allocation strategies. A strategy
// turns a payment amount and the customer's open invoices into a plan; it
// never touches storage.
package allocation

import (
	"strings"
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Strategy names
const (
	NameFIFO   = "FIFO"
	NameManual = "MANUAL"
)

// OpenInvoice is an invoice offered to a strategy. Balance is the amount the
// current payment may still cover on it.
type OpenInvoice struct {
	ID      uuid.UUID
	Number  string
	DueDate time.Time
	Balance decimal.Decimal
}

// Line is one planned (invoice, amount) pair
type Line struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// Plan is the ordered output of a strategy
type Plan []Line

// Total sums the planned amounts
func (p Plan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p {
		total = total.Add(l.Amount)
	}
	return total
}

// Strategy allocates an amount across open invoices.
// Expected outcomes such as "nothing to allocate" are an empty plan;
// errors mean the request itself is unacceptable.
//
// Scope names the invoices whose allocation the plan replaces. Prior
// allocations of the same payment outside the scope are left alone.
type Strategy interface {
	Name() string
	Scope(open []OpenInvoice) []uuid.UUID
	Allocate(remaining decimal.Decimal, open []OpenInvoice) (Plan, error)
}

// ManualItem is a caller-chosen allocation
type ManualItem struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// Parse returns the strategy for name. Items are only used by MANUAL.
func Parse(name string, items []ManualItem) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", NameFIFO:
		return FIFO{}, nil
	case NameManual:
		if len(items) == 0 {
			return nil, shared.NewValidationError("manual allocation requires at least one item")
		}
		return Manual{Items: items}, nil
	default:
		return nil, shared.NewValidationError("unknown allocation strategy %q", name)
	}
}

func checkRemaining(remaining decimal.Decimal) error {
	if remaining.IsNegative() {
		return shared.NewValidationError("remaining amount cannot be negative: %s", remaining.String())
	}
	return nil
}
