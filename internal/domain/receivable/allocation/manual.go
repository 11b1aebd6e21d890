package allocation

import (
	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Manual applies caller-chosen amounts verbatim once they pass validation.
// Any violation rejects the whole request; amounts are never clamped.
type Manual struct {
	Items []ManualItem
}

// Name returns the strategy name
func (Manual) Name() string { return NameManual }

// Scope is the invoices named by the items
func (m Manual) Scope([]OpenInvoice) []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Items))
	for i, item := range m.Items {
		ids[i] = item.InvoiceID
	}
	return ids
}

// Allocate validates the items against the open set and the remaining amount
func (m Manual) Allocate(remaining decimal.Decimal, open []OpenInvoice) (Plan, error) {
	if err := checkRemaining(remaining); err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]OpenInvoice, len(open))
	for _, inv := range open {
		byID[inv.ID] = inv
	}

	seen := make(map[uuid.UUID]struct{}, len(m.Items))
	plan := make(Plan, 0, len(m.Items))
	total := decimal.Zero
	for _, item := range m.Items {
		if item.Amount.IsNegative() {
			return nil, shared.NewValidationError("allocation amount cannot be negative")
		}
		if _, dup := seen[item.InvoiceID]; dup {
			return nil, shared.NewAllocationError("invoice %s appears more than once", item.InvoiceID)
		}
		seen[item.InvoiceID] = struct{}{}

		inv, ok := byID[item.InvoiceID]
		if !ok {
			return nil, shared.NewAllocationError("invoice %s is not open for this customer", item.InvoiceID)
		}
		amount := shared.RoundMoney(item.Amount)
		if amount.Sub(inv.Balance).GreaterThan(shared.MoneyTolerance) {
			return nil, shared.NewAllocationError("allocation %s exceeds balance %s on invoice %s",
				amount.StringFixed(2), inv.Balance.StringFixed(2), inv.Number)
		}
		total = total.Add(amount)
		plan = append(plan, Line{InvoiceID: inv.ID, Amount: amount})
	}

	if total.Sub(remaining).GreaterThan(shared.MoneyTolerance) {
		return nil, shared.NewAllocationError("total allocation %s exceeds available payment amount %s",
			total.StringFixed(2), remaining.StringFixed(2))
	}
	return plan, nil
}
