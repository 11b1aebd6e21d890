package allocation

import (
	"sort"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FIFO applies the payment to the earliest-due invoices first
type FIFO struct{}

// Name returns the strategy name
func (FIFO) Name() string { return NameFIFO }

// Scope is every open invoice: FIFO replans the whole open set
func (FIFO) Scope(open []OpenInvoice) []uuid.UUID {
	ids := make([]uuid.UUID, len(open))
	for i, inv := range open {
		ids[i] = inv.ID
	}
	return ids
}

// Allocate walks invoices by ascending due date taking min(remaining, balance)
// from each until less than half a cent is left.
func (FIFO) Allocate(remaining decimal.Decimal, open []OpenInvoice) (Plan, error) {
	if err := checkRemaining(remaining); err != nil {
		return nil, err
	}

	sorted := make([]OpenInvoice, len(open))
	copy(sorted, open)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})

	plan := make(Plan, 0, len(sorted))
	for _, inv := range sorted {
		if remaining.LessThanOrEqual(shared.RoundingGuard) {
			break
		}
		if !inv.Balance.IsPositive() {
			continue
		}
		apply := shared.RoundMoney(decimal.Min(remaining, inv.Balance))
		if apply.LessThan(shared.RoundingGuard) {
			continue
		}
		plan = append(plan, Line{InvoiceID: inv.ID, Amount: apply})
		remaining = remaining.Sub(apply)
	}
	return plan, nil
}
