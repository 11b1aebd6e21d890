package receivable

import "github.com/shopspring/decimal"

// Aggregates are the derived customer totals
type Aggregates struct {
	Outstanding decimal.Decimal `json:"outstanding_amount"`
	Overdue     decimal.Decimal `json:"overdue_amount"`
	CreditUsed  decimal.Decimal `json:"credit_used"`
}

// ComputeAggregates recomputes the totals from scratch.
// Outstanding sums balances of open invoices, overdue sums OVERDUE balances.
func ComputeAggregates(invoices []*Invoice) Aggregates {
	outstanding, overdue := decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		if !inv.Status.IsOpen() {
			continue
		}
		outstanding = outstanding.Add(inv.BalanceAmount)
		if inv.Status == InvoiceStatusOverdue {
			overdue = overdue.Add(inv.BalanceAmount)
		}
	}
	return Aggregates{Outstanding: outstanding, Overdue: overdue, CreditUsed: outstanding}
}
