package receivable

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CreditCheck is the advisory outcome of checking a new charge against a
// customer's credit limit. It never blocks invoice creation.
type CreditCheck struct {
	Valid          bool                `json:"valid"`
	Warning        bool                `json:"warning"`
	CreditLimit    decimal.NullDecimal `json:"credit_limit"`
	CurrentUsed    decimal.Decimal     `json:"current_used"`
	ProjectedUsed  decimal.Decimal     `json:"projected_used"`
	UtilizationPct decimal.Decimal     `json:"utilization_pct"`
	Message        string              `json:"message,omitempty"`
}

// Breached reports whether the projected usage is above a set limit
func (c CreditCheck) Breached() bool {
	return !c.Valid
}

// CheckCredit projects the customer's usage after adding amount.
// exclude is subtracted from current usage, for re-checking an edited invoice.
func CheckCredit(c *Customer, amount, exclude decimal.Decimal, watchlistPct int) CreditCheck {
	current := c.OutstandingAmount.Sub(exclude)
	projected := current.Add(amount)
	check := CreditCheck{
		Valid:         true,
		CreditLimit:   c.CreditLimit,
		CurrentUsed:   current,
		ProjectedUsed: projected,
	}
	if !c.HasCreditLimit() {
		check.UtilizationPct = decimal.Zero
		return check
	}

	limit := c.CreditLimit.Decimal
	check.UtilizationPct = CreditUtilization(projected, c.CreditLimit).Round(2)

	if projected.GreaterThan(limit) {
		check.Valid = false
		check.Warning = true
		check.Message = fmt.Sprintf("this invoice would exceed the credit limit of %s; projected usage %s (%s%%)",
			limit.StringFixed(2), projected.StringFixed(2), check.UtilizationPct.StringFixed(0))
		return check
	}
	if check.UtilizationPct.GreaterThanOrEqual(decimal.NewFromInt(int64(watchlistPct))) {
		check.Warning = true
		check.Message = fmt.Sprintf("credit utilization will be %s%% (warning threshold %d%%)",
			check.UtilizationPct.StringFixed(0), watchlistPct)
	}
	return check
}
