package receivable

import (
	"time"

	"github.com/shopspring/decimal"
)

// BrokenPromiseWindow is how far back broken promises count toward risk
const BrokenPromiseWindow = 90 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// RiskThresholds are the configured escalation thresholds
type RiskThresholds struct {
	HighRiskOverdueDays     int
	BrokenPromisesThreshold int
	WatchlistThresholdPct   int
}

// DefaultRiskThresholds mirrors DefaultSettings
func DefaultRiskThresholds() RiskThresholds {
	return DefaultSettings().RiskThresholds()
}

// RiskInputs are the facts the classifier decides on
type RiskInputs struct {
	MaxOverdueDays       int
	BrokenPromises90d    int
	CreditUtilizationPct decimal.Decimal
	OverdueAmount        decimal.Decimal
}

// ClassifyRisk assigns a tier. First match wins.
func ClassifyRisk(in RiskInputs, t RiskThresholds) RiskTier {
	if in.MaxOverdueDays >= t.HighRiskOverdueDays ||
		in.BrokenPromises90d >= t.BrokenPromisesThreshold ||
		in.CreditUtilizationPct.GreaterThanOrEqual(hundred) {
		return RiskHigh
	}
	if in.OverdueAmount.IsPositive() ||
		in.CreditUtilizationPct.GreaterThanOrEqual(decimal.NewFromInt(int64(t.WatchlistThresholdPct))) ||
		in.BrokenPromises90d > 0 {
		return RiskWatchlist
	}
	return RiskSafe
}

// MaxOverdueDays returns the age of the oldest OVERDUE invoice, or 0 when none
// is overdue. Only the earliest due date matters, not the balance.
func MaxOverdueDays(invoices []*Invoice, now time.Time) int {
	maxDays := 0
	for _, inv := range invoices {
		if inv.Status != InvoiceStatusOverdue {
			continue
		}
		if days := DaysOverdue(inv.DueDate, now); days > maxDays {
			maxDays = days
		}
	}
	return maxDays
}

// CreditUtilization returns used / limit × 100.
// Unlimited credit is 0%. An explicit zero limit is 100% as soon as anything
// is owed.
func CreditUtilization(used decimal.Decimal, limit decimal.NullDecimal) decimal.Decimal {
	if !limit.Valid {
		return decimal.Zero
	}
	if !limit.Decimal.IsPositive() {
		if used.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return used.Div(limit.Decimal).Mul(hundred)
}

// CountBrokenSince counts BROKEN promises resolved at or after since
func CountBrokenSince(promises []*PromiseDate, since time.Time) int {
	n := 0
	for _, p := range promises {
		if p.Status == PromiseStatusBroken && p.ResolvedAt != nil && !p.ResolvedAt.Before(since) {
			n++
		}
	}
	return n
}
