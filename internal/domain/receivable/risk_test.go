package receivable

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyRisk(t *testing.T) {
	th := DefaultRiskThresholds()

	tests := []struct {
		name string
		in   RiskInputs
		want RiskTier
	}{
		{
			name: "oldest overdue past threshold",
			in:   RiskInputs{MaxOverdueDays: 65, OverdueAmount: dec("100"), CreditUtilizationPct: dec("10")},
			want: RiskHigh,
		},
		{
			name: "recent overdue is watchlist",
			in:   RiskInputs{MaxOverdueDays: 10, OverdueAmount: dec("100"), CreditUtilizationPct: dec("50")},
			want: RiskWatchlist,
		},
		{
			name: "no overdue, low utilization",
			in:   RiskInputs{MaxOverdueDays: 0, OverdueAmount: decimal.Zero, CreditUtilizationPct: dec("50")},
			want: RiskSafe,
		},
		{
			name: "two broken promises regardless of age",
			in:   RiskInputs{BrokenPromises90d: 2, OverdueAmount: decimal.Zero, CreditUtilizationPct: decimal.Zero},
			want: RiskHigh,
		},
		{
			name: "one broken promise",
			in:   RiskInputs{BrokenPromises90d: 1, OverdueAmount: decimal.Zero, CreditUtilizationPct: decimal.Zero},
			want: RiskWatchlist,
		},
		{
			name: "at credit limit",
			in:   RiskInputs{OverdueAmount: decimal.Zero, CreditUtilizationPct: dec("100")},
			want: RiskHigh,
		},
		{
			name: "at watchlist threshold",
			in:   RiskInputs{OverdueAmount: decimal.Zero, CreditUtilizationPct: dec("80")},
			want: RiskWatchlist,
		},
		{
			name: "exactly at overdue days threshold",
			in:   RiskInputs{MaxOverdueDays: 60, OverdueAmount: dec("1"), CreditUtilizationPct: decimal.Zero},
			want: RiskHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRisk(tt.in, th))
		})
	}
}

func TestMaxOverdueDays_UsesOldestOverdueInvoice(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []*Invoice{
		{Status: InvoiceStatusOverdue, DueDate: now.AddDate(0, 0, -10), BalanceAmount: dec("10000")},
		{Status: InvoiceStatusOverdue, DueDate: now.AddDate(0, 0, -65), BalanceAmount: dec("5")},
		{Status: InvoiceStatusPartial, DueDate: now.AddDate(0, 0, -300), BalanceAmount: dec("5")},
	}
	assert.Equal(t, 65, MaxOverdueDays(invoices, now))
	assert.Equal(t, 0, MaxOverdueDays(nil, now))
}

func TestCreditUtilization(t *testing.T) {
	unlimited := decimal.NullDecimal{}
	zero := decimal.NewNullDecimal(decimal.Zero)
	limit := decimal.NewNullDecimal(dec("1000"))

	assert.True(t, CreditUtilization(dec("5000"), unlimited).IsZero())
	assert.True(t, CreditUtilization(decimal.Zero, zero).IsZero())
	assert.True(t, CreditUtilization(dec("1"), zero).Equal(dec("100")))
	assert.True(t, CreditUtilization(dec("500"), limit).Equal(dec("50")))
}

func TestCountBrokenSince(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -10)
	old := now.AddDate(0, 0, -120)
	promises := []*PromiseDate{
		{Status: PromiseStatusBroken, ResolvedAt: &recent},
		{Status: PromiseStatusBroken, ResolvedAt: &old},
		{Status: PromiseStatusKept, ResolvedAt: &recent},
		{Status: PromiseStatusPending},
	}
	assert.Equal(t, 1, CountBrokenSince(promises, now.Add(-BrokenPromiseWindow)))
}
