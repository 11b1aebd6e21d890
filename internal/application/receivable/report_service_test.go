package receivable_test

import (
	"testing"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/receivable/allocation"
	"github.com/erp/collections/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_Aging(t *testing.T) {
	l := newLedger(t)
	a := l.newCustomer("Alpha", decimal.NullDecimal{})
	b := l.newCustomer("Beta", decimal.NullDecimal{})
	l.newInvoice(a.ID, daysAgo(-5), "50")
	l.newInvoice(a.ID, daysAgo(10), "100")
	l.newInvoice(a.ID, daysAgo(45), "200")
	l.newInvoice(b.ID, daysAgo(100), "300")
	paid := l.newInvoice(b.ID, daysAgo(20), "75")
	p := l.newPayment(b.ID, "75")
	_, err := l.payment.Allocate(l.ctx, p.ID, "MANUAL", []allocation.ManualItem{{InvoiceID: paid.ID, Amount: d("75")}})
	require.NoError(t, err)

	report, err := l.reports.Aging(l.ctx, today)
	require.NoError(t, err)
	assertMoney(t, d("650"), report.Portfolio.Total, "portfolio")
	assertMoney(t, d("50"), report.Portfolio.Buckets[receivable.AgingCurrent], "current")
	assertMoney(t, d("100"), report.Portfolio.Buckets[receivable.AgingDays1To30], "1-30")
	assertMoney(t, d("200"), report.Portfolio.Buckets[receivable.AgingDays31To60], "31-60")
	assertMoney(t, decimal.Zero, report.Portfolio.Buckets[receivable.AgingDays61To90], "61-90")
	assertMoney(t, d("300"), report.Portfolio.Buckets[receivable.AgingDays90Plus], "90+")

	require.Len(t, report.Customers, 2)
	assert.Equal(t, a.ID, report.Customers[0].CustomerID)
	assertMoney(t, d("350"), report.Customers[0].Totals.Total, "alpha")
	assert.Equal(t, 45, report.Customers[0].MaxOverdueDays)
	assert.Equal(t, receivable.RiskHigh, report.Customers[1].RiskTier)
}

func TestReportService_OutstandingAndCredit(t *testing.T) {
	l := newLedger(t)
	a := l.newCustomer("Alpha", decimal.NullDecimal{})
	b := l.newCustomer("Beta", limit("1000"))
	c := l.newCustomer("Gamma", limit("100"))
	l.newCustomer("Idle", limit("500"))
	l.newInvoice(a.ID, daysAgo(-5), "700")
	l.newInvoice(b.ID, daysAgo(-5), "250")
	l.newInvoice(c.ID, daysAgo(-5), "90")

	top, err := l.reports.Outstanding(l.ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, a.ID, top[0].CustomerID)
	assert.Equal(t, b.ID, top[1].CustomerID)

	rows, err := l.reports.CreditUtilization(l.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3, "unlimited customers are left out")
	assert.Equal(t, c.ID, rows[0].CustomerID)
	assertMoney(t, d("90"), rows[0].UtilizationPct, "gamma pct")
	assertMoney(t, d("10"), rows[0].Available, "gamma available")
	assert.Equal(t, b.ID, rows[1].CustomerID)
	assertMoney(t, d("25"), rows[1].UtilizationPct, "beta pct")
	assertMoney(t, decimal.Zero, rows[2].UtilizationPct, "idle pct")
}

func TestReportService_PromisePerformance(t *testing.T) {
	l := newLedger(t)
	c := l.newCustomer("Alpha", decimal.NullDecimal{})

	empty, err := l.reports.PromisePerformance(l.ctx)
	require.NoError(t, err)
	assert.True(t, empty.KeptRate.IsZero())

	kept := l.newPromise(c.ID, daysAgo(-1))
	_, err = l.promise.MarkKept(l.ctx, kept.ID)
	require.NoError(t, err)
	l.newPromise(c.ID, daysAgo(2))
	l.newPromise(c.ID, daysAgo(-3))
	_, err = l.tracker.DetectBroken(l.ctx, today)
	require.NoError(t, err)

	perf, err := l.reports.PromisePerformance(l.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), perf.Pending)
	assert.Equal(t, int64(1), perf.Kept)
	assert.Equal(t, int64(1), perf.Broken)
	assertMoney(t, d("50"), perf.KeptRate, "kept rate")
}

func TestReportService_DailyList(t *testing.T) {
	l := newLedger(t)
	late := l.newCustomer("Late", decimal.NullDecimal{})
	later := l.newCustomer("Later", decimal.NullDecimal{})
	fine := l.newCustomer("Fine", decimal.NullDecimal{})
	l.newInvoice(late.ID, daysAgo(4), "100")
	l.newInvoice(later.ID, daysAgo(9), "500")
	due := l.newInvoice(fine.ID, daysAgo(0), "80")
	l.newInvoice(fine.ID, daysAgo(-1), "80")

	promised := l.newPromise(fine.ID, daysAgo(0))
	l.newPromise(fine.ID, daysAgo(-1))
	l.newPromise(late.ID, daysAgo(2))
	_, err := l.tracker.DetectBroken(l.ctx, today)
	require.NoError(t, err)

	list, err := l.reports.DailyList(l.ctx, today)
	require.NoError(t, err)
	assert.Equal(t, daysAgo(0), list.Date)

	require.Len(t, list.OverdueCustomers, 3)
	assert.Equal(t, later.ID, list.OverdueCustomers[0].CustomerID, "largest overdue first")

	require.Len(t, list.DueToday, 1)
	assert.Equal(t, due.ID, list.DueToday[0].ID)
	require.Len(t, list.PromisesDueToday, 1)
	assert.Equal(t, promised.ID, list.PromisesDueToday[0].ID)
	require.Len(t, list.RecentlyBroken, 1)
	assert.Equal(t, late.ID, list.RecentlyBroken[0].CustomerID)
}

func TestReportService_DailyListPagesThroughPromises(t *testing.T) {
	l := newLedger(t)
	c := l.newCustomer("Busy", decimal.NullDecimal{})
	repo := persistence.NewGormPromiseRepository(l.db)
	const due = 201
	for i := 0; i < due; i++ {
		p, err := receivable.NewPromise(c.ID, decimal.NullDecimal{}, daysAgo(0), "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(l.ctx, p))
	}
	l.newPromise(c.ID, daysAgo(-1))

	list, err := l.reports.DailyList(l.ctx, today)
	require.NoError(t, err)
	assert.Len(t, list.PromisesDueToday, due, "more than one page of promises is returned in full")

	seen := make(map[uuid.UUID]bool, due)
	for _, p := range list.PromisesDueToday {
		assert.False(t, seen[p.ID], "promise %s listed twice", p.ID)
		seen[p.ID] = true
	}
}

func TestReportService_DefaultsToClock(t *testing.T) {
	l := newLedger(t)
	report, err := l.reports.Aging(l.ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, today, report.ReferenceDate)
	assert.Empty(t, report.Customers)
}
