package receivable_test

import (
	"testing"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/receivable/allocation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRefresher_MarksPassedDueDatesOverdue(t *testing.T) {
	l := newLedger(t)
	a := l.newCustomer("Alpha", decimal.NullDecimal{})
	b := l.newCustomer("Beta", decimal.NullDecimal{})
	a1 := l.newInvoice(a.ID, daysAgo(-5), "100")
	a2 := l.newInvoice(a.ID, daysAgo(-6), "200")
	a3 := l.newInvoice(a.ID, daysAgo(-60), "300")
	b1 := l.newInvoice(b.ID, daysAgo(-7), "400")
	p := l.newPayment(b.ID, "150")
	_, err := l.payment.Allocate(l.ctx, p.ID, "FIFO", nil)
	require.NoError(t, err)
	require.Equal(t, receivable.InvoiceStatusPartial, l.reloadInvoice(b1.ID).Status)

	l.now = today.AddDate(0, 0, 10)
	summary, err := l.statuses.RefreshAll(l.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Scanned)
	assert.Equal(t, 3, summary.Changed)
	assert.Equal(t, 3, summary.ByStatus[receivable.InvoiceStatusOverdue])
	assert.Equal(t, 2, summary.Customers)

	assert.Equal(t, receivable.InvoiceStatusOverdue, l.reloadInvoice(a1.ID).Status)
	assert.Equal(t, receivable.InvoiceStatusOverdue, l.reloadInvoice(a2.ID).Status)
	assert.Equal(t, receivable.InvoiceStatusUnpaid, l.reloadInvoice(a3.ID).Status)
	assert.Equal(t, receivable.InvoiceStatusOverdue, l.reloadInvoice(b1.ID).Status)

	alpha := l.reloadCustomer(a.ID)
	assertMoney(t, d("300"), alpha.OverdueAmount, "alpha overdue")
	assertMoney(t, d("600"), alpha.OutstandingAmount, "alpha outstanding")
	assert.Equal(t, receivable.RiskWatchlist, alpha.RiskTier)
	assertMoney(t, d("250"), l.reloadCustomer(b.ID).OverdueAmount, "beta overdue")

	t.Run("a second sweep changes nothing", func(t *testing.T) {
		summary, err := l.statuses.RefreshAll(l.ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, summary.Scanned)
		assert.Zero(t, summary.Changed)
		assert.Zero(t, summary.Customers)
	})
}

func TestStatusRefresher_HonoursGraceDays(t *testing.T) {
	l := newLedger(t)
	settings, err := l.settings.Get(l.ctx)
	require.NoError(t, err)
	settings.OverdueGraceDays = 3
	_, err = l.settings.Update(l.ctx, settings)
	require.NoError(t, err)

	c := l.newCustomer("Grace", decimal.NullDecimal{})
	inv := l.newInvoice(c.ID, daysAgo(-1), "100")

	l.now = today.AddDate(0, 0, 2)
	summary, err := l.statuses.RefreshAll(l.ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Changed)

	l.now = today.AddDate(0, 0, 5)
	summary, err = l.statuses.RefreshAll(l.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, receivable.InvoiceStatusOverdue, l.reloadInvoice(inv.ID).Status)
}

func TestStatusRefresher_LeavesInvoicesChangedMidSweep(t *testing.T) {
	l := newLedger(t)
	c := l.newCustomer("Racer", decimal.NullDecimal{})
	writtenOff := l.newInvoice(c.ID, daysAgo(-5), "100")
	paid := l.newInvoice(c.ID, daysAgo(-4), "100")
	stays := l.newInvoice(c.ID, daysAgo(-3), "50")
	p := l.newPayment(c.ID, "100")

	// both invoices are read as UNPAID, then change before the batch write
	scope := &hookScope{TransactionScope: l.scope, before: map[int]func(){
		2: func() {
			_, err := l.invoice.WriteOff(l.ctx, writtenOff.ID, "customer insolvent")
			require.NoError(t, err)
			_, err = l.payment.Allocate(l.ctx, p.ID, "MANUAL", []allocation.ManualItem{
				{InvoiceID: paid.ID, Amount: d("100")},
			})
			require.NoError(t, err)
		},
	}}
	deps := l.deps
	deps.Scope = scope
	refresher := app.NewStatusRefresher(deps, l.recalc, 10)

	l.now = today.AddDate(0, 0, 10)
	summary, err := refresher.RefreshAll(l.ctx)
	require.NoError(t, err)
	require.Greater(t, scope.calls, 1, "the hook ran between read and write")
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 1, summary.Changed)

	assert.Equal(t, receivable.InvoiceStatusWrittenOff, l.reloadInvoice(writtenOff.ID).Status)
	settled := l.reloadInvoice(paid.ID)
	assert.Equal(t, receivable.InvoiceStatusPaid, settled.Status)
	assertMoney(t, decimal.Zero, settled.BalanceAmount, "paid balance")
	assert.Equal(t, receivable.InvoiceStatusOverdue, l.reloadInvoice(stays.ID).Status)

	racer := l.reloadCustomer(c.ID)
	assertMoney(t, d("50"), racer.OverdueAmount, "overdue excludes the closed invoices")
	assert.Equal(t, receivable.RiskWatchlist, racer.RiskTier)
}

func TestRecalculator_RecalculateAll(t *testing.T) {
	l := newLedger(t)
	a := l.newCustomer("Alpha", decimal.NullDecimal{})
	b := l.newCustomer("Beta", decimal.NullDecimal{})
	l.newInvoice(a.ID, daysAgo(2), "10")
	l.newInvoice(b.ID, daysAgo(-2), "20")
	require.NoError(t, l.db.Exec("UPDATE customers SET outstanding_amount = 999").Error)

	n, err := l.recalc.RecalculateAll(l.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertMoney(t, d("10"), l.reloadCustomer(a.ID).OutstandingAmount, "alpha")
	assertMoney(t, d("20"), l.reloadCustomer(b.ID).OutstandingAmount, "beta")

	agg, err := l.recalc.Recalculate(l.ctx, a.ID)
	require.NoError(t, err)
	assertMoney(t, d("10"), agg.Overdue, "alpha overdue")
	assertMoney(t, agg.Outstanding, agg.CreditUsed, "credit used tracks outstanding")
}

func TestRecalculator_LocksCustomerBeforeReadingInvoices(t *testing.T) {
	l := newLedger(t)
	c := l.newCustomer("Locked", decimal.NullDecimal{})
	l.newInvoice(c.ID, daysAgo(5), "75")

	scope := &traceScope{TransactionScope: l.scope}
	deps := l.deps
	deps.Scope = scope
	risk := app.NewRiskService(deps)
	recalc := app.NewRecalculator(deps, risk)

	require.NoError(t, recalc.Refresh(l.ctx, c.ID))
	assert.Equal(t, []string{"lock customer", "read invoices", "lock customer", "read invoices"}, scope.trace)
	assertMoney(t, d("75"), l.reloadCustomer(c.ID).OverdueAmount, "overdue")

	scope.trace = nil
	tier, err := risk.Classify(l.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, receivable.RiskWatchlist, tier)
	assert.Equal(t, []string{"lock customer", "read invoices"}, scope.trace)
}
