package receivable_test

import (
	"context"
	"testing"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/event"
	"github.com/erp/collections/internal/infrastructure/persistence"
	"github.com/erp/collections/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

// today is the harness clock: 2026-04-15 10:00 UTC
var today = time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func daysAgo(n int) time.Time { return testutil.Date(2026, time.April, 15).AddDate(0, 0, -n) }

// ledger wires every service over an in-memory sqlite database the way
// cmd/server does over postgres
type ledger struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	scope    *persistence.GormTransactionScope
	deps     app.Deps
	bus      *event.InMemoryEventBus
	events   *testutil.RecordingHandler
	logs     *observer.ObservedLogs
	now      time.Time
	metrics  *countingMetrics
	risk     *app.RiskService
	recalc   *app.Recalculator
	alloc    *app.AllocationService
	invoice  *app.InvoiceService
	payment  *app.PaymentService
	promise  *app.PromiseService
	calls    *app.CallLogService
	customer *app.CustomerService
	settings *app.SettingsService
	reports  *app.ReportService
	statuses *app.StatusRefresher
	tracker  *app.PromiseTracker
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	l := &ledger{
		t:       t,
		ctx:     context.Background(),
		db:      testutil.NewSQLiteDB(t),
		bus:     event.NewInMemoryEventBus(logger),
		logs:    logs,
		now:     today,
		metrics: &countingMetrics{},
	}
	l.scope = persistence.NewGormTransactionScope(l.db, 5*time.Second)
	l.deps = app.Deps{
		Scope:   l.scope,
		Events:  l.bus,
		Metrics: l.metrics,
		Logger:  logger,
		Clock:   func() time.Time { return l.now },
	}
	deps := l.deps

	l.risk = app.NewRiskService(deps)
	l.recalc = app.NewRecalculator(deps, l.risk)
	l.alloc = app.NewAllocationService(deps)
	l.invoice = app.NewInvoiceService(deps)
	l.payment = app.NewPaymentService(deps, l.alloc)
	l.promise = app.NewPromiseService(deps, l.risk)
	l.calls = app.NewCallLogService(deps, l.promise)
	l.customer = app.NewCustomerService(deps, l.risk, l.recalc)
	l.settings = app.NewSettingsService(deps)
	l.reports = app.NewReportService(deps)
	l.statuses = app.NewStatusRefresher(deps, l.recalc, 2)
	l.tracker = app.NewPromiseTracker(deps, l.risk)

	l.events = testutil.NewRecordingHandler()
	l.bus.Subscribe(app.NewAggregateRefreshHandler(l.recalc))
	l.bus.Subscribe(app.NewAlertLogHandler(logger))
	l.bus.Subscribe(l.events)
	require.NoError(t, l.bus.Start(l.ctx))
	t.Cleanup(func() { _ = l.bus.Stop(context.Background()) })
	return l
}

func (l *ledger) newCustomer(name string, limit decimal.NullDecimal) *receivable.Customer {
	l.t.Helper()
	c, err := l.customer.Create(l.ctx, receivable.CustomerDetails{Name: name, CreditLimit: limit})
	require.NoError(l.t, err)
	return c
}

func (l *ledger) newInvoice(customerID uuid.UUID, due time.Time, total string) *receivable.Invoice {
	l.t.Helper()
	res, err := l.invoice.Create(l.ctx, app.CreateInvoiceInput{
		CustomerID:  customerID,
		InvoiceDate: due.AddDate(0, 0, -30),
		DueDate:     &due,
		TotalAmount: d(total),
	})
	require.NoError(l.t, err)
	return res.Invoice
}

func (l *ledger) newPayment(customerID uuid.UUID, amount string) *receivable.Payment {
	l.t.Helper()
	res, err := l.payment.Create(l.ctx, app.CreatePaymentInput{
		CustomerID:  customerID,
		PaymentDate: daysAgo(0),
		Amount:      d(amount),
		Mode:        receivable.PaymentModeNEFT,
	})
	require.NoError(l.t, err)
	return res.Payment
}

func (l *ledger) reloadInvoice(id uuid.UUID) *receivable.Invoice {
	l.t.Helper()
	inv, err := persistence.NewGormInvoiceRepository(l.db).FindByID(l.ctx, id)
	require.NoError(l.t, err)
	return inv
}

func (l *ledger) reloadPayment(id uuid.UUID) *receivable.Payment {
	l.t.Helper()
	p, err := persistence.NewGormPaymentRepository(l.db).FindByID(l.ctx, id)
	require.NoError(l.t, err)
	return p
}

func (l *ledger) reloadCustomer(id uuid.UUID) *receivable.Customer {
	l.t.Helper()
	c, err := persistence.NewGormCustomerRepository(l.db).FindByID(l.ctx, id)
	require.NoError(l.t, err)
	return c
}

func (l *ledger) allocationsOf(paymentID uuid.UUID) []*receivable.PaymentAllocation {
	l.t.Helper()
	rows, err := persistence.NewGormAllocationRepository(l.db).FindByPayment(l.ctx, paymentID)
	require.NoError(l.t, err)
	return rows
}

// assertConserved checks both sides of the ledger balance for the given
// payments and invoices
func (l *ledger) assertConserved(payments []uuid.UUID, invoices []uuid.UUID) {
	l.t.Helper()
	allocRepo := persistence.NewGormAllocationRepository(l.db)
	for _, id := range payments {
		p := l.reloadPayment(id)
		rows, err := allocRepo.FindByPayment(l.ctx, id)
		require.NoError(l.t, err)
		assertMoney(l.t, receivable.SumAllocations(rows), p.AllocatedAmount, p.Number+" allocated")
		assertMoney(l.t, p.Amount, p.AllocatedAmount.Add(p.UnallocatedAmount), p.Number+" amount")
	}
	for _, id := range invoices {
		inv := l.reloadInvoice(id)
		rows, err := allocRepo.FindByInvoice(l.ctx, id)
		require.NoError(l.t, err)
		assertMoney(l.t, receivable.SumAllocations(rows), inv.PaidAmount, inv.Number+" paid")
		assertMoney(l.t, inv.TotalAmount, inv.PaidAmount.Add(inv.BalanceAmount), inv.Number+" total")
	}
}

func assertMoney(t *testing.T, want, got decimal.Decimal, label string) {
	t.Helper()
	assert.Truef(t, want.Sub(got).Abs().LessThanOrEqual(d("0.01")),
		"%s: want %s got %s", label, want.StringFixed(2), got.StringFixed(2))
}

type countingMetrics struct {
	app.NopMetrics
	allocated   int
	tierChanges int
	broken      int
	breaches    int
}

func (m *countingMetrics) PaymentAllocated(context.Context, string, decimal.Decimal) { m.allocated++ }
func (m *countingMetrics) RiskTierChanged(context.Context, receivable.RiskTier, receivable.RiskTier) {
	m.tierChanges++
}
func (m *countingMetrics) PromisesBroken(_ context.Context, n int) { m.broken += n }
func (m *countingMetrics) CreditLimitBreached(context.Context) { m.breaches++ }

// hookScope runs a hook before the nth Execute call on the wrapped scope,
// letting a test commit a competing change between two transactions of
// one use case
type hookScope struct {
	app.TransactionScope
	calls  int
	before map[int]func()
}

func (h *hookScope) Execute(ctx context.Context, fn func(context.Context, app.TransactionalRepositories) error) error {
	h.calls++
	if hook, ok := h.before[h.calls]; ok {
		hook()
	}
	return h.TransactionScope.Execute(ctx, fn)
}

// traceScope records, in order, customer locks and invoice reads made
// through the repositories it hands out
type traceScope struct {
	app.TransactionScope
	trace []string
}

func (s *traceScope) Execute(ctx context.Context, fn func(context.Context, app.TransactionalRepositories) error) error {
	return s.TransactionScope.Execute(ctx, func(ctx context.Context, repos app.TransactionalRepositories) error {
		return fn(ctx, tracedRepos{TransactionalRepositories: repos, trace: &s.trace})
	})
}

type tracedRepos struct {
	app.TransactionalRepositories
	trace *[]string
}

func (r tracedRepos) Customers() receivable.CustomerRepository {
	return tracedCustomers{CustomerRepository: r.TransactionalRepositories.Customers(), trace: r.trace}
}

func (r tracedRepos) Invoices() receivable.InvoiceRepository {
	return tracedInvoices{InvoiceRepository: r.TransactionalRepositories.Invoices(), trace: r.trace}
}

type tracedCustomers struct {
	receivable.CustomerRepository
	trace *[]string
}

func (c tracedCustomers) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receivable.Customer, error) {
	*c.trace = append(*c.trace, "lock customer")
	return c.CustomerRepository.FindByIDForUpdate(ctx, id)
}

type tracedInvoices struct {
	receivable.InvoiceRepository
	trace *[]string
}

func (i tracedInvoices) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*receivable.Invoice, error) {
	*i.trace = append(*i.trace, "read invoices")
	return i.InvoiceRepository.FindByCustomer(ctx, customerID)
}
