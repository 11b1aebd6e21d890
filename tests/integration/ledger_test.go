//go:build integration

package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/bootstrap"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func TestMigrations_UpDown(t *testing.T) {
	tdb := NewTestDB(t)

	m, err := migration.New(tdb.SqlDB, MigrationsPath(), zap.NewNop())
	require.NoError(t, err)

	st, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), st.Version)
	assert.False(t, st.Dirty)

	require.NoError(t, m.Down())
	st, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(0), st.Version)

	var tables int64
	require.NoError(t, tdb.DB.Raw(`SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = 'invoices'`).Scan(&tables).Error)
	assert.Zero(t, tables)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "no change is not an error")
}

func newLedger(t *testing.T) *bootstrap.Services {
	t.Helper()
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()

	svc := bootstrap.NewServices(tdb.DB, bootstrap.Options{TxTimeout: 10 * time.Second, RefreshBatchSize: 100}, zaptest.NewLogger(t))
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc
}

func createInvoice(t *testing.T, svc *bootstrap.Services, customer *receivable.Customer, ageDays int, amount int64) *receivable.Invoice {
	t.Helper()
	date := time.Now().UTC().AddDate(0, 0, -ageDays)
	res, err := svc.Invoices.Create(context.Background(), app.CreateInvoiceInput{
		CustomerID:  customer.ID,
		InvoiceDate: date,
		TotalAmount: decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	return res.Invoice
}

func TestLedger_FIFOAllocationOnPostgres(t *testing.T) {
	svc := newLedger(t)
	ctx := context.Background()

	customer, err := svc.Customers.Create(ctx, receivable.CustomerDetails{Name: "Verma & Sons", Phone: "9800000003"})
	require.NoError(t, err)
	older := createInvoice(t, svc, customer, 45, 400)
	newer := createInvoice(t, svc, customer, 5, 600)
	assert.NotEqual(t, older.Number, newer.Number)

	res, err := svc.Payments.Create(ctx, app.CreatePaymentInput{
		CustomerID:   customer.ID,
		PaymentDate:  time.Now().UTC(),
		Amount:       decimal.NewFromInt(500),
		Mode:         receivable.PaymentModeCash,
		AutoAllocate: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Allocation)
	assert.True(t, res.Allocation.TotalAllocated.Equal(decimal.NewFromInt(500)))

	got, err := svc.Invoices.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, receivable.InvoiceStatusPaid, got.Invoice.Status)
	assert.True(t, got.Invoice.BalanceAmount.IsZero())

	got, err = svc.Invoices.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, receivable.InvoiceStatusPartial, got.Invoice.Status)
	assert.True(t, got.Invoice.BalanceAmount.Equal(decimal.NewFromInt(500)))

	require.NoError(t, svc.Recalc.Refresh(ctx, customer.ID))
	c, err := svc.Customers.Get(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.Equal(decimal.NewFromInt(500)))
}

func TestLedger_ConcurrentPaymentsNeverOverAllocate(t *testing.T) {
	svc := newLedger(t)
	ctx := context.Background()

	customer, err := svc.Customers.Create(ctx, receivable.CustomerDetails{Name: "Iyer Textiles", Phone: "9800000004"})
	require.NoError(t, err)
	invoice := createInvoice(t, svc, customer, 10, 300)

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Payments.Create(ctx, app.CreatePaymentInput{
				CustomerID:   customer.ID,
				PaymentDate:  time.Now().UTC(),
				Amount:       decimal.NewFromInt(100),
				Mode:         receivable.PaymentModeUPI,
				AutoAllocate: true,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.Invoices.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, receivable.InvoiceStatusPaid, got.Invoice.Status)
	assert.True(t, got.Invoice.PaidAmount.Equal(decimal.NewFromInt(300)))

	total := decimal.Zero
	for _, a := range got.Allocations {
		total = total.Add(a.Amount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(300)), "allocated %s", total)

	page, err := svc.Payments.List(ctx, receivable.PaymentFilter{CustomerID: &customer.ID, OnlyUnallocated: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, workers-3)
}

func TestLedger_StatusSweepOnPostgres(t *testing.T) {
	svc := newLedger(t)
	ctx := context.Background()

	customer, err := svc.Customers.Create(ctx, receivable.CustomerDetails{Name: "Khan Hardware", Phone: "9800000005"})
	require.NoError(t, err)
	invoice := createInvoice(t, svc, customer, 95, 1200)

	_, err = svc.Refresher.RefreshAll(ctx)
	require.NoError(t, err)

	got, err := svc.Invoices.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, receivable.InvoiceStatusOverdue, got.Invoice.Status)

	rep, err := svc.Reports.Aging(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, rep.Customers, 1)
	assert.True(t, rep.Portfolio.Total.Equal(decimal.NewFromInt(1200)))
}
