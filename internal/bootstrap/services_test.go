package bootstrap

import (
	"context"
	"testing"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewServices(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	svc := NewServices(db, Options{RefreshBatchSize: 50}, zaptest.NewLogger(t))
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(func() { _ = svc.Stop(ctx) })

	customer, err := svc.Customers.Create(ctx, receivable.CustomerDetails{Name: "Gupta Stores", Phone: "9800000002"})
	require.NoError(t, err)

	invoiceDate := time.Now().UTC().AddDate(0, 0, -60)
	dueDate := invoiceDate.AddDate(0, 0, 30)
	_, err = svc.Invoices.Create(ctx, app.CreateInvoiceInput{
		CustomerID:  customer.ID,
		InvoiceDate: invoiceDate,
		DueDate:     &dueDate,
		TotalAmount: decimal.NewFromInt(800),
	})
	require.NoError(t, err)

	_, err = svc.Refresher.RefreshAll(ctx)
	require.NoError(t, err)

	testutil.RequireEventually(t, func() bool {
		c, err := svc.Customers.Get(ctx, customer.ID)
		return err == nil && c.OverdueAmount.Equal(decimal.NewFromInt(800))
	}, 2*time.Second, "overdue aggregate should follow the status sweep")

	count, err := svc.Recalc.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
