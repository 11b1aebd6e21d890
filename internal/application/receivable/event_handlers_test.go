package receivable_test

import (
	"context"
	"errors"
	"testing"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/erp/collections/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmitFailureRollsBackTheOperation(t *testing.T) {
	l := newLedger(t)
	c := l.newCustomer("Atomic Co", decimal.NullDecimal{})

	failing := testutil.NewRecordingHandler(receivable.EventTypeInvoiceCreated)
	failing.SetError(errors.New("downstream unavailable"))
	l.bus.Subscribe(failing)

	_, err := l.invoice.Create(l.ctx, app.CreateInvoiceInput{CustomerID: c.ID, InvoiceDate: today, TotalAmount: d("10")})
	require.Error(t, err)

	page, err := l.invoice.List(l.ctx, receivable.InvoiceFilter{CustomerID: &c.ID})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assertMoney(t, decimal.Zero, l.reloadCustomer(c.ID).OutstandingAmount, "outstanding")

	l.bus.Unsubscribe(failing)
	res, err := l.invoice.Create(l.ctx, app.CreateInvoiceInput{CustomerID: c.ID, InvoiceDate: today, TotalAmount: d("10")})
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", res.Invoice.Number, "the failed attempt does not consume a number")
}

func TestAggregateRefreshHandler(t *testing.T) {
	l := newLedger(t)
	h := app.NewAggregateRefreshHandler(l.recalc)
	assert.ElementsMatch(t, []string{
		receivable.EventTypeInvoiceCreated,
		receivable.EventTypeInvoiceChanged,
		receivable.EventTypePaymentAllocated,
	}, h.EventTypes())

	other := shared.NewBaseDomainEvent("SOMETHING_ELSE", "Thing", uuid.New())
	assert.NoError(t, h.Handle(context.Background(), &other), "events without a customer are ignored")

	err := h.Handle(context.Background(), receivable.NewCustomerChangedEvent(uuid.New()))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAlertLogHandler(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := app.NewAlertLogHandler(zap.New(core))

	c := &receivable.Customer{Code: "CUST-0042", CreditLimit: limit("1000")}
	c.ID = uuid.New()
	check := receivable.CheckCredit(c, d("1500"), decimal.Zero, 80)
	require.NoError(t, h.Handle(context.Background(), receivable.NewCreditLimitBreachedEvent(c, uuid.New(), check)))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "CUST-0042", fields["customer"])
	assert.Equal(t, "1000.00", fields["credit_limit"])
	assert.Equal(t, "1500.00", fields["projected_used"])
}
