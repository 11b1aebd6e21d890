package receivable

import (
	"testing"
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func createTestInvoice(t *testing.T, total string, dueInDays int) *Invoice {
	t.Helper()
	inv, err := NewInvoice(NewInvoiceParams{
		Number:      "INV-0001",
		CustomerID:  uuid.New(),
		InvoiceDate: testNow.AddDate(0, 0, -30),
		DueDate:     testNow.AddDate(0, 0, dueInDays),
		TotalAmount: dec(total),
	}, testNow)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := createTestInvoice(t, "1000", 10)

	assert.True(t, inv.PaidAmount.IsZero())
	assert.True(t, inv.BalanceAmount.Equal(dec("1000")))
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)

	overdue := createTestInvoice(t, "1000", -1)
	assert.Equal(t, InvoiceStatusOverdue, overdue.Status)
}

func TestNewInvoice_TotalFromLineItems(t *testing.T) {
	a, err := NewInvoiceLineItem("Widgets", dec("3"), dec("12.50"))
	require.NoError(t, err)
	b, err := NewInvoiceLineItem("Freight", dec("1"), dec("40"))
	require.NoError(t, err)

	inv, err := NewInvoice(NewInvoiceParams{
		Number:      "INV-0002",
		CustomerID:  uuid.New(),
		InvoiceDate: testNow,
		DueDate:     testNow.AddDate(0, 0, 30),
		TotalAmount: dec("1"),
		LineItems:   []InvoiceLineItem{a, b},
	}, testNow)
	require.NoError(t, err)
	assert.True(t, inv.TotalAmount.Equal(dec("77.5")))
}

func TestNewInvoice_Validation(t *testing.T) {
	_, err := NewInvoice(NewInvoiceParams{
		Number: "INV-1", CustomerID: uuid.New(), InvoiceDate: testNow, DueDate: testNow.AddDate(0, 0, -1), TotalAmount: dec("10"),
	}, testNow)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewInvoice(NewInvoiceParams{
		Number: "INV-1", CustomerID: uuid.New(), InvoiceDate: testNow, DueDate: testNow, TotalAmount: dec("0"),
	}, testNow)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewInvoiceLineItem("x", dec("0"), dec("1"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestInvoice_ApplyPaymentDelta(t *testing.T) {
	inv := createTestInvoice(t, "1000", 10)

	require.NoError(t, inv.ApplyPaymentDelta(dec("400"), testNow))
	assert.Equal(t, InvoiceStatusPartial, inv.Status)
	assert.True(t, inv.BalanceAmount.Equal(dec("600")))

	require.NoError(t, inv.ApplyPaymentDelta(dec("600"), testNow))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.BalanceAmount.IsZero())

	require.NoError(t, inv.ApplyPaymentDelta(dec("-1000"), testNow))
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)

	err := inv.ApplyPaymentDelta(dec("1000.02"), testNow)
	assert.ErrorIs(t, err, shared.ErrAllocation)
	err = inv.ApplyPaymentDelta(dec("-5"), testNow)
	assert.ErrorIs(t, err, shared.ErrAllocation)
}

func TestInvoice_Revise(t *testing.T) {
	inv := createTestInvoice(t, "1000", 10)
	require.NoError(t, inv.ApplyPaymentDelta(dec("300"), testNow))

	lower := dec("200")
	err := inv.Revise(InvoiceRevision{TotalAmount: &lower}, testNow)
	assert.ErrorIs(t, err, shared.ErrValidation)

	higher := dec("1500")
	past := testNow.AddDate(0, 0, -1)
	require.NoError(t, inv.Revise(InvoiceRevision{TotalAmount: &higher, DueDate: &past}, testNow))
	assert.True(t, inv.BalanceAmount.Equal(dec("1200")))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
}

func TestInvoice_WriteOffLifecycle(t *testing.T) {
	inv := createTestInvoice(t, "1000", -3)
	require.NoError(t, inv.ApplyPaymentDelta(dec("100"), testNow))

	require.NoError(t, inv.WriteOff("customer closed"))
	assert.Equal(t, InvoiceStatusWrittenOff, inv.Status)
	assert.Contains(t, inv.Notes, "customer closed")

	assert.ErrorIs(t, inv.WriteOff("again"), shared.ErrConflict)

	total := dec("2000")
	assert.ErrorIs(t, inv.Revise(InvoiceRevision{TotalAmount: &total}, testNow), shared.ErrConflict)

	inv.Reclassify(testNow)
	assert.Equal(t, InvoiceStatusWrittenOff, inv.Status, "reclassify never leaves write-off")

	require.NoError(t, inv.UndoWriteOff(testNow))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.ErrorIs(t, inv.UndoWriteOff(testNow), shared.ErrConflict)
}
