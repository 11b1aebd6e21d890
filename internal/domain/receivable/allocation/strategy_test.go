package allocation

import (
	"testing"
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openInvoices(balances ...string) []OpenInvoice {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]OpenInvoice, 0, len(balances))
	for i, b := range balances {
		out = append(out, OpenInvoice{
			ID:      uuid.New(),
			Number:  "INV-000" + string(rune('1'+i)),
			DueDate: base.AddDate(0, 0, i*10),
			Balance: dec(b),
		})
	}
	return out
}

func TestFIFO_AllocatesOldestFirst(t *testing.T) {
	open := openInvoices("100", "200", "300")

	plan, err := FIFO{}.Allocate(dec("250"), open)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, open[0].ID, plan[0].InvoiceID)
	assert.True(t, plan[0].Amount.Equal(dec("100")))
	assert.Equal(t, open[1].ID, plan[1].InvoiceID)
	assert.True(t, plan[1].Amount.Equal(dec("150")))
	assert.True(t, plan.Total().Equal(dec("250")))
}

func TestFIFO_SmallPaymentTouchesFirstInvoiceOnly(t *testing.T) {
	open := openInvoices("100", "200", "300")

	plan, err := FIFO{}.Allocate(dec("50"), open)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, open[0].ID, plan[0].InvoiceID)
	assert.True(t, plan[0].Amount.Equal(dec("50")))
}

func TestFIFO_SortsByDueDate(t *testing.T) {
	open := openInvoices("100", "200")
	open[0].DueDate, open[1].DueDate = open[1].DueDate, open[0].DueDate

	plan, err := FIFO{}.Allocate(dec("120"), open)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, open[1].ID, plan[0].InvoiceID)
	assert.True(t, plan[0].Amount.Equal(dec("120")))
}

func TestFIFO_RoundingGuard(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		balances  []string
		wantLines int
	}{
		{"nothing left", "0.004", []string{"100"}, 0},
		{"zero payment", "0", []string{"100"}, 0},
		{"skips fully covered invoices", "10", []string{"0", "50"}, 1},
		{"no open invoices", "100", nil, 0},
		{"overpayment leaves remainder", "500", []string{"100", "200"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := FIFO{}.Allocate(dec(tt.remaining), openInvoices(tt.balances...))
			require.NoError(t, err)
			assert.Len(t, plan, tt.wantLines)
		})
	}
}

func TestFIFO_RoundsToCents(t *testing.T) {
	plan, err := FIFO{}.Allocate(dec("33.3333"), openInvoices("100"))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "33.33", plan[0].Amount.StringFixed(2))
	assert.True(t, plan[0].Amount.Equal(dec("33.33")))
}

func TestFIFO_NegativeRemainingIsContractViolation(t *testing.T) {
	_, err := FIFO{}.Allocate(dec("-1"), openInvoices("100"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestManual_AcceptsValidItems(t *testing.T) {
	open := openInvoices("100", "200")
	m := Manual{Items: []ManualItem{
		{InvoiceID: open[1].ID, Amount: dec("150")},
		{InvoiceID: open[0].ID, Amount: dec("50")},
	}}

	plan, err := m.Allocate(dec("200"), open)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, open[1].ID, plan[0].InvoiceID, "manual keeps caller order")
	assert.True(t, plan.Total().Equal(dec("200")))
}

func TestManual_RejectsWholeRequest(t *testing.T) {
	open := openInvoices("100", "200")

	tests := []struct {
		name      string
		remaining string
		items     []ManualItem
		wantErr   error
	}{
		{
			name:      "exceeds invoice balance",
			remaining: "500",
			items:     []ManualItem{{InvoiceID: open[0].ID, Amount: dec("150")}},
			wantErr:   shared.ErrAllocation,
		},
		{
			name:      "exceeds payment",
			remaining: "120",
			items: []ManualItem{
				{InvoiceID: open[0].ID, Amount: dec("100")},
				{InvoiceID: open[1].ID, Amount: dec("50")},
			},
			wantErr: shared.ErrAllocation,
		},
		{
			name:      "invoice not open",
			remaining: "100",
			items:     []ManualItem{{InvoiceID: uuid.New(), Amount: dec("10")}},
			wantErr:   shared.ErrAllocation,
		},
		{
			name:      "duplicate invoice",
			remaining: "100",
			items: []ManualItem{
				{InvoiceID: open[0].ID, Amount: dec("10")},
				{InvoiceID: open[0].ID, Amount: dec("10")},
			},
			wantErr: shared.ErrAllocation,
		},
		{
			name:      "negative amount",
			remaining: "100",
			items:     []ManualItem{{InvoiceID: open[0].ID, Amount: dec("-10")}},
			wantErr:   shared.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Manual{Items: tt.items}.Allocate(dec(tt.remaining), open)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, plan)
		})
	}
}

func TestManual_ToleratesOneCent(t *testing.T) {
	open := openInvoices("100")
	plan, err := Manual{Items: []ManualItem{{InvoiceID: open[0].ID, Amount: dec("100.01")}}}.Allocate(dec("100"), open)
	require.NoError(t, err)
	assert.Len(t, plan, 1)
}

func TestParse(t *testing.T) {
	s, err := Parse("fifo", nil)
	require.NoError(t, err)
	assert.Equal(t, NameFIFO, s.Name())

	s, err = Parse("", nil)
	require.NoError(t, err)
	assert.Equal(t, NameFIFO, s.Name())

	s, err = Parse("MANUAL", []ManualItem{{InvoiceID: uuid.New(), Amount: dec("1")}})
	require.NoError(t, err)
	assert.Equal(t, NameManual, s.Name())

	_, err = Parse("MANUAL", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = Parse("LIFO", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestScope(t *testing.T) {
	open := openInvoices("100", "200")

	assert.Equal(t, []uuid.UUID{open[0].ID, open[1].ID}, FIFO{}.Scope(open))

	manual := Manual{Items: []ManualItem{{InvoiceID: open[1].ID, Amount: dec("10")}}}
	assert.Equal(t, []uuid.UUID{open[1].ID}, manual.Scope(open))
}
