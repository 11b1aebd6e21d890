package receivable

import (
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLineItem is a billed line on an invoice
type InvoiceLineItem struct {
	ID          uuid.UUID
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// NewInvoiceLineItem builds a line item with amount = quantity × rate
func NewInvoiceLineItem(description string, quantity, rate decimal.Decimal) (InvoiceLineItem, error) {
	if description == "" {
		return InvoiceLineItem{}, shared.NewValidationError("line item description is required")
	}
	if !quantity.IsPositive() {
		return InvoiceLineItem{}, shared.NewValidationError("line item quantity must be positive")
	}
	if rate.IsNegative() {
		return InvoiceLineItem{}, shared.NewValidationError("line item rate cannot be negative")
	}
	return InvoiceLineItem{
		ID:          uuid.New(),
		Description: description,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      shared.RoundMoney(quantity.Mul(rate)),
	}, nil
}

// Invoice is a claim against a customer for a fixed total, due on a fixed date
type Invoice struct {
	shared.BaseEntity
	Number        string
	CustomerID    uuid.UUID
	InvoiceDate   time.Time
	DueDate       time.Time
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	BalanceAmount decimal.Decimal
	Status        InvoiceStatus
	Notes         string
	LineItems     []InvoiceLineItem
}

// NewInvoiceParams groups the inputs of NewInvoice
type NewInvoiceParams struct {
	Number      string
	CustomerID  uuid.UUID
	InvoiceDate time.Time
	DueDate     time.Time
	TotalAmount decimal.Decimal // ignored when LineItems are given
	LineItems   []InvoiceLineItem
	Notes       string
}

// NewInvoice creates an invoice with paid = 0 and balance = total
func NewInvoice(p NewInvoiceParams, now time.Time) (*Invoice, error) {
	if p.Number == "" {
		return nil, shared.NewValidationError("invoice number is required")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("customer is required")
	}
	if p.InvoiceDate.IsZero() || p.DueDate.IsZero() {
		return nil, shared.NewValidationError("invoice date and due date are required")
	}
	if p.DueDate.Before(p.InvoiceDate) {
		return nil, shared.NewValidationError("due date cannot be before invoice date")
	}

	total := p.TotalAmount
	if len(p.LineItems) > 0 {
		total = decimal.Zero
		for _, item := range p.LineItems {
			total = total.Add(item.Amount)
		}
	}
	total = shared.RoundMoney(total)
	if !total.IsPositive() {
		return nil, shared.NewValidationError("invoice total must be positive")
	}

	inv := &Invoice{
		BaseEntity:    shared.NewBaseEntity(),
		Number:        p.Number,
		CustomerID:    p.CustomerID,
		InvoiceDate:   p.InvoiceDate,
		DueDate:       p.DueDate,
		TotalAmount:   total,
		PaidAmount:    decimal.Zero,
		BalanceAmount: total,
		Notes:         p.Notes,
		LineItems:     p.LineItems,
	}
	inv.Status = ClassifyInvoice(inv.TotalAmount, inv.PaidAmount, inv.DueDate, InvoiceStatusUnpaid, now)
	return inv, nil
}

// Reclassify recomputes balance and status from the current amounts
func (i *Invoice) Reclassify(now time.Time) {
	i.BalanceAmount = shared.MaxZero(i.TotalAmount.Sub(i.PaidAmount))
	i.Status = ClassifyInvoice(i.TotalAmount, i.PaidAmount, i.DueDate, i.Status, now)
}

// ApplyPaymentDelta moves the paid amount by diff (negative to reverse) and
// reclassifies. Paid may not drop below zero or exceed the total beyond tolerance.
func (i *Invoice) ApplyPaymentDelta(diff decimal.Decimal, now time.Time) error {
	paid := i.PaidAmount.Add(diff)
	if paid.LessThan(shared.MoneyTolerance.Neg()) {
		return shared.NewAllocationError("invoice %s paid amount would become negative", i.Number)
	}
	if paid.Sub(i.TotalAmount).GreaterThan(shared.MoneyTolerance) {
		return shared.NewAllocationError("invoice %s would be overpaid: paid %s exceeds total %s",
			i.Number, paid.StringFixed(2), i.TotalAmount.StringFixed(2))
	}
	i.PaidAmount = shared.MaxZero(paid)
	i.Reclassify(now)
	i.Touch()
	return nil
}

// InvoiceRevision carries the editable invoice fields
type InvoiceRevision struct {
	InvoiceDate *time.Time
	DueDate     *time.Time
	TotalAmount *decimal.Decimal
	LineItems   []InvoiceLineItem // replaces the total when non-nil
	Notes       *string
}

// Revise applies edits. A written-off invoice cannot be edited and the total
// may not drop below what has already been paid.
func (i *Invoice) Revise(r InvoiceRevision, now time.Time) error {
	if i.Status == InvoiceStatusWrittenOff {
		return shared.NewConflictError("invoice %s is written off and cannot be edited", i.Number)
	}

	invoiceDate, dueDate, total := i.InvoiceDate, i.DueDate, i.TotalAmount
	if r.InvoiceDate != nil {
		invoiceDate = *r.InvoiceDate
	}
	if r.DueDate != nil {
		dueDate = *r.DueDate
	}
	if r.LineItems != nil {
		total = decimal.Zero
		for _, item := range r.LineItems {
			total = total.Add(item.Amount)
		}
	} else if r.TotalAmount != nil {
		total = *r.TotalAmount
	}
	total = shared.RoundMoney(total)

	if dueDate.Before(invoiceDate) {
		return shared.NewValidationError("due date cannot be before invoice date")
	}
	if !total.IsPositive() {
		return shared.NewValidationError("invoice total must be positive")
	}
	if total.LessThan(i.PaidAmount) {
		return shared.NewValidationError("total amount %s cannot be less than paid amount %s",
			total.StringFixed(2), i.PaidAmount.StringFixed(2))
	}

	i.InvoiceDate, i.DueDate, i.TotalAmount = invoiceDate, dueDate, total
	if r.LineItems != nil {
		i.LineItems = r.LineItems
	}
	if r.Notes != nil {
		i.Notes = *r.Notes
	}
	i.Reclassify(now)
	i.Touch()
	return nil
}

// WriteOff moves the invoice to the terminal WRITTEN_OFF state
func (i *Invoice) WriteOff(reason string) error {
	if i.Status == InvoiceStatusWrittenOff {
		return shared.NewConflictError("invoice %s is already written off", i.Number)
	}
	i.Status = InvoiceStatusWrittenOff
	if reason != "" {
		note := fmt.Sprintf("Written off: %s", reason)
		if i.Notes != "" {
			note = i.Notes + "\n" + note
		}
		i.Notes = note
	}
	i.Touch()
	return nil
}

// UndoWriteOff re-derives the status as if the invoice had never been written off
func (i *Invoice) UndoWriteOff(now time.Time) error {
	if i.Status != InvoiceStatusWrittenOff {
		return shared.NewConflictError("invoice %s is not written off", i.Number)
	}
	i.Status = InvoiceStatusUnpaid
	i.Reclassify(now)
	i.Touch()
	return nil
}
