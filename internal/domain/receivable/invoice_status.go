package receivable

import (
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid     InvoiceStatus = "UNPAID"
	InvoiceStatusPartial    InvoiceStatus = "PARTIAL"
	InvoiceStatusOverdue    InvoiceStatus = "OVERDUE"
	InvoiceStatusPaid       InvoiceStatus = "PAID"
	InvoiceStatusWrittenOff InvoiceStatus = "WRITTEN_OFF" // terminal, left only by an explicit undo
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartial, InvoiceStatusOverdue,
		InvoiceStatusPaid, InvoiceStatusWrittenOff:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOpen returns true if the invoice can still receive allocations
func (s InvoiceStatus) IsOpen() bool {
	return s != InvoiceStatusPaid && s != InvoiceStatusWrittenOff
}

// ClosedInvoiceStatuses lists the statuses excluded from open-invoice queries
func ClosedInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusWrittenOff}
}

// ClassifyInvoice derives an invoice status from its amounts and due date.
// WRITTEN_OFF is a fixed point; a balance within tolerance is PAID regardless
// of the date.
func ClassifyInvoice(total, paid decimal.Decimal, dueDate time.Time, current InvoiceStatus, now time.Time) InvoiceStatus {
	if current == InvoiceStatusWrittenOff {
		return InvoiceStatusWrittenOff
	}

	balance := total.Sub(paid)
	if balance.LessThanOrEqual(shared.MoneyTolerance) {
		return InvoiceStatusPaid
	}

	overdue := dueDate.Before(now)
	if paid.IsPositive() {
		if overdue {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusPartial
	}
	if overdue {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusUnpaid
}
