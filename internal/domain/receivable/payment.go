package receivable

import (
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMode is how a payment was received
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCheque PaymentMode = "CHEQUE"
	PaymentModeNEFT   PaymentMode = "NEFT"
	PaymentModeRTGS   PaymentMode = "RTGS"
	PaymentModeIMPS   PaymentMode = "IMPS"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeOther  PaymentMode = "OTHER"
)

// IsValid checks if the mode is a valid PaymentMode
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCheque, PaymentModeNEFT, PaymentModeRTGS,
		PaymentModeIMPS, PaymentModeUPI, PaymentModeOther:
		return true
	}
	return false
}

// PaymentStatus is derived from allocated vs. amount
type PaymentStatus string

const (
	PaymentStatusUnallocated PaymentStatus = "UNALLOCATED"
	PaymentStatusPartial     PaymentStatus = "PARTIAL"
	PaymentStatusApplied     PaymentStatus = "APPLIED"
)

// DerivePaymentStatus maps an allocated amount onto a payment status
func DerivePaymentStatus(amount, allocated decimal.Decimal) PaymentStatus {
	switch {
	case allocated.GreaterThanOrEqual(amount.Sub(shared.MoneyTolerance)):
		return PaymentStatusApplied
	case allocated.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnallocated
	}
}

// Payment is money received from a customer
type Payment struct {
	shared.BaseEntity
	Number            string
	CustomerID        uuid.UUID
	PaymentDate       time.Time
	Amount            decimal.Decimal
	Mode              PaymentMode
	Reference         string
	Notes             string
	AllocatedAmount   decimal.Decimal
	UnallocatedAmount decimal.Decimal
	Status            PaymentStatus
}

// NewPaymentParams groups the inputs of NewPayment
type NewPaymentParams struct {
	Number      string
	CustomerID  uuid.UUID
	PaymentDate time.Time
	Amount      decimal.Decimal
	Mode        PaymentMode
	Reference   string
	Notes       string
}

// NewPayment creates an unallocated payment
func NewPayment(p NewPaymentParams) (*Payment, error) {
	if p.Number == "" {
		return nil, shared.NewValidationError("payment number is required")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("customer is required")
	}
	if p.PaymentDate.IsZero() {
		return nil, shared.NewValidationError("payment date is required")
	}
	amount := shared.RoundMoney(p.Amount)
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive")
	}
	if !p.Mode.IsValid() {
		return nil, shared.NewValidationError("invalid payment mode %q", p.Mode)
	}
	return &Payment{
		BaseEntity:        shared.NewBaseEntity(),
		Number:            p.Number,
		CustomerID:        p.CustomerID,
		PaymentDate:       p.PaymentDate,
		Amount:            amount,
		Mode:              p.Mode,
		Reference:         p.Reference,
		Notes:             p.Notes,
		AllocatedAmount:   decimal.Zero,
		UnallocatedAmount: amount,
		Status:            PaymentStatusUnallocated,
	}, nil
}

// SyncAllocated records the allocated total, which must be the sum of every
// allocation row of this payment, and re-derives the dependent fields.
func (p *Payment) SyncAllocated(allocated decimal.Decimal) error {
	if allocated.Sub(p.Amount).GreaterThan(shared.MoneyTolerance) {
		return shared.NewAllocationError("payment %s over-allocated: %s of %s",
			p.Number, allocated.StringFixed(2), p.Amount.StringFixed(2))
	}
	p.AllocatedAmount = shared.MaxZero(allocated)
	p.UnallocatedAmount = shared.MaxZero(p.Amount.Sub(p.AllocatedAmount))
	p.Status = DerivePaymentStatus(p.Amount, p.AllocatedAmount)
	p.Touch()
	return nil
}

// PaymentRevision carries the editable payment fields
type PaymentRevision struct {
	PaymentDate *time.Time
	Amount      *decimal.Decimal
	Mode        *PaymentMode
	Reference   *string
	Notes       *string
}

// Revise applies edits; the amount may not drop below what is already allocated
func (p *Payment) Revise(r PaymentRevision) error {
	if r.Amount != nil {
		amount := shared.RoundMoney(*r.Amount)
		if !amount.IsPositive() {
			return shared.NewValidationError("payment amount must be positive")
		}
		if amount.LessThan(p.AllocatedAmount) {
			return shared.NewValidationError("amount %s cannot be less than allocated amount %s",
				amount.StringFixed(2), p.AllocatedAmount.StringFixed(2))
		}
		p.Amount = amount
	}
	if r.Mode != nil {
		if !r.Mode.IsValid() {
			return shared.NewValidationError("invalid payment mode %q", *r.Mode)
		}
		p.Mode = *r.Mode
	}
	if r.PaymentDate != nil {
		p.PaymentDate = *r.PaymentDate
	}
	if r.Reference != nil {
		p.Reference = *r.Reference
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	return p.SyncAllocated(p.AllocatedAmount)
}

// PaymentAllocation records how much of one payment was applied to one invoice.
// (PaymentID, InvoiceID) is unique.
type PaymentAllocation struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPaymentAllocation creates an allocation row
func NewPaymentAllocation(paymentID, invoiceID uuid.UUID, amount decimal.Decimal) *PaymentAllocation {
	now := time.Now()
	return &PaymentAllocation{
		ID:        uuid.New(),
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SumAllocations adds the amounts of the given rows
func SumAllocations(rows []*PaymentAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}
