package receivable

import (
	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types published by the receivables use cases
const (
	EventTypeInvoiceCreated      = "INVOICE_CREATED"
	EventTypeInvoiceChanged      = "INVOICE_CHANGED"
	EventTypePaymentAllocated    = "PAYMENT_ALLOCATED"
	EventTypePromiseBroken       = "PROMISE_BROKEN"
	EventTypeCreditLimitBreached = "CREDIT_LIMIT_BREACHED"
)

// Aggregate type names carried on events
const (
	AggregateTypeInvoice  = "Invoice"
	AggregateTypePayment  = "Payment"
	AggregateTypePromise  = "PromiseDate"
	AggregateTypeCustomer = "Customer"
)

// CustomerEvent is implemented by every receivables event; handlers use it to
// find the customer whose aggregates need refreshing.
type CustomerEvent interface {
	shared.DomainEvent
	CustomerRef() uuid.UUID
}

// InvoiceEvent is raised when an invoice is created or any of its amounts,
// dates or status change. Coarse-grained: handlers recompute everything.
type InvoiceEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        InvoiceStatus   `json:"status"`
}

// CustomerRef returns the affected customer
func (e *InvoiceEvent) CustomerRef() uuid.UUID { return e.CustomerID }

// NewInvoiceCreatedEvent creates an INVOICE_CREATED event
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceEvent {
	return newInvoiceEvent(EventTypeInvoiceCreated, inv)
}

// NewInvoiceChangedEvent creates an INVOICE_CHANGED event
func NewInvoiceChangedEvent(inv *Invoice) *InvoiceEvent {
	return newInvoiceEvent(EventTypeInvoiceChanged, inv)
}

func newInvoiceEvent(eventType string, inv *Invoice) *InvoiceEvent {
	return &InvoiceEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
		Status:          inv.Status,
	}
}

// NewCustomerChangedEvent forces a recalculation for a customer when the change
// is not tied to one invoice (e.g. a payment with several reversals was deleted).
func NewCustomerChangedEvent(customerID uuid.UUID) *InvoiceEvent {
	return &InvoiceEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceChanged, AggregateTypeCustomer, customerID),
		CustomerID:      customerID,
	}
}

// PaymentAllocatedEvent is raised after an allocation plan has been applied
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	PaymentNumber  string          `json:"payment_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Strategy       string          `json:"strategy"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Unallocated    decimal.Decimal `json:"unallocated"`
}

// CustomerRef returns the affected customer
func (e *PaymentAllocatedEvent) CustomerRef() uuid.UUID { return e.CustomerID }

// NewPaymentAllocatedEvent creates a PAYMENT_ALLOCATED event
func NewPaymentAllocatedEvent(p *Payment, strategy string, total decimal.Decimal) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentAllocated, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.Number,
		CustomerID:      p.CustomerID,
		Strategy:        strategy,
		TotalAllocated:  total,
		Unallocated:     p.UnallocatedAmount,
	}
}

// PromiseBrokenEvent is raised when the tracker marks a lapsed promise BROKEN
type PromiseBrokenEvent struct {
	shared.BaseDomainEvent
	PromiseID      uuid.UUID           `json:"promise_id"`
	CustomerID     uuid.UUID           `json:"customer_id"`
	PromisedAmount decimal.NullDecimal `json:"promised_amount"`
	PromisedDate   string              `json:"promised_date"`
}

// CustomerRef returns the affected customer
func (e *PromiseBrokenEvent) CustomerRef() uuid.UUID { return e.CustomerID }

// NewPromiseBrokenEvent creates a PROMISE_BROKEN event
func NewPromiseBrokenEvent(p *PromiseDate) *PromiseBrokenEvent {
	return &PromiseBrokenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePromiseBroken, AggregateTypePromise, p.ID),
		PromiseID:       p.ID,
		CustomerID:      p.CustomerID,
		PromisedAmount:  p.PromisedAmount,
		PromisedDate:    p.PromisedDate.Format("2006-01-02"),
	}
}

// CreditLimitBreachedEvent is an advisory notification; the invoice that
// caused it has already been created.
type CreditLimitBreachedEvent struct {
	shared.BaseDomainEvent
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerCode  string          `json:"customer_code"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	ProjectedUsed decimal.Decimal `json:"projected_used"`
}

// CustomerRef returns the affected customer
func (e *CreditLimitBreachedEvent) CustomerRef() uuid.UUID { return e.CustomerID }

// NewCreditLimitBreachedEvent creates a CREDIT_LIMIT_BREACHED event
func NewCreditLimitBreachedEvent(c *Customer, invoiceID uuid.UUID, check CreditCheck) *CreditLimitBreachedEvent {
	return &CreditLimitBreachedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditLimitBreached, AggregateTypeCustomer, c.ID),
		CustomerID:      c.ID,
		CustomerCode:    c.Code,
		InvoiceID:       invoiceID,
		CreditLimit:     c.CreditLimit.Decimal,
		ProjectedUsed:   check.ProjectedUsed,
	}
}
