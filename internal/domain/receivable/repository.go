package receivable

import (
	"context"
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerFilter defines filtering options for customer queries
type CustomerFilter struct {
	shared.Filter
	RiskTier        *RiskTier
	IncludeInactive bool
}

// CustomerRepository defines customer persistence
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindByIDForUpdate loads the customer holding a row lock until the
	// transaction ends. The customer row serializes writers of its ledger.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Customer, error)
	FindAll(ctx context.Context, filter CustomerFilter) ([]*Customer, int64, error)
	FindActive(ctx context.Context) ([]*Customer, error)
	Save(ctx context.Context, customer *Customer) error
	UpdateAggregates(ctx context.Context, id uuid.UUID, a Aggregates) error
	UpdateRiskTier(ctx context.Context, id uuid.UUID, tier RiskTier) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Statuses   []InvoiceStatus
	DueFrom    *time.Time
	DueTo      *time.Time
}

// InvoiceRepository defines invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, int64, error)
	// FindByCustomer returns every invoice of the customer, any status
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)
	// FindOpenByCustomer returns invoices not PAID or WRITTEN_OFF, ascending by due date
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)
	// FindOpen returns every open invoice without line items
	FindOpen(ctx context.Context) ([]*Invoice, error)
	// UpdateStatuses moves the ids still in status from to status to, in one
	// statement. Rows changed since they were read are skipped.
	UpdateStatuses(ctx context.Context, ids []uuid.UUID, from, to InvoiceStatus) (int64, error)
	// Create inserts the invoice with its line items
	Create(ctx context.Context, invoice *Invoice) error
	// Save updates the invoice header; line items are left untouched
	Save(ctx context.Context, invoice *Invoice) error
	ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []InvoiceLineItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	CustomerID      *uuid.UUID
	Statuses        []PaymentStatus
	OnlyUnallocated bool
}

// PaymentRepository defines payment persistence
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AllocationRepository defines persistence of the payment/invoice join rows
type AllocationRepository interface {
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*PaymentAllocation, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*PaymentAllocation, error)
	Save(ctx context.Context, allocation *PaymentAllocation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PromiseFilter defines filtering options for promise queries
type PromiseFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Status     *PromiseStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// PromiseRepository defines promise persistence
type PromiseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PromiseDate, error)
	// FindByIDForUpdate loads the promise holding a row lock, so a sweep
	// marking it BROKEN waits for the transaction and then skips it
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PromiseDate, error)
	FindAll(ctx context.Context, filter PromiseFilter) ([]*PromiseDate, int64, error)
	// FindLapsed returns PENDING promises whose date is before cutoff
	FindLapsed(ctx context.Context, cutoff time.Time) ([]*PromiseDate, error)
	// MarkBroken transitions the given promises to BROKEN, skipping any that
	// are no longer PENDING, and returns the ids it changed
	MarkBroken(ctx context.Context, ids []uuid.UUID, resolvedAt time.Time) ([]uuid.UUID, error)
	CountBrokenSince(ctx context.Context, customerID uuid.UUID, since time.Time) (int64, error)
	BrokenSince(ctx context.Context, since time.Time) ([]*PromiseDate, error)
	CountByStatus(ctx context.Context) (map[PromiseStatus]int64, error)
	Save(ctx context.Context, promise *PromiseDate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CallLogRepository defines call log persistence
type CallLogRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CallLog, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*CallLog, int64, error)
	Save(ctx context.Context, log *CallLog) error
	// DetachPromise clears references to a deleted promise
	DetachPromise(ctx context.Context, promiseID uuid.UUID) error
}

// SettingsRepository stores the singleton settings record
type SettingsRepository interface {
	// Get returns the stored settings, creating the defaults when absent
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, settings Settings) error
}

// SequenceRepository issues human-readable document numbers
type SequenceRepository interface {
	// Next returns the next number for prefix, e.g. "INV" -> "INV-0007"
	Next(ctx context.Context, prefix string) (string, error)
}

// Document number prefixes
const (
	SequenceCustomer = "CUST"
	SequenceInvoice  = "INV"
	SequencePayment  = "PAY"
)
