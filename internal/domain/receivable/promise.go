package receivable

import (
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromiseStatus tracks a payment commitment. KEPT and BROKEN are terminal.
type PromiseStatus string

const (
	PromiseStatusPending PromiseStatus = "PENDING"
	PromiseStatusKept    PromiseStatus = "KEPT"
	PromiseStatusBroken  PromiseStatus = "BROKEN"
)

// IsValid checks if the status is a valid PromiseStatus
func (s PromiseStatus) IsValid() bool {
	return s == PromiseStatusPending || s == PromiseStatusKept || s == PromiseStatusBroken
}

// PromiseDate is a customer's commitment to pay by a date
type PromiseDate struct {
	shared.BaseEntity
	CustomerID     uuid.UUID
	PromisedAmount decimal.NullDecimal
	PromisedDate   time.Time
	Status         PromiseStatus
	Notes          string
	ResolvedAt     *time.Time
}

// NewPromise creates a PENDING promise
func NewPromise(customerID uuid.UUID, amount decimal.NullDecimal, promisedDate time.Time, notes string) (*PromiseDate, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("customer is required")
	}
	if promisedDate.IsZero() {
		return nil, shared.NewValidationError("promised date is required")
	}
	if amount.Valid && !amount.Decimal.IsPositive() {
		return nil, shared.NewValidationError("promised amount must be positive")
	}
	return &PromiseDate{
		BaseEntity:     shared.NewBaseEntity(),
		CustomerID:     customerID,
		PromisedAmount: amount,
		PromisedDate:   promisedDate,
		Status:         PromiseStatusPending,
		Notes:          notes,
	}, nil
}

// IsPending reports whether the promise can still transition
func (p *PromiseDate) IsPending() bool {
	return p.Status == PromiseStatusPending
}

// Resolve moves a pending promise to KEPT or BROKEN
func (p *PromiseDate) Resolve(status PromiseStatus, at time.Time) error {
	if !p.IsPending() {
		return shared.NewConflictError("promise is already %s", p.Status)
	}
	if status != PromiseStatusKept && status != PromiseStatusBroken {
		return shared.NewValidationError("promise can only be resolved to KEPT or BROKEN")
	}
	p.Status = status
	p.ResolvedAt = &at
	p.Touch()
	return nil
}

// PromiseRevision carries the editable promise fields
type PromiseRevision struct {
	PromisedAmount *decimal.NullDecimal
	PromisedDate   *time.Time
	Notes          *string
	Status         *PromiseStatus
}

// Revise applies edits. Resolved promises accept notes only.
func (p *PromiseDate) Revise(r PromiseRevision, now time.Time) error {
	if !p.IsPending() {
		if r.PromisedAmount != nil || r.PromisedDate != nil || (r.Status != nil && *r.Status != p.Status) {
			return shared.NewConflictError("promise is already %s; only notes can change", p.Status)
		}
		if r.Notes != nil {
			p.Notes = *r.Notes
			p.Touch()
		}
		return nil
	}

	if r.PromisedAmount != nil {
		if r.PromisedAmount.Valid && !r.PromisedAmount.Decimal.IsPositive() {
			return shared.NewValidationError("promised amount must be positive")
		}
		p.PromisedAmount = *r.PromisedAmount
	}
	if r.PromisedDate != nil {
		if r.PromisedDate.IsZero() {
			return shared.NewValidationError("promised date is required")
		}
		p.PromisedDate = *r.PromisedDate
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	if r.Status != nil && *r.Status != PromiseStatusPending {
		if !r.Status.IsValid() {
			return shared.NewValidationError("invalid promise status %q", *r.Status)
		}
		return p.Resolve(*r.Status, now)
	}
	p.Touch()
	return nil
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
