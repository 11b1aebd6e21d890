package receivable

import (
	"net/mail"
	"strings"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RiskTier is a coarse customer classification derived from overdue
// severity, credit utilization and broken-promise history
type RiskTier string

const (
	RiskSafe      RiskTier = "SAFE"
	RiskWatchlist RiskTier = "WATCHLIST"
	RiskHigh      RiskTier = "HIGH_RISK"
)

// IsValid checks if the tier is a valid RiskTier
func (r RiskTier) IsValid() bool {
	return r == RiskSafe || r == RiskWatchlist || r == RiskHigh
}

// String returns the string representation of RiskTier
func (r RiskTier) String() string {
	return string(r)
}

// Customer is a billable party.
// OutstandingAmount, OverdueAmount and CreditUsed are caches written only by
// the aggregate recalculation; they can always be rebuilt from invoices.
type Customer struct {
	shared.BaseEntity
	Code              string
	Name              string
	ContactPerson     string
	Phone             string
	AlternatePhone    string
	Email             string
	Address           string
	CreditLimit       decimal.NullDecimal // NULL means unlimited
	PaymentTermDays   *int                // falls back to settings when nil
	OutstandingAmount decimal.Decimal
	OverdueAmount     decimal.Decimal
	CreditUsed        decimal.Decimal
	RiskTier          RiskTier
	IsActive          bool
}

// CustomerDetails carries the editable contact and credit fields
type CustomerDetails struct {
	Name            string
	ContactPerson   string
	Phone           string
	AlternatePhone  string
	Email           string
	Address         string
	CreditLimit     decimal.NullDecimal
	PaymentTermDays *int
}

// Validate checks the editable fields
func (d CustomerDetails) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return shared.NewValidationError("customer name is required")
	}
	if len(d.Name) > 200 {
		return shared.NewValidationError("customer name cannot exceed 200 characters")
	}
	if d.Email != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			return shared.NewValidationError("invalid email address %q", d.Email)
		}
	}
	if d.CreditLimit.Valid && d.CreditLimit.Decimal.IsNegative() {
		return shared.NewValidationError("credit limit cannot be negative")
	}
	if d.PaymentTermDays != nil && *d.PaymentTermDays < 0 {
		return shared.NewValidationError("payment terms cannot be negative")
	}
	return nil
}

// NewCustomer creates an active customer with zeroed aggregates
func NewCustomer(code string, details CustomerDetails) (*Customer, error) {
	if code == "" {
		return nil, shared.NewValidationError("customer code is required")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	c := &Customer{
		BaseEntity:        shared.NewBaseEntity(),
		Code:              code,
		OutstandingAmount: decimal.Zero,
		OverdueAmount:     decimal.Zero,
		CreditUsed:        decimal.Zero,
		RiskTier:          RiskSafe,
		IsActive:          true,
	}
	c.apply(details)
	return c, nil
}

// UpdateDetails replaces the editable fields
func (c *Customer) UpdateDetails(details CustomerDetails) error {
	if !c.IsActive {
		return shared.NewConflictError("customer %s is deactivated", c.Code)
	}
	if err := details.Validate(); err != nil {
		return err
	}
	c.apply(details)
	c.Touch()
	return nil
}

func (c *Customer) apply(d CustomerDetails) {
	c.Name = strings.TrimSpace(d.Name)
	c.ContactPerson = d.ContactPerson
	c.Phone = d.Phone
	c.AlternatePhone = d.AlternatePhone
	c.Email = d.Email
	c.Address = d.Address
	c.CreditLimit = d.CreditLimit
	c.PaymentTermDays = d.PaymentTermDays
}

// Deactivate soft-deletes the customer
func (c *Customer) Deactivate() error {
	if !c.IsActive {
		return shared.NewConflictError("customer %s is already deactivated", c.Code)
	}
	c.IsActive = false
	c.Touch()
	return nil
}

// HasCreditLimit reports whether a credit limit applies
func (c *Customer) HasCreditLimit() bool {
	return c.CreditLimit.Valid
}

// PaymentTerms returns the customer's terms, or fallback when unset
func (c *Customer) PaymentTerms(fallback int) int {
	if c.PaymentTermDays != nil {
		return *c.PaymentTermDays
	}
	return fallback
}

// ApplyAggregates stores freshly recomputed aggregates
func (c *Customer) ApplyAggregates(a Aggregates) {
	c.OutstandingAmount = a.Outstanding
	c.OverdueAmount = a.Overdue
	c.CreditUsed = a.Outstanding
}
