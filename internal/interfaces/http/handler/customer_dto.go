package handler

import (
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CustomerRequest carries the editable customer fields. PUT replaces all of
// them; a missing credit_limit means unlimited credit.
type CustomerRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=200"`
	ContactPerson   string           `json:"contact_person" binding:"max=200"`
	Phone           string           `json:"phone" binding:"max=30"`
	AlternatePhone  string           `json:"alternate_phone" binding:"max=30"`
	Email           string           `json:"email" binding:"omitempty,email,max=200"`
	Address         string           `json:"address" binding:"max=1000"`
	CreditLimit     *decimal.Decimal `json:"credit_limit" binding:"omitempty,gte=0"`
	PaymentTermDays *int             `json:"payment_term_days" binding:"omitempty,gte=0,lte=365"`
}

func (r CustomerRequest) details() receivable.CustomerDetails {
	return receivable.CustomerDetails{
		Name:            r.Name,
		ContactPerson:   r.ContactPerson,
		Phone:           r.Phone,
		AlternatePhone:  r.AlternatePhone,
		Email:           r.Email,
		Address:         r.Address,
		CreditLimit:     toNullDecimal(r.CreditLimit),
		PaymentTermDays: r.PaymentTermDays,
	}
}

// CustomerListQuery filters the customer list
type CustomerListQuery struct {
	dto.ListRequest
	RiskTier        string `form:"risk_tier" binding:"omitempty,oneof=SAFE WATCHLIST HIGH_RISK"`
	IncludeInactive bool   `form:"include_inactive"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID                   string              `json:"id"`
	Code                 string              `json:"code"`
	Name                 string              `json:"name"`
	ContactPerson        string              `json:"contact_person"`
	Phone                string              `json:"phone"`
	AlternatePhone       string              `json:"alternate_phone"`
	Email                string              `json:"email"`
	Address              string              `json:"address"`
	CreditLimit          *decimal.Decimal    `json:"credit_limit"`
	PaymentTermDays      *int                `json:"payment_term_days"`
	OutstandingAmount    decimal.Decimal     `json:"outstanding_amount"`
	OverdueAmount        decimal.Decimal     `json:"overdue_amount"`
	CreditUsed           decimal.Decimal     `json:"credit_used"`
	CreditUtilizationPct decimal.Decimal     `json:"credit_utilization_pct"`
	RiskTier             receivable.RiskTier `json:"risk_tier"`
	IsActive             bool                `json:"is_active"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// RiskResponse is the outcome of a risk recompute
type RiskResponse struct {
	CustomerID string              `json:"customer_id"`
	RiskTier   receivable.RiskTier `json:"risk_tier"`
}

func toCustomerResponse(c *receivable.Customer) CustomerResponse {
	return CustomerResponse{
		ID:                   c.ID.String(),
		Code:                 c.Code,
		Name:                 c.Name,
		ContactPerson:        c.ContactPerson,
		Phone:                c.Phone,
		AlternatePhone:       c.AlternatePhone,
		Email:                c.Email,
		Address:              c.Address,
		CreditLimit:          nullableAmount(c.CreditLimit),
		PaymentTermDays:      c.PaymentTermDays,
		OutstandingAmount:    c.OutstandingAmount,
		OverdueAmount:        c.OverdueAmount,
		CreditUsed:           c.CreditUsed,
		CreditUtilizationPct: receivable.CreditUtilization(c.CreditUsed, c.CreditLimit).Round(2),
		RiskTier:             c.RiskTier,
		IsActive:             c.IsActive,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func toCustomerResponses(customers []*receivable.Customer) []CustomerResponse {
	out := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		out[i] = toCustomerResponse(c)
	}
	return out
}
