package handler

import (
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CreatePromiseRequest records a payment commitment. promised_amount may be
// omitted when the customer did not name a figure.
type CreatePromiseRequest struct {
	CustomerID     string           `json:"customer_id" binding:"required,uuid"`
	PromisedAmount *decimal.Decimal `json:"promised_amount" binding:"omitempty,gt=0"`
	PromisedDate   string           `json:"promised_date" binding:"required,datetime=2006-01-02"`
	Notes          string           `json:"notes" binding:"max=2000"`
	CallLogID      string           `json:"call_log_id" binding:"omitempty,uuid"`
}

// UpdatePromiseRequest edits a promise. Setting status resolves it.
type UpdatePromiseRequest struct {
	PromisedAmount *decimal.Decimal `json:"promised_amount" binding:"omitempty,gt=0"`
	ClearAmount    bool             `json:"clear_amount"`
	PromisedDate   *string          `json:"promised_date" binding:"omitempty,datetime=2006-01-02"`
	Notes          *string          `json:"notes" binding:"omitempty,max=2000"`
	Status         *string          `json:"status" binding:"omitempty,oneof=PENDING KEPT BROKEN"`
}

// PromiseListQuery filters the promise list
type PromiseListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING KEPT BROKEN"`
	DateFrom   string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo     string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
}

// PromiseResponse represents a promise in API responses
type PromiseResponse struct {
	ID             string                   `json:"id"`
	CustomerID     string                   `json:"customer_id"`
	PromisedAmount *decimal.Decimal         `json:"promised_amount"`
	PromisedDate   string                   `json:"promised_date"`
	Status         receivable.PromiseStatus `json:"status"`
	Notes          string                   `json:"notes"`
	ResolvedAt     *time.Time               `json:"resolved_at,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func toPromiseResponse(p *receivable.PromiseDate) *PromiseResponse {
	if p == nil {
		return nil
	}
	return &PromiseResponse{
		ID:             p.ID.String(),
		CustomerID:     p.CustomerID.String(),
		PromisedAmount: nullableAmount(p.PromisedAmount),
		PromisedDate:   formatDate(p.PromisedDate),
		Status:         p.Status,
		Notes:          p.Notes,
		ResolvedAt:     p.ResolvedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toPromiseResponses(promises []*receivable.PromiseDate) []*PromiseResponse {
	out := make([]*PromiseResponse, len(promises))
	for i, p := range promises {
		out[i] = toPromiseResponse(p)
	}
	return out
}
