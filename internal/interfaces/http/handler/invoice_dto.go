package handler

import (
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one invoice line
type LineItemRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	Rate        decimal.Decimal `json:"rate" binding:"gte=0"`
}

// CreateInvoiceRequest represents a request to issue an invoice. total_amount
// is ignored when line items are given; due_date defaults to the payment terms.
type CreateInvoiceRequest struct {
	CustomerID  string            `json:"customer_id" binding:"required,uuid"`
	InvoiceDate string            `json:"invoice_date" binding:"required,datetime=2006-01-02"`
	DueDate     string            `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	TotalAmount decimal.Decimal   `json:"total_amount" binding:"gte=0"`
	LineItems   []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
	Notes       string            `json:"notes" binding:"max=2000"`
}

// UpdateInvoiceRequest edits an invoice; omitted fields stay unchanged
type UpdateInvoiceRequest struct {
	InvoiceDate *string           `json:"invoice_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate     *string           `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	TotalAmount *decimal.Decimal  `json:"total_amount" binding:"omitempty,gt=0"`
	LineItems   []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
	Notes       *string           `json:"notes" binding:"omitempty,max=2000"`
}

// WriteOffRequest carries the write-off reason
type WriteOffRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// InvoiceListQuery filters the invoice list. status is a comma separated list.
type InvoiceListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	DueFrom    string `form:"due_from" binding:"omitempty,datetime=2006-01-02"`
	DueTo      string `form:"due_to" binding:"omitempty,datetime=2006-01-02"`
}

// LineItemResponse is one invoice line in responses
type LineItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            string                   `json:"id"`
	Number        string                   `json:"invoice_number"`
	CustomerID    string                   `json:"customer_id"`
	InvoiceDate   string                   `json:"invoice_date"`
	DueDate       string                   `json:"due_date"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	BalanceAmount decimal.Decimal          `json:"balance_amount"`
	Status        receivable.InvoiceStatus `json:"status"`
	Notes         string                   `json:"notes"`
	LineItems     []LineItemResponse       `json:"line_items"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// InvoiceDetailResponse adds the payments applied to the invoice
type InvoiceDetailResponse struct {
	InvoiceResponse
	Allocations []AllocationResponse `json:"allocations"`
}

// InvoiceWithCreditResponse is returned by create and update
type InvoiceWithCreditResponse struct {
	InvoiceResponse
	CreditCheck receivable.CreditCheck `json:"credit_check"`
}

func toInvoiceResponse(inv *receivable.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, len(inv.LineItems))
	for i, li := range inv.LineItems {
		items[i] = LineItemResponse{
			ID:          li.ID.String(),
			Description: li.Description,
			Quantity:    li.Quantity,
			Rate:        li.Rate,
			Amount:      li.Amount,
		}
	}
	return InvoiceResponse{
		ID:            inv.ID.String(),
		Number:        inv.Number,
		CustomerID:    inv.CustomerID.String(),
		InvoiceDate:   formatDate(inv.InvoiceDate),
		DueDate:       formatDate(inv.DueDate),
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		BalanceAmount: inv.BalanceAmount,
		Status:        inv.Status,
		Notes:         inv.Notes,
		LineItems:     items,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func toInvoiceResponses(invoices []*receivable.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = toInvoiceResponse(inv)
	}
	return out
}

func toInvoiceWithCredit(res *app.InvoiceResult) (InvoiceWithCreditResponse, []string) {
	var warnings []string
	if res.Credit.Warning && res.Credit.Message != "" {
		warnings = []string{res.Credit.Message}
	}
	return InvoiceWithCreditResponse{
		InvoiceResponse: toInvoiceResponse(res.Invoice),
		CreditCheck:     res.Credit,
	}, warnings
}

func toLineItemInputs(items []LineItemRequest) []app.LineItemInput {
	if items == nil {
		return nil
	}
	out := make([]app.LineItemInput, len(items))
	for i, li := range items {
		out[i] = app.LineItemInput{Description: li.Description, Quantity: li.Quantity, Rate: li.Rate}
	}
	return out
}
