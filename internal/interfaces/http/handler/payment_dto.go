package handler

import (
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest records a received payment. auto_allocate applies it
// oldest-first to open invoices in the same transaction.
type CreatePaymentRequest struct {
	CustomerID   string          `json:"customer_id" binding:"required,uuid"`
	PaymentDate  string          `json:"payment_date" binding:"required,datetime=2006-01-02"`
	Amount       decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Mode         string          `json:"payment_mode" binding:"required,oneof=CASH CHEQUE NEFT RTGS IMPS UPI OTHER"`
	Reference    string          `json:"reference_number" binding:"max=100"`
	Notes        string          `json:"notes" binding:"max=2000"`
	AutoAllocate bool            `json:"auto_allocate"`
}

// UpdatePaymentRequest edits a payment; omitted fields stay unchanged
type UpdatePaymentRequest struct {
	PaymentDate *string          `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Amount      *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	Mode        *string          `json:"payment_mode" binding:"omitempty,oneof=CASH CHEQUE NEFT RTGS IMPS UPI OTHER"`
	Reference   *string          `json:"reference_number" binding:"omitempty,max=100"`
	Notes       *string          `json:"notes" binding:"omitempty,max=2000"`
}

// AllocationItemRequest is one manual allocation line
type AllocationItemRequest struct {
	InvoiceID string          `json:"invoice_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

// AllocateRequest selects the allocation strategy. Items are required for
// MANUAL and ignored for FIFO.
type AllocateRequest struct {
	Strategy string                  `json:"strategy" binding:"omitempty,oneof=FIFO MANUAL fifo manual"`
	Items    []AllocationItemRequest `json:"items" binding:"omitempty,dive"`
}

// PaymentListQuery filters the payment list
type PaymentListQuery struct {
	dto.ListRequest
	CustomerID      string `form:"customer_id" binding:"omitempty,uuid"`
	Status          string `form:"status"`
	OnlyUnallocated bool   `form:"only_unallocated"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                string                   `json:"id"`
	Number            string                   `json:"payment_number"`
	CustomerID        string                   `json:"customer_id"`
	PaymentDate       string                   `json:"payment_date"`
	Amount            decimal.Decimal          `json:"amount"`
	Mode              receivable.PaymentMode   `json:"payment_mode"`
	Reference         string                   `json:"reference_number"`
	Notes             string                   `json:"notes"`
	AllocatedAmount   decimal.Decimal          `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal          `json:"unallocated_amount"`
	Status            receivable.PaymentStatus `json:"status"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// PaymentCreatedResponse is a new payment and its allocation run, if any
type PaymentCreatedResponse struct {
	PaymentResponse
	Allocation *app.AllocationResult `json:"allocation,omitempty"`
}

// AllocationResponse is one payment-to-invoice allocation row
type AllocationResponse struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func toPaymentResponse(p *receivable.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID.String(),
		Number:            p.Number,
		CustomerID:        p.CustomerID.String(),
		PaymentDate:       formatDate(p.PaymentDate),
		Amount:            p.Amount,
		Mode:              p.Mode,
		Reference:         p.Reference,
		Notes:             p.Notes,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toPaymentResponses(payments []*receivable.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = toPaymentResponse(p)
	}
	return out
}

func toAllocationResponses(rows []*receivable.PaymentAllocation) []AllocationResponse {
	out := make([]AllocationResponse, len(rows))
	for i, a := range rows {
		out[i] = AllocationResponse{
			ID:        a.ID.String(),
			PaymentID: a.PaymentID.String(),
			InvoiceID: a.InvoiceID.String(),
			Amount:    a.Amount,
			CreatedAt: a.CreatedAt,
		}
	}
	return out
}
