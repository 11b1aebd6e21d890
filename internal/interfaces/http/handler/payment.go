package handler

import (
	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/receivable/allocation"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment and allocation endpoints
type PaymentHandler struct {
	BaseHandler
	payments *app.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *app.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create handles POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.PaymentDate)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	res, err := h.payments.Create(c.Request.Context(), app.CreatePaymentInput{
		CustomerID:   uuid.MustParse(req.CustomerID),
		PaymentDate:  date,
		Amount:       req.Amount,
		Mode:         receivable.PaymentMode(req.Mode),
		Reference:    req.Reference,
		Notes:        req.Notes,
		AutoAllocate: req.AutoAllocate,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, PaymentCreatedResponse{
		PaymentResponse: toPaymentResponse(res.Payment),
		Allocation:      res.Allocation,
	})
}

// GetByID handles GET /payments/:id
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	p, err := h.payments.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(p))
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	var q PaymentListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := receivable.PaymentFilter{Filter: listFilter(q.ListRequest), OnlyUnallocated: q.OnlyUnallocated}
	for _, s := range splitList(q.Status) {
		status := receivable.PaymentStatus(s)
		switch status {
		case receivable.PaymentStatusUnallocated, receivable.PaymentStatusPartial, receivable.PaymentStatusApplied:
		default:
			h.HandleDomainError(c, shared.NewValidationError("unknown payment status %q", s))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	var err error
	if filter.CustomerID, err = parseOptionalUUID(q.CustomerID, "customer_id"); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	page, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, toPaymentResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /payments/:id
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rev := receivable.PaymentRevision{
		Amount:    req.Amount,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	if req.PaymentDate != nil {
		d, err := parseDate(*req.PaymentDate)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		rev.PaymentDate = &d
	}
	if req.Mode != nil {
		mode := receivable.PaymentMode(*req.Mode)
		rev.Mode = &mode
	}

	p, err := h.payments.Update(c.Request.Context(), id, rev)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(p))
}

// Delete handles DELETE /payments/:id. Allocated amounts flow back to
// their invoices.
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.payments.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Allocate handles POST /payments/:id/allocate
func (h *PaymentHandler) Allocate(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]allocation.ManualItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = allocation.ManualItem{InvoiceID: uuid.MustParse(it.InvoiceID), Amount: it.Amount}
	}

	res, err := h.payments.Allocate(c.Request.Context(), id, req.Strategy, items)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, res)
}

// ListAllocations handles GET /payments/:id/allocations
func (h *PaymentHandler) ListAllocations(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	rows, err := h.payments.ListAllocations(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toAllocationResponses(rows))
}
