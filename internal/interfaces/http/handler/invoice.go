package handler

import (
	"net/http"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoices *app.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *app.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create handles POST /invoices. A credit limit breach does not block the
// invoice; it comes back as a warning next to the created invoice.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in := app.CreateInvoiceInput{
		CustomerID:  uuid.MustParse(req.CustomerID),
		TotalAmount: req.TotalAmount,
		LineItems:   toLineItemInputs(req.LineItems),
		Notes:       req.Notes,
	}
	var err error
	if in.InvoiceDate, err = parseDate(req.InvoiceDate); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if in.DueDate, err = parseOptionalDate(req.DueDate); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	res, err := h.invoices.Create(c.Request.Context(), in)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	body, warnings := toInvoiceWithCredit(res)
	h.Respond(c, http.StatusCreated, body, warnings)
}

// GetByID handles GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, InvoiceDetailResponse{
		InvoiceResponse: toInvoiceResponse(detail.Invoice),
		Allocations:     toAllocationResponses(detail.Allocations),
	})
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var q InvoiceListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := receivable.InvoiceFilter{Filter: listFilter(q.ListRequest)}
	for _, s := range splitList(q.Status) {
		status := receivable.InvoiceStatus(s)
		if !status.IsValid() {
			h.HandleDomainError(c, shared.NewValidationError("unknown invoice status %q", s))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	var err error
	if filter.CustomerID, err = parseOptionalUUID(q.CustomerID, "customer_id"); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if filter.DueFrom, err = parseOptionalDate(q.DueFrom); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if filter.DueTo, err = parseOptionalDate(q.DueTo); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	page, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, toInvoiceResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in := app.UpdateInvoiceInput{
		TotalAmount: req.TotalAmount,
		LineItems:   toLineItemInputs(req.LineItems),
		Notes:       req.Notes,
	}
	if req.InvoiceDate != nil {
		d, err := parseDate(*req.InvoiceDate)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		in.InvoiceDate = &d
	}
	if req.DueDate != nil {
		d, err := parseDate(*req.DueDate)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		in.DueDate = &d
	}

	res, err := h.invoices.Update(c.Request.Context(), id, in)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	body, warnings := toInvoiceWithCredit(res)
	h.Respond(c, http.StatusOK, body, warnings)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.invoices.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// WriteOff handles POST /invoices/:id/write-off
func (h *InvoiceHandler) WriteOff(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req WriteOffRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.WriteOff(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(inv))
}

// UndoWriteOff handles POST /invoices/:id/undo-write-off
func (h *InvoiceHandler) UndoWriteOff(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.UndoWriteOff(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(inv))
}
