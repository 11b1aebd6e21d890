package handler

import (
	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromiseHandler handles promise-to-pay endpoints
type PromiseHandler struct {
	BaseHandler
	promises *app.PromiseService
}

// NewPromiseHandler creates a new PromiseHandler
func NewPromiseHandler(promises *app.PromiseService) *PromiseHandler {
	return &PromiseHandler{promises: promises}
}

// Create handles POST /promises
func (h *PromiseHandler) Create(c *gin.Context) {
	var req CreatePromiseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.PromisedDate)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	in := app.CreatePromiseInput{
		CustomerID:     uuid.MustParse(req.CustomerID),
		PromisedAmount: toNullDecimal(req.PromisedAmount),
		PromisedDate:   date,
		Notes:          req.Notes,
	}
	if in.CallLogID, err = parseOptionalUUID(req.CallLogID, "call_log_id"); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	promise, err := h.promises.Create(c.Request.Context(), in)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toPromiseResponse(promise))
}

// GetByID handles GET /promises/:id
func (h *PromiseHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	promise, err := h.promises.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPromiseResponse(promise))
}

// List handles GET /promises
func (h *PromiseHandler) List(c *gin.Context) {
	var q PromiseListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := receivable.PromiseFilter{Filter: listFilter(q.ListRequest)}
	if q.Status != "" {
		status := receivable.PromiseStatus(q.Status)
		filter.Status = &status
	}
	var err error
	if filter.CustomerID, err = parseOptionalUUID(q.CustomerID, "customer_id"); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if filter.DateFrom, err = parseOptionalDate(q.DateFrom); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if filter.DateTo, err = parseOptionalDate(q.DateTo); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	page, err := h.promises.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, toPromiseResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /promises/:id
func (h *PromiseHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdatePromiseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rev := receivable.PromiseRevision{Notes: req.Notes}
	switch {
	case req.ClearAmount:
		rev.PromisedAmount = &decimal.NullDecimal{}
	case req.PromisedAmount != nil:
		amount := decimal.NewNullDecimal(*req.PromisedAmount)
		rev.PromisedAmount = &amount
	}
	if req.PromisedDate != nil {
		d, err := parseDate(*req.PromisedDate)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		rev.PromisedDate = &d
	}
	if req.Status != nil {
		status := receivable.PromiseStatus(*req.Status)
		rev.Status = &status
	}

	promise, err := h.promises.Update(c.Request.Context(), id, rev)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPromiseResponse(promise))
}

// MarkKept handles POST /promises/:id/keep
func (h *PromiseHandler) MarkKept(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	promise, err := h.promises.MarkKept(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPromiseResponse(promise))
}

// Delete handles DELETE /promises/:id
func (h *PromiseHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.promises.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
