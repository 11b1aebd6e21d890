package handler

import (
	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/gin-gonic/gin"
)

// CustomerHandler handles customer-related API endpoints
type CustomerHandler struct {
	BaseHandler
	customers *app.CustomerService
	risk      *app.RiskService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers *app.CustomerService, risk *app.RiskService) *CustomerHandler {
	return &CustomerHandler{customers: customers, risk: risk}
}

// Create handles POST /customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), req.details())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toCustomerResponse(customer))
}

// GetByID handles GET /customers/:id
func (h *CustomerHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toCustomerResponse(customer))
}

// List handles GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	var q CustomerListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := receivable.CustomerFilter{
		Filter:          listFilter(q.ListRequest),
		IncludeInactive: q.IncludeInactive,
	}
	if q.RiskTier != "" {
		tier := receivable.RiskTier(q.RiskTier)
		filter.RiskTier = &tier
	}

	page, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, toCustomerResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), id, req.details())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toCustomerResponse(customer))
}

// Deactivate handles DELETE /customers/:id. The customer is kept with its
// history and hidden from default listings.
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.customers.Deactivate(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Refresh handles POST /customers/:id/refresh: recompute totals and risk
func (h *CustomerHandler) Refresh(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	customer, err := h.customers.Refresh(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toCustomerResponse(customer))
}

// ClassifyRisk handles POST /customers/:id/risk
func (h *CustomerHandler) ClassifyRisk(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	tier, err := h.risk.Classify(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, RiskResponse{CustomerID: id.String(), RiskTier: tier})
}
