package handler

import (
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/erp/collections/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CallPromiseRequest is a promise captured during a call
type CallPromiseRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	Date   string           `json:"date" binding:"required,datetime=2006-01-02"`
	Notes  string           `json:"notes" binding:"max=2000"`
}

// CreateCallLogRequest records a collection call. call_date defaults to now
// and called_by to the authenticated user.
type CreateCallLogRequest struct {
	CustomerID string              `json:"customer_id" binding:"required,uuid"`
	CallDate   *time.Time          `json:"call_date"`
	Status     string              `json:"call_status" binding:"required,oneof=CONNECTED NOT_REACHABLE CALL_BACK_LATER LEFT_MESSAGE WRONG_NUMBER"`
	Notes      string              `json:"notes" binding:"max=2000"`
	CalledBy   string              `json:"called_by" binding:"max=100"`
	Promise    *CallPromiseRequest `json:"promise"`
}

// CallLogResponse represents a call log in API responses
type CallLogResponse struct {
	ID          string                `json:"id"`
	CustomerID  string                `json:"customer_id"`
	CallDate    time.Time             `json:"call_date"`
	Status      receivable.CallStatus `json:"call_status"`
	Notes       string                `json:"notes"`
	CalledBy    string                `json:"called_by"`
	PromiseMade bool                  `json:"promise_made"`
	PromiseID   *string               `json:"promise_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// CallLogCreatedResponse is the stored call and the promise it produced
type CallLogCreatedResponse struct {
	CallLog CallLogResponse  `json:"call_log"`
	Promise *PromiseResponse `json:"promise,omitempty"`
}

func toCallLogResponse(l *receivable.CallLog) CallLogResponse {
	resp := CallLogResponse{
		ID:          l.ID.String(),
		CustomerID:  l.CustomerID.String(),
		CallDate:    l.CallDate,
		Status:      l.Status,
		Notes:       l.Notes,
		CalledBy:    l.CalledBy,
		PromiseMade: l.PromiseMade,
		CreatedAt:   l.CreatedAt,
	}
	if l.PromiseID != nil {
		id := l.PromiseID.String()
		resp.PromiseID = &id
	}
	return resp
}

// CallLogHandler handles collection call endpoints
type CallLogHandler struct {
	BaseHandler
	calls *app.CallLogService
}

// NewCallLogHandler creates a new CallLogHandler
func NewCallLogHandler(calls *app.CallLogService) *CallLogHandler {
	return &CallLogHandler{calls: calls}
}

// Create handles POST /call-logs
func (h *CallLogHandler) Create(c *gin.Context) {
	var req CreateCallLogRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in := app.CreateCallLogInput{
		CustomerID: uuid.MustParse(req.CustomerID),
		Status:     receivable.CallStatus(req.Status),
		Notes:      req.Notes,
		CalledBy:   req.CalledBy,
	}
	if in.CalledBy == "" {
		in.CalledBy = middleware.GetActor(c)
	}
	if req.CallDate != nil {
		in.CallDate = *req.CallDate
	}
	if req.Promise != nil {
		date, err := parseDate(req.Promise.Date)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		in.Promise = &app.PromiseInput{
			Amount: toNullDecimal(req.Promise.Amount),
			Date:   date,
			Notes:  req.Promise.Notes,
		}
	}

	res, err := h.calls.Create(c.Request.Context(), in)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, CallLogCreatedResponse{
		CallLog: toCallLogResponse(res.CallLog),
		Promise: toPromiseResponse(res.Promise),
	})
}

// ListByCustomer handles GET /customers/:id/call-logs, newest first
func (h *CallLogHandler) ListByCustomer(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var q dto.ListRequest
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.calls.ListByCustomer(c.Request.Context(), id, listFilter(q))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	out := make([]CallLogResponse, len(page.Items))
	for i, l := range page.Items {
		out[i] = toCallLogResponse(l)
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}
