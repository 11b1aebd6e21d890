package handler

import (
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/gin-gonic/gin"
)

// AgingQuery selects the aging reference date
type AgingQuery struct {
	AsOf string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// OutstandingQuery limits the outstanding report
type OutstandingQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// DailyListQuery selects the worklist day
type DailyListQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// DailyListResponse is the collector's worklist for one day
type DailyListResponse struct {
	Date             string                `json:"date"`
	OverdueCustomers []app.CustomerBalance `json:"overdue_customers"`
	DueToday         []InvoiceResponse     `json:"due_today"`
	PromisesDueToday []*PromiseResponse    `json:"promises_due_today"`
	RecentlyBroken   []*PromiseResponse    `json:"recently_broken"`
}

// ReportHandler serves the read-only portfolio reports
type ReportHandler struct {
	BaseHandler
	reports *app.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *app.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Aging handles GET /reports/aging
func (h *ReportHandler) Aging(c *gin.Context) {
	var q AgingQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ref, ok := h.optionalDay(c, q.AsOf)
	if !ok {
		return
	}

	report, err := h.reports.Aging(c.Request.Context(), ref)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// Outstanding handles GET /reports/outstanding
func (h *ReportHandler) Outstanding(c *gin.Context) {
	var q OutstandingQuery
	if !h.BindQuery(c, &q) {
		return
	}

	rows, err := h.reports.Outstanding(c.Request.Context(), q.Limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, rows)
}

// CreditUtilization handles GET /reports/credit-utilization
func (h *ReportHandler) CreditUtilization(c *gin.Context) {
	rows, err := h.reports.CreditUtilization(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, rows)
}

// PromisePerformance handles GET /reports/promise-performance
func (h *ReportHandler) PromisePerformance(c *gin.Context) {
	perf, err := h.reports.PromisePerformance(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, perf)
}

// DailyList handles GET /reports/daily-list
func (h *ReportHandler) DailyList(c *gin.Context) {
	var q DailyListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	day, ok := h.optionalDay(c, q.Date)
	if !ok {
		return
	}

	list, err := h.reports.DailyList(c.Request.Context(), day)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	overdue := list.OverdueCustomers
	if overdue == nil {
		overdue = []app.CustomerBalance{}
	}
	h.Success(c, DailyListResponse{
		Date:             formatDate(list.Date),
		OverdueCustomers: overdue,
		DueToday:         toInvoiceResponses(list.DueToday),
		PromisesDueToday: toPromiseResponses(list.PromisesDueToday),
		RecentlyBroken:   toPromiseResponses(list.RecentlyBroken),
	})
}

// optionalDay parses an optional date query; the zero time means today
func (h *ReportHandler) optionalDay(c *gin.Context, s string) (time.Time, bool) {
	d, err := parseOptionalDate(s)
	if err != nil {
		h.HandleDomainError(c, err)
		return time.Time{}, false
	}
	if d == nil {
		return time.Time{}, true
	}
	return *d, true
}
