package handler

import (
	"strings"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/gin-gonic/gin"
)

// SettingsRequest replaces the ledger settings
type SettingsRequest struct {
	DefaultPaymentTerms     int    `json:"default_payment_terms" binding:"gte=0,lte=365"`
	OverdueGraceDays        int    `json:"overdue_grace_days" binding:"gte=0,lte=90"`
	WatchlistThresholdPct   int    `json:"watchlist_threshold_pct" binding:"gte=0,lte=100"`
	HighRiskOverdueDays     int    `json:"high_risk_overdue_days" binding:"gte=0"`
	BrokenPromisesThreshold int    `json:"broken_promises_threshold" binding:"required,gte=1"`
	Currency                string `json:"currency" binding:"required,len=3"`
	CurrencySymbol          string `json:"currency_symbol" binding:"max=8"`
	CompanyName             string `json:"company_name" binding:"max=200"`
}

// SettingsResponse represents the ledger settings
type SettingsResponse struct {
	DefaultPaymentTerms     int        `json:"default_payment_terms"`
	OverdueGraceDays        int        `json:"overdue_grace_days"`
	WatchlistThresholdPct   int        `json:"watchlist_threshold_pct"`
	HighRiskOverdueDays     int        `json:"high_risk_overdue_days"`
	BrokenPromisesThreshold int        `json:"broken_promises_threshold"`
	Currency                string     `json:"currency"`
	CurrencySymbol          string     `json:"currency_symbol"`
	CompanyName             string     `json:"company_name"`
	UpdatedAt               *time.Time `json:"updated_at,omitempty"`
}

func toSettingsResponse(s receivable.Settings) SettingsResponse {
	resp := SettingsResponse{
		DefaultPaymentTerms:     s.DefaultPaymentTerms,
		OverdueGraceDays:        s.OverdueGraceDays,
		WatchlistThresholdPct:   s.WatchlistThresholdPct,
		HighRiskOverdueDays:     s.HighRiskOverdueDays,
		BrokenPromisesThreshold: s.BrokenPromisesThreshold,
		Currency:                s.Currency,
		CurrencySymbol:          s.CurrencySymbol,
		CompanyName:             s.CompanyName,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = &s.UpdatedAt
	}
	return resp
}

// SettingsHandler handles the ledger settings endpoints
type SettingsHandler struct {
	BaseHandler
	settings *app.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toSettingsResponse(s))
}

// Update handles PUT /settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req SettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.settings.Update(c.Request.Context(), receivable.Settings{
		DefaultPaymentTerms:     req.DefaultPaymentTerms,
		OverdueGraceDays:        req.OverdueGraceDays,
		WatchlistThresholdPct:   req.WatchlistThresholdPct,
		HighRiskOverdueDays:     req.HighRiskOverdueDays,
		BrokenPromisesThreshold: req.BrokenPromisesThreshold,
		Currency:                strings.ToUpper(req.Currency),
		CurrencySymbol:          req.CurrencySymbol,
		CompanyName:             req.CompanyName,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toSettingsResponse(s))
}
