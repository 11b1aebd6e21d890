package persistence

import (
	"fmt"
	"strings"

	"github.com/erp/collections/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to def.
func ValidateSortOrder(orderDir, def string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return def
}

// ValidateSortField returns sortField when whitelisted, else defaultField.
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"code":               true,
	"name":               true,
	"created_at":         true,
	"outstanding_amount": true,
	"overdue_amount":     true,
	"risk_tier":          true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"number":         true,
	"invoice_date":   true,
	"due_date":       true,
	"total_amount":   true,
	"balance_amount": true,
	"status":         true,
	"created_at":     true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"number":       true,
	"payment_date": true,
	"amount":       true,
	"status":       true,
	"created_at":   true,
}

// PromiseSortFields contains allowed sort fields for promises
var PromiseSortFields = map[string]bool{
	"promised_date": true,
	"status":        true,
	"created_at":    true,
}

// paginate applies whitelisted ordering and the page window. id is
// appended as a tie breaker so pages are stable.
func paginate(q *gorm.DB, f shared.Filter, allowed map[string]bool, defField, defDir string) *gorm.DB {
	f = f.Normalize()
	field := ValidateSortField(f.OrderBy, allowed, defField)
	dir := ValidateSortOrder(f.OrderDir, defDir)
	return q.Order(fmt.Sprintf("%s %s, id ASC", field, dir)).
		Offset(f.Offset()).
		Limit(f.PageSize)
}

// likePattern builds a case-insensitive LIKE pattern for the search term
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
