package receivable

import (
	"strings"
	"time"

	"github.com/erp/collections/internal/domain/shared"
)

// SettingsID is the key of the singleton settings record
const SettingsID = "GLOBAL"

// Settings holds the thresholds consumed by the risk classifier and the
// defaults used when creating invoices. Loaded once per operation and
// passed explicitly.
type Settings struct {
	DefaultPaymentTerms     int
	OverdueGraceDays        int
	WatchlistThresholdPct   int
	HighRiskOverdueDays     int
	BrokenPromisesThreshold int
	Currency                string
	CurrencySymbol          string
	CompanyName             string
	UpdatedAt               time.Time
}

// DefaultSettings returns the settings used before anyone edits them
func DefaultSettings() Settings {
	return Settings{
		DefaultPaymentTerms:     30,
		OverdueGraceDays:        0,
		WatchlistThresholdPct:   80,
		HighRiskOverdueDays:     60,
		BrokenPromisesThreshold: 2,
		Currency:                "INR",
		CurrencySymbol:          "₹",
		CompanyName:             "",
	}
}

// Validate checks ranges of the numeric options
func (s Settings) Validate() error {
	switch {
	case s.DefaultPaymentTerms < 0:
		return shared.NewValidationError("default payment terms cannot be negative")
	case s.OverdueGraceDays < 0:
		return shared.NewValidationError("overdue grace days cannot be negative")
	case s.WatchlistThresholdPct < 0 || s.WatchlistThresholdPct > 100:
		return shared.NewValidationError("watchlist threshold must be between 0 and 100")
	case s.HighRiskOverdueDays < 0:
		return shared.NewValidationError("high risk overdue days cannot be negative")
	case s.BrokenPromisesThreshold < 1:
		return shared.NewValidationError("broken promises threshold must be at least 1")
	case len(strings.TrimSpace(s.Currency)) != 3:
		return shared.NewValidationError("currency must be a 3-letter code")
	}
	return nil
}

// RiskThresholds extracts the thresholds used by ClassifyRisk
func (s Settings) RiskThresholds() RiskThresholds {
	return RiskThresholds{
		HighRiskOverdueDays:     s.HighRiskOverdueDays,
		BrokenPromisesThreshold: s.BrokenPromisesThreshold,
		WatchlistThresholdPct:   s.WatchlistThresholdPct,
	}
}

// OverdueReference shifts now back by the grace period. Invoices become
// OVERDUE only once their due date is before this instant.
func (s Settings) OverdueReference(now time.Time) time.Time {
	if s.OverdueGraceDays <= 0 {
		return now
	}
	return now.AddDate(0, 0, -s.OverdueGraceDays)
}

// DueDateFor returns invoiceDate plus the applicable payment terms
func (s Settings) DueDateFor(c *Customer, invoiceDate time.Time) time.Time {
	return invoiceDate.AddDate(0, 0, c.PaymentTerms(s.DefaultPaymentTerms))
}
