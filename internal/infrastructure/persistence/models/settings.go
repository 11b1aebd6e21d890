package models

import (
	"time"

	"github.com/erp/collections/internal/domain/receivable"
)

// SettingsModel stores the single GLOBAL settings row
type SettingsModel struct {
	ID                      string `gorm:"type:varchar(20);primaryKey"`
	DefaultPaymentTerms     int    `gorm:"not null"`
	OverdueGraceDays        int    `gorm:"not null"`
	WatchlistThresholdPct   int    `gorm:"not null"`
	HighRiskOverdueDays     int    `gorm:"not null"`
	BrokenPromisesThreshold int    `gorm:"not null"`
	Currency                string `gorm:"type:varchar(3);not null"`
	CurrencySymbol          string `gorm:"type:varchar(8);not null"`
	CompanyName             string `gorm:"type:varchar(200)"`
	UpdatedAt               time.Time
}

// TableName returns the table name for GORM
func (SettingsModel) TableName() string {
	return "settings"
}

// ToDomain converts the model to domain Settings
func (m *SettingsModel) ToDomain() receivable.Settings {
	return receivable.Settings{
		DefaultPaymentTerms:     m.DefaultPaymentTerms,
		OverdueGraceDays:        m.OverdueGraceDays,
		WatchlistThresholdPct:   m.WatchlistThresholdPct,
		HighRiskOverdueDays:     m.HighRiskOverdueDays,
		BrokenPromisesThreshold: m.BrokenPromisesThreshold,
		Currency:                m.Currency,
		CurrencySymbol:          m.CurrencySymbol,
		CompanyName:             m.CompanyName,
		UpdatedAt:               m.UpdatedAt,
	}
}

// SettingsModelFromDomain creates the GLOBAL row from domain Settings
func SettingsModelFromDomain(s receivable.Settings) *SettingsModel {
	return &SettingsModel{
		ID:                      receivable.SettingsID,
		DefaultPaymentTerms:     s.DefaultPaymentTerms,
		OverdueGraceDays:        s.OverdueGraceDays,
		WatchlistThresholdPct:   s.WatchlistThresholdPct,
		HighRiskOverdueDays:     s.HighRiskOverdueDays,
		BrokenPromisesThreshold: s.BrokenPromisesThreshold,
		Currency:                s.Currency,
		CurrencySymbol:          s.CurrencySymbol,
		CompanyName:             s.CompanyName,
		UpdatedAt:               s.UpdatedAt,
	}
}

// SequenceModel is a per-prefix document number counter
type SequenceModel struct {
	Prefix string `gorm:"type:varchar(10);primaryKey"`
	Value  int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SequenceModel) TableName() string {
	return "sequences"
}
