package models

import (
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromiseDateModel is the persistence model for payment promises
type PromiseDateModel struct {
	BaseModel
	CustomerID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	PromisedAmount decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	PromisedDate   time.Time           `gorm:"type:date;not null;index"`
	Status         string              `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Notes          string              `gorm:"type:text"`
	ResolvedAt     *time.Time
}

// TableName returns the table name for GORM
func (PromiseDateModel) TableName() string {
	return "promise_dates"
}

// ToDomain converts the model to a domain PromiseDate
func (m *PromiseDateModel) ToDomain() *receivable.PromiseDate {
	return &receivable.PromiseDate{
		BaseEntity:     m.BaseModel.ToDomain(),
		CustomerID:     m.CustomerID,
		PromisedAmount: m.PromisedAmount,
		PromisedDate:   m.PromisedDate,
		Status:         receivable.PromiseStatus(m.Status),
		Notes:          m.Notes,
		ResolvedAt:     m.ResolvedAt,
	}
}

// PromiseDateModelFromDomain creates a model from a domain PromiseDate
func PromiseDateModelFromDomain(p *receivable.PromiseDate) *PromiseDateModel {
	m := &PromiseDateModel{
		CustomerID:     p.CustomerID,
		PromisedAmount: p.PromisedAmount,
		PromisedDate:   p.PromisedDate,
		Status:         string(p.Status),
		Notes:          p.Notes,
		ResolvedAt:     p.ResolvedAt,
	}
	m.BaseModel.FromDomain(p.BaseEntity)
	return m
}

// CallLogModel is the persistence model for collection calls
type CallLogModel struct {
	BaseModel
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CallDate    time.Time  `gorm:"not null;index"`
	Status      string     `gorm:"type:varchar(30);not null"`
	Notes       string     `gorm:"type:text"`
	CalledBy    string     `gorm:"type:varchar(100)"`
	PromiseMade bool       `gorm:"not null;default:false"`
	PromiseID   *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CallLogModel) TableName() string {
	return "call_logs"
}

// ToDomain converts the model to a domain CallLog
func (m *CallLogModel) ToDomain() *receivable.CallLog {
	return &receivable.CallLog{
		BaseEntity:  m.BaseModel.ToDomain(),
		CustomerID:  m.CustomerID,
		CallDate:    m.CallDate,
		Status:      receivable.CallStatus(m.Status),
		Notes:       m.Notes,
		CalledBy:    m.CalledBy,
		PromiseMade: m.PromiseMade,
		PromiseID:   m.PromiseID,
	}
}

// CallLogModelFromDomain creates a model from a domain CallLog
func CallLogModelFromDomain(l *receivable.CallLog) *CallLogModel {
	m := &CallLogModel{
		CustomerID:  l.CustomerID,
		CallDate:    l.CallDate,
		Status:      string(l.Status),
		Notes:       l.Notes,
		CalledBy:    l.CalledBy,
		PromiseMade: l.PromiseMade,
		PromiseID:   l.PromiseID,
	}
	m.BaseModel.FromDomain(l.BaseEntity)
	return m
}
