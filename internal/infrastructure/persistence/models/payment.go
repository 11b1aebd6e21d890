package models

import (
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for payments
type PaymentModel struct {
	BaseModel
	Number            string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentDate       time.Time       `gorm:"type:date;not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Mode              string          `gorm:"type:varchar(20);not null"`
	Reference         string          `gorm:"type:varchar(100)"`
	Notes             string          `gorm:"type:text"`
	AllocatedAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	UnallocatedAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *receivable.Payment {
	return &receivable.Payment{
		BaseEntity:        m.BaseModel.ToDomain(),
		Number:            m.Number,
		CustomerID:        m.CustomerID,
		PaymentDate:       m.PaymentDate,
		Amount:            m.Amount,
		Mode:              receivable.PaymentMode(m.Mode),
		Reference:         m.Reference,
		Notes:             m.Notes,
		AllocatedAmount:   m.AllocatedAmount,
		UnallocatedAmount: m.UnallocatedAmount,
		Status:            receivable.PaymentStatus(m.Status),
	}
}

// PaymentModelFromDomain creates a model from a domain Payment
func PaymentModelFromDomain(p *receivable.Payment) *PaymentModel {
	m := &PaymentModel{
		Number:            p.Number,
		CustomerID:        p.CustomerID,
		PaymentDate:       p.PaymentDate,
		Amount:            p.Amount,
		Mode:              string(p.Mode),
		Reference:         p.Reference,
		Notes:             p.Notes,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		Status:            string(p.Status),
	}
	m.BaseModel.FromDomain(p.BaseEntity)
	return m
}

// PaymentAllocationModel joins a payment to an invoice with the applied amount
type PaymentAllocationModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_invoice,priority:1"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_invoice,priority:2;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the model to a domain PaymentAllocation
func (m *PaymentAllocationModel) ToDomain() *receivable.PaymentAllocation {
	return &receivable.PaymentAllocation{
		ID:        m.ID,
		PaymentID: m.PaymentID,
		InvoiceID: m.InvoiceID,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// PaymentAllocationModelFromDomain creates a model from a domain PaymentAllocation
func PaymentAllocationModelFromDomain(a *receivable.PaymentAllocation) *PaymentAllocationModel {
	return &PaymentAllocationModel{
		ID:        a.ID,
		PaymentID: a.PaymentID,
		InvoiceID: a.InvoiceID,
		Amount:    a.Amount,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
