package models

import (
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	BaseModel
	Number        string                 `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	InvoiceDate   time.Time              `gorm:"type:date;not null"`
	DueDate       time.Time              `gorm:"type:date;not null;index"`
	TotalAmount   decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	PaidAmount    decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	BalanceAmount decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Status        string                 `gorm:"type:varchar(20);not null;index"`
	Notes         string                 `gorm:"type:text"`
	LineItems     []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineItemModel is one billed line of an invoice
type InvoiceLineItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *receivable.Invoice {
	inv := &receivable.Invoice{
		BaseEntity:    m.BaseModel.ToDomain(),
		Number:        m.Number,
		CustomerID:    m.CustomerID,
		InvoiceDate:   m.InvoiceDate,
		DueDate:       m.DueDate,
		TotalAmount:   m.TotalAmount,
		PaidAmount:    m.PaidAmount,
		BalanceAmount: m.BalanceAmount,
		Status:        receivable.InvoiceStatus(m.Status),
		Notes:         m.Notes,
	}
	if len(m.LineItems) > 0 {
		inv.LineItems = make([]receivable.InvoiceLineItem, len(m.LineItems))
		for i, li := range m.LineItems {
			inv.LineItems[i] = receivable.InvoiceLineItem{
				ID:          li.ID,
				Description: li.Description,
				Quantity:    li.Quantity,
				Rate:        li.Rate,
				Amount:      li.Amount,
			}
		}
	}
	return inv
}

// InvoiceModelFromDomain creates a model, including line items, from a domain Invoice
func InvoiceModelFromDomain(inv *receivable.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:        inv.Number,
		CustomerID:    inv.CustomerID,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		BalanceAmount: inv.BalanceAmount,
		Status:        string(inv.Status),
		Notes:         inv.Notes,
	}
	m.BaseModel.FromDomain(inv.BaseEntity)
	for i, li := range inv.LineItems {
		m.LineItems = append(m.LineItems, InvoiceLineItemModel{
			ID:          li.ID,
			InvoiceID:   inv.ID,
			Position:    i + 1,
			Description: li.Description,
			Quantity:    li.Quantity,
			Rate:        li.Rate,
			Amount:      li.Amount,
		})
	}
	return m
}
