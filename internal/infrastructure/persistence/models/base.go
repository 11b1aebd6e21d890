package models

import (
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides the id and timestamps shared by every entity table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// FromDomain populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomain(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// All lists every model in dependency order, for AutoMigrate in tests and
// local development.
func All() []any {
	return []any{
		&CustomerModel{},
		&InvoiceModel{},
		&InvoiceLineItemModel{},
		&PaymentModel{},
		&PaymentAllocationModel{},
		&PromiseDateModel{},
		&CallLogModel{},
		&SettingsModel{},
		&SequenceModel{},
	}
}
