package models

import (
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for customers
type CustomerModel struct {
	BaseModel
	Code              string              `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name              string              `gorm:"type:varchar(200);not null;index"`
	ContactPerson     string              `gorm:"type:varchar(100)"`
	Phone             string              `gorm:"type:varchar(50)"`
	AlternatePhone    string              `gorm:"type:varchar(50)"`
	Email             string              `gorm:"type:varchar(200)"`
	Address           string              `gorm:"type:text"`
	CreditLimit       decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	PaymentTermDays   *int
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	OverdueAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreditUsed        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RiskTier          string          `gorm:"type:varchar(20);not null;default:'SAFE';index"`
	IsActive          bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() *receivable.Customer {
	return &receivable.Customer{
		BaseEntity:        m.BaseModel.ToDomain(),
		Code:              m.Code,
		Name:              m.Name,
		ContactPerson:     m.ContactPerson,
		Phone:             m.Phone,
		AlternatePhone:    m.AlternatePhone,
		Email:             m.Email,
		Address:           m.Address,
		CreditLimit:       m.CreditLimit,
		PaymentTermDays:   m.PaymentTermDays,
		OutstandingAmount: m.OutstandingAmount,
		OverdueAmount:     m.OverdueAmount,
		CreditUsed:        m.CreditUsed,
		RiskTier:          receivable.RiskTier(m.RiskTier),
		IsActive:          m.IsActive,
	}
}

// CustomerModelFromDomain creates a model from a domain Customer
func CustomerModelFromDomain(c *receivable.Customer) *CustomerModel {
	m := &CustomerModel{
		Code:              c.Code,
		Name:              c.Name,
		ContactPerson:     c.ContactPerson,
		Phone:             c.Phone,
		AlternatePhone:    c.AlternatePhone,
		Email:             c.Email,
		Address:           c.Address,
		CreditLimit:       c.CreditLimit,
		PaymentTermDays:   c.PaymentTermDays,
		OutstandingAmount: c.OutstandingAmount,
		OverdueAmount:     c.OverdueAmount,
		CreditUsed:        c.CreditUsed,
		RiskTier:          string(c.RiskTier),
		IsActive:          c.IsActive,
	}
	m.BaseModel.FromDomain(c.BaseEntity)
	return m
}
