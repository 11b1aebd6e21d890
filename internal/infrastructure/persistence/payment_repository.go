package persistence

import (
	"context"
	"errors"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/erp/collections/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.Payment, error) {
	return r.find(conn(ctx, r.db), id)
}

// FindByIDForUpdate finds a payment and locks its row
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receivable.Payment, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPaymentRepository) find(q *gorm.DB, id uuid.UUID) (*receivable.Payment, error) {
	var model models.PaymentModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given payments
func (r *GormPaymentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*receivable.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.PaymentModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("payment_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// FindAll lists payments with paging and filters
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter receivable.PaymentFilter) ([]*receivable.Payment, int64, error) {
	q := conn(ctx, r.db).Model(&models.PaymentModel{})
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if filter.OnlyUnallocated {
		q = q.Where("unallocated_amount > 0")
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(number) LIKE ? OR LOWER(reference) LIKE ?", p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PaymentModel
	if err := paginate(q, filter.Filter, PaymentSortFields, "payment_date", "DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return paymentsToDomain(rows), total, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *receivable.Payment) error {
	return conn(ctx, r.db).Save(models.PaymentModelFromDomain(payment)).Error
}

// Delete removes a payment. Allocation rows must be reversed first.
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("payment", id)
	}
	return nil
}

func paymentsToDomain(rows []models.PaymentModel) []*receivable.Payment {
	out := make([]*receivable.Payment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByPayment returns the allocation rows of a payment
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*receivable.PaymentAllocation, error) {
	return r.findWhere(ctx, "payment_id = ?", paymentID)
}

// FindByInvoice returns the allocation rows pointing at an invoice
func (r *GormAllocationRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*receivable.PaymentAllocation, error) {
	return r.findWhere(ctx, "invoice_id = ?", invoiceID)
}

func (r *GormAllocationRepository) findWhere(ctx context.Context, cond string, id uuid.UUID) ([]*receivable.PaymentAllocation, error) {
	var rows []models.PaymentAllocationModel
	if err := conn(ctx, r.db).Where(cond, id).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*receivable.PaymentAllocation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates an allocation row
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *receivable.PaymentAllocation) error {
	return conn(ctx, r.db).Save(models.PaymentAllocationModelFromDomain(allocation)).Error
}

// Delete removes an allocation row
func (r *GormAllocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&models.PaymentAllocationModel{}, "id = ?", id).Error
}

var (
	_ receivable.PaymentRepository    = (*GormPaymentRepository)(nil)
	_ receivable.AllocationRepository = (*GormAllocationRepository)(nil)
)
