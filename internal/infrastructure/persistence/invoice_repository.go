package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/erp/collections/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func withLineItems(q *gorm.DB) *gorm.DB {
	return q.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID finds an invoice with its line items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.Invoice, error) {
	return r.find(withLineItems(conn(ctx, r.db)), id)
}

// FindByIDForUpdate finds an invoice with its line items and locks the row
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receivable.Invoice, error) {
	return r.find(withLineItems(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"})), id)
}

func (r *GormInvoiceRepository) find(q *gorm.DB, id uuid.UUID) (*receivable.Invoice, error) {
	var model models.InvoiceModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given invoices without line items
func (r *GormInvoiceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*receivable.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.InvoiceModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("due_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindAll lists invoices with paging and filters
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter receivable.InvoiceFilter) ([]*receivable.Invoice, int64, error) {
	q := conn(ctx, r.db).Model(&models.InvoiceModel{})
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if filter.DueFrom != nil {
		q = q.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		q = q.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(number) LIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.InvoiceModel
	if err := paginate(q, filter.Filter, InvoiceSortFields, "due_date", "ASC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return invoicesToDomain(rows), total, nil
}

// FindByCustomer returns every invoice of the customer
func (r *GormInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*receivable.Invoice, error) {
	var rows []models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("due_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindOpenByCustomer returns the customer's open invoices, oldest due date first
func (r *GormInvoiceRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]*receivable.Invoice, error) {
	var rows []models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("customer_id = ? AND status NOT IN ?", customerID, statusStrings(receivable.ClosedInvoiceStatuses())).
		Order("due_date ASC, invoice_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindOpen returns every open invoice in the ledger
func (r *GormInvoiceRepository) FindOpen(ctx context.Context) ([]*receivable.Invoice, error) {
	var rows []models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("status NOT IN ?", statusStrings(receivable.ClosedInvoiceStatuses())).
		Order("customer_id ASC, due_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// UpdateStatuses moves many invoices from one status to another in a single
// statement. The status predicate skips rows another transaction changed
// after the caller read them.
func (r *GormInvoiceRepository) UpdateStatuses(ctx context.Context, ids []uuid.UUID, from, to receivable.InvoiceStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := conn(ctx, r.db).Model(&models.InvoiceModel{}).
		Where("id IN ? AND status = ?", ids, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

// Create inserts the invoice and its line items
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *receivable.Invoice) error {
	return conn(ctx, r.db).Create(models.InvoiceModelFromDomain(invoice)).Error
}

// Save updates the invoice header
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *receivable.Invoice) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(models.InvoiceModelFromDomain(invoice)).Error
}

// ReplaceLineItems swaps the invoice's line items for items
func (r *GormInvoiceRepository) ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []receivable.InvoiceLineItem) error {
	db := conn(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := models.InvoiceModelFromDomain(&receivable.Invoice{
		BaseEntity: shared.BaseEntity{ID: invoiceID},
		LineItems:  items,
	}).LineItems
	return db.Create(&rows).Error
}

// Delete removes the invoice and its line items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("invoice_id = ?", id).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("invoice", id)
	}
	return nil
}

func invoicesToDomain(rows []models.InvoiceModel) []*receivable.Invoice {
	out := make([]*receivable.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ receivable.InvoiceRepository = (*GormInvoiceRepository)(nil)
