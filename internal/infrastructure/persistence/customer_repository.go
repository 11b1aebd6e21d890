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

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.Customer, error) {
	return r.find(conn(ctx, r.db), id)
}

// FindByIDForUpdate finds a customer and locks its row for the rest of the transaction
func (r *GormCustomerRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receivable.Customer, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCustomerRepository) find(q *gorm.DB, id uuid.UUID) (*receivable.Customer, error) {
	var model models.CustomerModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("customer", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given customers, active or not
func (r *GormCustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*receivable.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.CustomerModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*receivable.Customer, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindAll lists customers with paging, search on name/code/phone and an
// optional risk tier filter
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter receivable.CustomerFilter) ([]*receivable.Customer, int64, error) {
	q := conn(ctx, r.db).Model(&models.CustomerModel{})
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if filter.RiskTier != nil {
		q = q.Where("risk_tier = ?", string(*filter.RiskTier))
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR phone LIKE ?", p, p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.CustomerModel
	if err := paginate(q, filter.Filter, CustomerSortFields, "name", "ASC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*receivable.Customer, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// FindActive returns every active customer ordered by code
func (r *GormCustomerRepository) FindActive(ctx context.Context) ([]*receivable.Customer, error) {
	var rows []models.CustomerModel
	if err := conn(ctx, r.db).Where("is_active = ?", true).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*receivable.Customer, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *receivable.Customer) error {
	return conn(ctx, r.db).Save(models.CustomerModelFromDomain(customer)).Error
}

// UpdateAggregates writes the three cached totals
func (r *GormCustomerRepository) UpdateAggregates(ctx context.Context, id uuid.UUID, a receivable.Aggregates) error {
	return r.updateColumns(ctx, id, map[string]any{
		"outstanding_amount": a.Outstanding,
		"overdue_amount":     a.Overdue,
		"credit_used":        a.CreditUsed,
		"updated_at":         time.Now().UTC(),
	})
}

// UpdateRiskTier writes the classified tier
func (r *GormCustomerRepository) UpdateRiskTier(ctx context.Context, id uuid.UUID, tier receivable.RiskTier) error {
	return r.updateColumns(ctx, id, map[string]any{
		"risk_tier":  string(tier),
		"updated_at": time.Now().UTC(),
	})
}

func (r *GormCustomerRepository) updateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	result := conn(ctx, r.db).Model(&models.CustomerModel{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("customer", id)
	}
	return nil
}

var _ receivable.CustomerRepository = (*GormCustomerRepository)(nil)
