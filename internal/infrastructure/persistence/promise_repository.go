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

// GormPromiseRepository implements PromiseRepository using GORM
type GormPromiseRepository struct {
	db *gorm.DB
}

// NewGormPromiseRepository creates a new GormPromiseRepository
func NewGormPromiseRepository(db *gorm.DB) *GormPromiseRepository {
	return &GormPromiseRepository{db: db}
}

// FindByID finds a promise by its ID
func (r *GormPromiseRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.PromiseDate, error) {
	return r.find(conn(ctx, r.db), id)
}

// FindByIDForUpdate finds a promise and locks its row for the rest of the transaction
func (r *GormPromiseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receivable.PromiseDate, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPromiseRepository) find(q *gorm.DB, id uuid.UUID) (*receivable.PromiseDate, error) {
	var model models.PromiseDateModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("promise", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists promises with paging and filters
func (r *GormPromiseRepository) FindAll(ctx context.Context, filter receivable.PromiseFilter) ([]*receivable.PromiseDate, int64, error) {
	q := conn(ctx, r.db).Model(&models.PromiseDateModel{})
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.DateFrom != nil {
		q = q.Where("promised_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("promised_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PromiseDateModel
	if err := paginate(q, filter.Filter, PromiseSortFields, "promised_date", "ASC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return promisesToDomain(rows), total, nil
}

// FindLapsed returns PENDING promises dated before cutoff
func (r *GormPromiseRepository) FindLapsed(ctx context.Context, cutoff time.Time) ([]*receivable.PromiseDate, error) {
	var rows []models.PromiseDateModel
	if err := conn(ctx, r.db).
		Where("status = ? AND promised_date < ?", string(receivable.PromiseStatusPending), cutoff).
		Order("promised_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return promisesToDomain(rows), nil
}

// MarkBroken flips still-PENDING promises to BROKEN in one statement and
// returns the ids it changed. The status predicate makes a concurrent or
// repeated sweep a no-op.
func (r *GormPromiseRepository) MarkBroken(ctx context.Context, ids []uuid.UUID, resolvedAt time.Time) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.PromiseDateModel
	err := conn(ctx, r.db).Model(&rows).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("id IN ? AND status = ?", ids, string(receivable.PromiseStatusPending)).
		Updates(map[string]any{
			"status":      string(receivable.PromiseStatusBroken),
			"resolved_at": resolvedAt,
			"updated_at":  resolvedAt,
		}).Error
	if err != nil {
		return nil, err
	}
	changed := make([]uuid.UUID, len(rows))
	for i := range rows {
		changed[i] = rows[i].ID
	}
	return changed, nil
}

// CountBrokenSince counts the customer's promises broken at or after since
func (r *GormPromiseRepository) CountBrokenSince(ctx context.Context, customerID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.PromiseDateModel{}).
		Where("customer_id = ? AND status = ? AND resolved_at >= ?", customerID, string(receivable.PromiseStatusBroken), since).
		Count(&n).Error
	return n, err
}

// BrokenSince lists promises broken at or after since, newest first
func (r *GormPromiseRepository) BrokenSince(ctx context.Context, since time.Time) ([]*receivable.PromiseDate, error) {
	var rows []models.PromiseDateModel
	if err := conn(ctx, r.db).
		Where("status = ? AND resolved_at >= ?", string(receivable.PromiseStatusBroken), since).
		Order("resolved_at DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return promisesToDomain(rows), nil
}

// CountByStatus returns the number of promises per status
func (r *GormPromiseRepository) CountByStatus(ctx context.Context) (map[receivable.PromiseStatus]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := conn(ctx, r.db).Model(&models.PromiseDateModel{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[receivable.PromiseStatus]int64, len(rows))
	for _, row := range rows {
		out[receivable.PromiseStatus(row.Status)] = row.N
	}
	return out, nil
}

// Save creates or updates a promise
func (r *GormPromiseRepository) Save(ctx context.Context, promise *receivable.PromiseDate) error {
	return conn(ctx, r.db).Save(models.PromiseDateModelFromDomain(promise)).Error
}

// Delete removes a promise
func (r *GormPromiseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.PromiseDateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("promise", id)
	}
	return nil
}

func promisesToDomain(rows []models.PromiseDateModel) []*receivable.PromiseDate {
	out := make([]*receivable.PromiseDate, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ receivable.PromiseRepository = (*GormPromiseRepository)(nil)
