package persistence

import (
	"context"
	"errors"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/erp/collections/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCallLogRepository implements CallLogRepository using GORM
type GormCallLogRepository struct {
	db *gorm.DB
}

// NewGormCallLogRepository creates a new GormCallLogRepository
func NewGormCallLogRepository(db *gorm.DB) *GormCallLogRepository {
	return &GormCallLogRepository{db: db}
}

// FindByID finds a call log by its ID
func (r *GormCallLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.CallLog, error) {
	var model models.CallLogModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("call log", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer lists a customer's calls, most recent first
func (r *GormCallLogRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*receivable.CallLog, int64, error) {
	q := conn(ctx, r.db).Model(&models.CallLogModel{}).Where("customer_id = ?", customerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.CallLogModel
	if err := paginate(q, filter, nil, "call_date", "DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*receivable.CallLog, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Save creates or updates a call log
func (r *GormCallLogRepository) Save(ctx context.Context, log *receivable.CallLog) error {
	return conn(ctx, r.db).Save(models.CallLogModelFromDomain(log)).Error
}

// DetachPromise clears the promise reference of every call that made it
func (r *GormCallLogRepository) DetachPromise(ctx context.Context, promiseID uuid.UUID) error {
	return conn(ctx, r.db).Model(&models.CallLogModel{}).
		Where("promise_id = ?", promiseID).
		Updates(map[string]any{"promise_id": nil, "promise_made": false}).Error
}

var _ receivable.CallLogRepository = (*GormCallLogRepository)(nil)
