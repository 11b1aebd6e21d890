package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository stores the GLOBAL settings row
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the settings, inserting the defaults on first read. Racing
// first reads both end up with the single row.
func (r *GormSettingsRepository) Get(ctx context.Context) (receivable.Settings, error) {
	db := conn(ctx, r.db)
	var model models.SettingsModel
	err := db.First(&model, "id = ?", receivable.SettingsID).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return receivable.Settings{}, err
	}

	defaults := receivable.DefaultSettings()
	defaults.UpdatedAt = time.Now().UTC()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.SettingsModelFromDomain(defaults)).Error; err != nil {
		return receivable.Settings{}, fmt.Errorf("insert default settings: %w", err)
	}
	if err := db.First(&model, "id = ?", receivable.SettingsID).Error; err != nil {
		return receivable.Settings{}, err
	}
	return model.ToDomain(), nil
}

// Save overwrites the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, settings receivable.Settings) error {
	return conn(ctx, r.db).Save(models.SettingsModelFromDomain(settings)).Error
}

// GormSequenceRepository issues document numbers from per-prefix counters
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next increments the prefix counter and formats it as PREFIX-0001. Run
// inside a transaction the counter row stays locked until commit, so
// numbers are never reused.
func (r *GormSequenceRepository) Next(ctx context.Context, prefix string) (string, error) {
	db := conn(ctx, r.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("sequences.value + 1")}),
	}).Create(&models.SequenceModel{Prefix: prefix, Value: 1}).Error
	if err != nil {
		return "", fmt.Errorf("advance sequence %s: %w", prefix, err)
	}

	var seq models.SequenceModel
	if err := db.First(&seq, "prefix = ?", prefix).Error; err != nil {
		return "", fmt.Errorf("read sequence %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%04d", prefix, seq.Value), nil
}

var (
	_ receivable.SettingsRepository = (*GormSettingsRepository)(nil)
	_ receivable.SequenceRepository = (*GormSequenceRepository)(nil)
)
