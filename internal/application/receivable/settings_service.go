package receivable

import (
	"context"
	"fmt"

	"github.com/erp/collections/internal/domain/receivable"
	"go.uber.org/zap"
)

// SettingsService reads and edits the global ledger settings
type SettingsService struct {
	deps Deps
}

// NewSettingsService creates a SettingsService
func NewSettingsService(deps Deps) *SettingsService {
	return &SettingsService{deps: deps.withDefaults()}
}

// Get returns the settings, creating the defaults on first read
func (s *SettingsService) Get(ctx context.Context) (receivable.Settings, error) {
	var settings receivable.Settings
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		settings, err = repos.Settings().Get(ctx)
		return err
	})
	return settings, err
}

// Update validates and stores new settings. Thresholds take effect on the
// next classification; existing tiers are not recomputed here.
func (s *SettingsService) Update(ctx context.Context, settings receivable.Settings) (receivable.Settings, error) {
	if err := settings.Validate(); err != nil {
		return receivable.Settings{}, err
	}
	settings.UpdatedAt = s.deps.Clock()
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Settings().Get(ctx); err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		return repos.Settings().Save(ctx, settings)
	})
	if err != nil {
		return receivable.Settings{}, err
	}
	s.deps.Logger.Info("settings updated",
		zap.Int("grace_days", settings.OverdueGraceDays),
		zap.Int("watchlist_pct", settings.WatchlistThresholdPct),
		zap.Int("high_risk_days", settings.HighRiskOverdueDays),
		zap.Int("broken_promises", settings.BrokenPromisesThreshold),
	)
	return settings, nil
}
