package receivable

import (
	"context"
	"fmt"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RiskService assigns customers their risk tier
type RiskService struct {
	deps Deps
}

// NewRiskService creates a RiskService
func NewRiskService(deps Deps) *RiskService {
	return &RiskService{deps: deps.withDefaults()}
}

// Classify gathers the customer's overdue age, broken promises in the
// trailing window and credit utilization, then writes the resulting tier.
// Aggregates are computed from the invoices directly so the result does not
// depend on the cached customer totals being current. The customer row is
// locked first, in the same order the ledger writers take it.
func (s *RiskService) Classify(ctx context.Context, customerID uuid.UUID) (receivable.RiskTier, error) {
	var tier receivable.RiskTier
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		tier, err = s.classify(ctx, repos, customerID)
		return err
	})
	return tier, err
}

func (s *RiskService) classify(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID) (receivable.RiskTier, error) {
	customer, err := repos.Customers().FindByIDForUpdate(ctx, customerID)
	if err != nil {
		return "", err
	}
	settings, err := repos.Settings().Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	invoices, err := repos.Invoices().FindByCustomer(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("load invoices: %w", err)
	}
	now := s.deps.Clock()
	broken, err := repos.Promises().CountBrokenSince(ctx, customerID, now.Add(-receivable.BrokenPromiseWindow))
	if err != nil {
		return "", fmt.Errorf("count broken promises: %w", err)
	}

	agg := receivable.ComputeAggregates(invoices)
	tier := receivable.ClassifyRisk(receivable.RiskInputs{
		MaxOverdueDays:       receivable.MaxOverdueDays(invoices, now),
		BrokenPromises90d:    int(broken),
		CreditUtilizationPct: receivable.CreditUtilization(agg.CreditUsed, customer.CreditLimit),
		OverdueAmount:        agg.Overdue,
	}, settings.RiskThresholds())

	if tier == customer.RiskTier {
		return tier, nil
	}
	if err := repos.Customers().UpdateRiskTier(ctx, customerID, tier); err != nil {
		return "", fmt.Errorf("update risk tier: %w", err)
	}
	s.deps.Metrics.RiskTierChanged(ctx, customer.RiskTier, tier)
	s.deps.Logger.Info("customer risk tier changed",
		zap.String("customer", customer.Code),
		zap.String("from", string(customer.RiskTier)),
		zap.String("to", string(tier)),
	)
	return tier, nil
}
