package receivable

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recalculator rebuilds the cached customer totals from invoices
type Recalculator struct {
	deps Deps
	risk *RiskService
}

// NewRecalculator creates a Recalculator. risk is used by Refresh and
// RecalculateAll to reclassify after the totals change.
func NewRecalculator(deps Deps, risk *RiskService) *Recalculator {
	return &Recalculator{deps: deps.withDefaults(), risk: risk}
}

// Recalculate recomputes outstanding, overdue and credit used for one
// customer. It is a full recompute and safe to repeat. The customer row is
// locked before the invoices are read, so no allocation can commit between
// the read and the write; inside a use case that already holds the lock
// this is a no-op.
func (r *Recalculator) Recalculate(ctx context.Context, customerID uuid.UUID) (receivable.Aggregates, error) {
	var agg receivable.Aggregates
	err := r.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Customers().FindByIDForUpdate(ctx, customerID); err != nil {
			return err
		}
		invoices, err := repos.Invoices().FindByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("load invoices: %w", err)
		}
		agg = receivable.ComputeAggregates(invoices)
		return repos.Customers().UpdateAggregates(ctx, customerID, agg)
	})
	return agg, err
}

// Refresh recalculates the totals and then the risk tier, atomically
func (r *Recalculator) Refresh(ctx context.Context, customerID uuid.UUID) error {
	return r.deps.Scope.Execute(ctx, func(ctx context.Context, _ TransactionalRepositories) error {
		if _, err := r.Recalculate(ctx, customerID); err != nil {
			return err
		}
		_, err := r.risk.Classify(ctx, customerID)
		return err
	})
}

// RecalculateAll refreshes every active customer, one transaction each, so
// no lock is held across customers. Failures are logged and returned joined
// after the sweep completes.
func (r *Recalculator) RecalculateAll(ctx context.Context) (int, error) {
	var customers []*receivable.Customer
	err := r.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		customers, err = repos.Customers().FindActive(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list customers: %w", err)
	}
	return r.refreshEach(ctx, customerIDs(customers))
}

func (r *Recalculator) refreshEach(ctx context.Context, ids []uuid.UUID) (int, error) {
	var errs []error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := r.Refresh(ctx, id); err != nil {
			r.deps.Logger.Error("customer refresh failed", zap.String("customer_id", id.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("customer %s: %w", id, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func customerIDs(customers []*receivable.Customer) []uuid.UUID {
	ids := make([]uuid.UUID, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	return ids
}
