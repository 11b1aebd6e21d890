package receivable

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePromiseInput holds a new payment commitment. CallLogID links the
// call during which it was made.
type CreatePromiseInput struct {
	CustomerID     uuid.UUID
	PromisedAmount decimal.NullDecimal
	PromisedDate   time.Time
	Notes          string
	CallLogID      *uuid.UUID
}

// PromiseService manages payment commitments. Every change reclassifies the
// customer's risk in the same transaction.
type PromiseService struct {
	deps Deps
	risk *RiskService
}

// NewPromiseService creates a PromiseService
func NewPromiseService(deps Deps, risk *RiskService) *PromiseService {
	return &PromiseService{deps: deps.withDefaults(), risk: risk}
}

// Create records a PENDING promise
func (s *PromiseService) Create(ctx context.Context, in CreatePromiseInput) (*receivable.PromiseDate, error) {
	var promise *receivable.PromiseDate
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Customers().FindByIDForUpdate(ctx, in.CustomerID); err != nil {
			return err
		}
		var err error
		promise, err = s.create(ctx, repos, in)
		return err
	})
	return promise, err
}

func (s *PromiseService) create(ctx context.Context, repos TransactionalRepositories, in CreatePromiseInput) (*receivable.PromiseDate, error) {
	promise, err := receivable.NewPromise(in.CustomerID, in.PromisedAmount, in.PromisedDate, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := repos.Promises().Save(ctx, promise); err != nil {
		return nil, fmt.Errorf("save promise: %w", err)
	}
	if in.CallLogID != nil {
		call, err := repos.CallLogs().FindByID(ctx, *in.CallLogID)
		if err != nil {
			return nil, err
		}
		if call.CustomerID != in.CustomerID {
			return nil, shared.NewValidationError("call log %s belongs to another customer", call.ID)
		}
		call.AttachPromise(promise.ID)
		if err := repos.CallLogs().Save(ctx, call); err != nil {
			return nil, fmt.Errorf("save call log: %w", err)
		}
	}
	if _, err := s.risk.Classify(ctx, in.CustomerID); err != nil {
		return nil, fmt.Errorf("classify risk: %w", err)
	}
	return promise, nil
}

// Update edits a promise. Only a PENDING promise may change status; once
// resolved only its notes can change.
func (s *PromiseService) Update(ctx context.Context, id uuid.UUID, rev receivable.PromiseRevision) (*receivable.PromiseDate, error) {
	var promise *receivable.PromiseDate
	err := s.withLockedPromise(ctx, id, func(ctx context.Context, repos TransactionalRepositories, p *receivable.PromiseDate) error {
		was := p.Status
		if err := p.Revise(rev, s.deps.Clock()); err != nil {
			return err
		}
		if err := repos.Promises().Save(ctx, p); err != nil {
			return fmt.Errorf("save promise: %w", err)
		}
		if was != p.Status {
			s.deps.Logger.Info("promise resolved",
				zap.String("promise_id", p.ID.String()),
				zap.String("status", string(p.Status)),
			)
		}
		promise = p
		_, err := s.risk.Classify(ctx, p.CustomerID)
		return err
	})
	return promise, err
}

// MarkKept resolves a pending promise as KEPT
func (s *PromiseService) MarkKept(ctx context.Context, id uuid.UUID) (*receivable.PromiseDate, error) {
	kept := receivable.PromiseStatusKept
	return s.Update(ctx, id, receivable.PromiseRevision{Status: &kept})
}

// Delete removes a promise and unlinks it from any call log
func (s *PromiseService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.withLockedPromise(ctx, id, func(ctx context.Context, repos TransactionalRepositories, p *receivable.PromiseDate) error {
		if err := repos.CallLogs().DetachPromise(ctx, p.ID); err != nil {
			return fmt.Errorf("detach promise: %w", err)
		}
		if err := repos.Promises().Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete promise: %w", err)
		}
		_, err := s.risk.Classify(ctx, p.CustomerID)
		return err
	})
}

// Get returns one promise
func (s *PromiseService) Get(ctx context.Context, id uuid.UUID) (*receivable.PromiseDate, error) {
	var promise *receivable.PromiseDate
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		promise, err = repos.Promises().FindByID(ctx, id)
		return err
	})
	return promise, err
}

// List returns a page of promises
func (s *PromiseService) List(ctx context.Context, filter receivable.PromiseFilter) (shared.Paginated[*receivable.PromiseDate], error) {
	filter.Filter = filter.Filter.Normalize()
	var page shared.Paginated[*receivable.PromiseDate]
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		items, total, err := repos.Promises().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

// withLockedPromise locks the owning customer, then re-reads the promise
// under a row lock. The first read only finds the customer; the status fn
// sees is the committed one, even if a broken-promise sweep ran in between.
func (s *PromiseService) withLockedPromise(ctx context.Context, id uuid.UUID,
	fn func(context.Context, TransactionalRepositories, *receivable.PromiseDate) error) error {
	return s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		promise, err := repos.Promises().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repos.Customers().FindByIDForUpdate(ctx, promise.CustomerID); err != nil {
			return err
		}
		if promise, err = repos.Promises().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		return fn(ctx, repos, promise)
	})
}
