package receivable

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/receivable/allocation"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/erp/collections/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePaymentInput holds the fields of a received payment
type CreatePaymentInput struct {
	CustomerID   uuid.UUID
	PaymentDate  time.Time
	Amount       decimal.Decimal
	Mode         receivable.PaymentMode
	Reference    string
	Notes        string
	AutoAllocate bool // run FIFO allocation in the same transaction
}

// PaymentResult is a payment with the allocation run at creation, if any
type PaymentResult struct {
	Payment    *receivable.Payment
	Allocation *AllocationResult
}

// PaymentService records payments and applies them to invoices
type PaymentService struct {
	deps  Deps
	alloc *AllocationService
}

// NewPaymentService creates a PaymentService
func NewPaymentService(deps Deps, alloc *AllocationService) *PaymentService {
	return &PaymentService{deps: deps.withDefaults(), alloc: alloc}
}

// Create records a payment, optionally allocating it FIFO right away
func (s *PaymentService) Create(ctx context.Context, in CreatePaymentInput) (result *PaymentResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create", telemetry.SpanAttrCustomerID, in.CustomerID)
	defer func() { telemetry.End(span, err) }()

	err = s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		customer, err := repos.Customers().FindByIDForUpdate(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if !customer.IsActive {
			return shared.NewConflictError("customer %s is deactivated", customer.Code)
		}
		number, err := repos.Sequences().Next(ctx, receivable.SequencePayment)
		if err != nil {
			return fmt.Errorf("next payment number: %w", err)
		}
		payment, err := receivable.NewPayment(receivable.NewPaymentParams{
			Number:      number,
			CustomerID:  customer.ID,
			PaymentDate: in.PaymentDate,
			Amount:      in.Amount,
			Mode:        in.Mode,
			Reference:   in.Reference,
			Notes:       in.Notes,
		})
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		result = &PaymentResult{Payment: payment}
		if !in.AutoAllocate {
			return nil
		}

		res, err := s.alloc.allocate(ctx, repos, payment.ID, allocation.FIFO{})
		if err != nil {
			return err
		}
		result.Allocation = res
		result.Payment, err = repos.Payments().FindByID(ctx, payment.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("payment recorded",
		zap.String("payment", result.Payment.Number),
		zap.String("amount", result.Payment.Amount.StringFixed(2)),
		zap.String("mode", string(result.Payment.Mode)),
	)
	if result.Allocation != nil {
		s.deps.Metrics.PaymentAllocated(ctx, result.Allocation.Strategy, result.Allocation.TotalAllocated)
	}
	return result, nil
}

// Update edits a payment. The amount cannot drop below what is allocated.
func (s *PaymentService) Update(ctx context.Context, id uuid.UUID, rev receivable.PaymentRevision) (*receivable.Payment, error) {
	var payment *receivable.Payment
	err := s.withLockedPayment(ctx, id, func(ctx context.Context, repos TransactionalRepositories, p *receivable.Payment) error {
		if err := p.Revise(rev); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		payment = p
		return nil
	})
	return payment, err
}

// Delete removes a payment after reversing what it paid on every invoice.
// Written-off invoices keep their status; the others are reclassified.
func (s *PaymentService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete", telemetry.SpanAttrPaymentID, id)
	defer func() { telemetry.End(span, err) }()

	return s.withLockedPayment(ctx, id, func(ctx context.Context, repos TransactionalRepositories, p *receivable.Payment) error {
		settings, err := repos.Settings().Get(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		ref := settings.OverdueReference(s.deps.Clock())
		rows, err := repos.Allocations().FindByPayment(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("load allocations: %w", err)
		}
		for _, row := range rows {
			inv, err := repos.Invoices().FindByIDForUpdate(ctx, row.InvoiceID)
			if err != nil {
				return err
			}
			if err := inv.ApplyPaymentDelta(row.Amount.Neg(), ref); err != nil {
				return err
			}
			if err := repos.Invoices().Save(ctx, inv); err != nil {
				return fmt.Errorf("save invoice %s: %w", inv.Number, err)
			}
			if err := repos.Allocations().Delete(ctx, row.ID); err != nil {
				return fmt.Errorf("delete allocation: %w", err)
			}
		}
		if err := repos.Payments().Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		s.deps.Logger.Info("payment deleted",
			zap.String("payment", p.Number),
			zap.Int("reversed_allocations", len(rows)),
		)
		if err := s.deps.Events.Emit(ctx, receivable.NewCustomerChangedEvent(p.CustomerID)); err != nil {
			return fmt.Errorf("emit %s: %w", receivable.EventTypeInvoiceChanged, err)
		}
		return nil
	})
}

// Allocate applies a payment with the named strategy. items are used by
// MANUAL only.
func (s *PaymentService) Allocate(ctx context.Context, id uuid.UUID, strategyName string, items []allocation.ManualItem) (*AllocationResult, error) {
	strategy, err := allocation.Parse(strategyName, items)
	if err != nil {
		return nil, err
	}
	return s.alloc.Allocate(ctx, id, strategy)
}

// ListAllocations returns the allocation rows of a payment
func (s *PaymentService) ListAllocations(ctx context.Context, id uuid.UUID) ([]*receivable.PaymentAllocation, error) {
	var rows []*receivable.PaymentAllocation
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Payments().FindByID(ctx, id); err != nil {
			return err
		}
		var err error
		rows, err = repos.Allocations().FindByPayment(ctx, id)
		return err
	})
	return rows, err
}

// Get returns one payment
func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*receivable.Payment, error) {
	var payment *receivable.Payment
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		payment, err = repos.Payments().FindByID(ctx, id)
		return err
	})
	return payment, err
}

// List returns a page of payments
func (s *PaymentService) List(ctx context.Context, filter receivable.PaymentFilter) (shared.Paginated[*receivable.Payment], error) {
	filter.Filter = filter.Filter.Normalize()
	var page shared.Paginated[*receivable.Payment]
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		items, total, err := repos.Payments().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

func (s *PaymentService) withLockedPayment(ctx context.Context, id uuid.UUID,
	fn func(context.Context, TransactionalRepositories, *receivable.Payment) error) error {
	return s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		payment, err := repos.Payments().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repos.Customers().FindByIDForUpdate(ctx, payment.CustomerID); err != nil {
			return err
		}
		if payment, err = repos.Payments().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		return fn(ctx, repos, payment)
	})
}
