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

// AllocationResult summarizes one allocation run
type AllocationResult struct {
	PaymentID      uuid.UUID       `json:"payment_id"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Unallocated    decimal.Decimal `json:"unallocated"`
	Strategy       string          `json:"strategy"`
}

// AllocationService applies payments to invoices
type AllocationService struct {
	deps Deps
}

// NewAllocationService creates an AllocationService
func NewAllocationService(deps Deps) *AllocationService {
	return &AllocationService{deps: deps.withDefaults()}
}

// Allocate applies the payment according to strategy in one transaction.
//
// Within the strategy's scope the plan replaces this payment's allocations:
// each scoped invoice is offered with its balance plus what this payment
// already holds on it, and a scoped invoice missing from the plan gives that
// back. Allocations outside the scope are kept and reduce the amount
// available, so repeating a run changes nothing.
func (s *AllocationService) Allocate(ctx context.Context, paymentID uuid.UUID, strategy allocation.Strategy) (result *AllocationResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "allocate",
		telemetry.SpanAttrPaymentID, paymentID,
		telemetry.SpanAttrStrategy, strategy.Name(),
	)
	defer func() { telemetry.End(span, err) }()

	err = s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		result, err = s.allocate(ctx, repos, paymentID, strategy)
		return err
	})
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrAmount, result.TotalAllocated.StringFixed(2))
	s.deps.Metrics.PaymentAllocated(ctx, result.Strategy, result.TotalAllocated)
	return result, nil
}

func (s *AllocationService) allocate(ctx context.Context, repos TransactionalRepositories, paymentID uuid.UUID, strategy allocation.Strategy) (*AllocationResult, error) {
	// lock order: customer, payment, invoices
	payment, err := repos.Payments().FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := repos.Customers().FindByIDForUpdate(ctx, payment.CustomerID); err != nil {
		return nil, err
	}
	if payment, err = repos.Payments().FindByIDForUpdate(ctx, paymentID); err != nil {
		return nil, err
	}
	rows, err := repos.Allocations().FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	settings, err := repos.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	invoices, err := repos.Invoices().FindOpenByCustomer(ctx, payment.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load open invoices: %w", err)
	}
	ref := settings.OverdueReference(s.deps.Clock())

	prior := make(map[uuid.UUID]*receivable.PaymentAllocation, len(rows))
	for _, row := range rows {
		prior[row.InvoiceID] = row
	}
	byID := make(map[uuid.UUID]*receivable.Invoice, len(invoices))
	offered := make([]allocation.OpenInvoice, 0, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
		capacity := inv.BalanceAmount
		if row, ok := prior[inv.ID]; ok {
			capacity = capacity.Add(row.Amount)
		}
		offered = append(offered, allocation.OpenInvoice{
			ID:      inv.ID,
			Number:  inv.Number,
			DueDate: inv.DueDate,
			Balance: capacity,
		})
	}

	scope := make(map[uuid.UUID]bool)
	for _, id := range strategy.Scope(offered) {
		if _, open := byID[id]; open {
			scope[id] = true
		}
	}
	held, heldInScope := decimal.Zero, decimal.Zero
	for _, row := range rows {
		if scope[row.InvoiceID] {
			heldInScope = heldInScope.Add(row.Amount)
		} else {
			held = held.Add(row.Amount)
		}
	}
	remaining := shared.MaxZero(payment.Amount.Sub(held))

	plan, err := strategy.Allocate(remaining, offered)
	if err != nil {
		return nil, err
	}
	result := &AllocationResult{
		PaymentID:      paymentID,
		TotalAllocated: plan.Total(),
		Unallocated:    payment.UnallocatedAmount,
		Strategy:       strategy.Name(),
	}
	if len(plan) == 0 && heldInScope.IsZero() {
		return result, nil
	}

	target := make(map[uuid.UUID]decimal.Decimal, len(plan))
	order := make([]uuid.UUID, 0, len(plan))
	for _, line := range plan {
		if _, seen := target[line.InvoiceID]; !seen {
			order = append(order, line.InvoiceID)
		}
		target[line.InvoiceID] = line.Amount
	}
	for _, inv := range invoices {
		if _, ok := prior[inv.ID]; ok && scope[inv.ID] {
			if _, planned := target[inv.ID]; !planned {
				target[inv.ID] = decimal.Zero
				order = append(order, inv.ID)
			}
		}
	}

	for _, invoiceID := range order {
		inv, ok := byID[invoiceID]
		if !ok {
			return nil, shared.NewAllocationError("invoice %s is not open for this customer", invoiceID)
		}
		if err := s.apply(ctx, repos, payment, inv, prior[invoiceID], target[invoiceID], ref); err != nil {
			return nil, err
		}
	}

	rows, err = repos.Allocations().FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("reload allocations: %w", err)
	}
	if err := payment.SyncAllocated(receivable.SumAllocations(rows)); err != nil {
		return nil, err
	}
	if err := repos.Payments().Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	result.Unallocated = payment.UnallocatedAmount

	s.deps.Logger.Info("payment allocated",
		zap.String("payment", payment.Number),
		zap.String("strategy", result.Strategy),
		zap.String("allocated", result.TotalAllocated.StringFixed(2)),
		zap.String("unallocated", result.Unallocated.StringFixed(2)),
	)
	if err := s.deps.Events.Emit(ctx, receivable.NewPaymentAllocatedEvent(payment, result.Strategy, result.TotalAllocated)); err != nil {
		return nil, fmt.Errorf("emit %s: %w", receivable.EventTypePaymentAllocated, err)
	}
	return result, nil
}

// apply moves one (payment, invoice) allocation from its prior amount to
// amount, updating the row and the invoice by the difference.
func (s *AllocationService) apply(ctx context.Context, repos TransactionalRepositories, payment *receivable.Payment,
	inv *receivable.Invoice, row *receivable.PaymentAllocation, amount decimal.Decimal, ref time.Time) error {
	priorAmount := decimal.Zero
	if row != nil {
		priorAmount = row.Amount
	}
	diff := amount.Sub(priorAmount)
	if diff.Abs().LessThan(shared.RoundingGuard) {
		return nil
	}

	switch {
	case amount.LessThan(shared.RoundingGuard):
		if err := repos.Allocations().Delete(ctx, row.ID); err != nil {
			return fmt.Errorf("delete allocation: %w", err)
		}
	case row == nil:
		if err := repos.Allocations().Save(ctx, receivable.NewPaymentAllocation(payment.ID, inv.ID, amount)); err != nil {
			return fmt.Errorf("create allocation: %w", err)
		}
	default:
		row.Amount = amount
		row.UpdatedAt = s.deps.Clock()
		if err := repos.Allocations().Save(ctx, row); err != nil {
			return fmt.Errorf("update allocation: %w", err)
		}
	}

	if err := inv.ApplyPaymentDelta(diff, ref); err != nil {
		return err
	}
	if err := repos.Invoices().Save(ctx, inv); err != nil {
		return fmt.Errorf("save invoice %s: %w", inv.Number, err)
	}
	return nil
}
