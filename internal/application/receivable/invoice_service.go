package receivable

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/erp/collections/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LineItemInput is a line item as supplied by callers
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
}

// CreateInvoiceInput holds the fields of a new invoice. DueDate defaults to
// the invoice date plus the customer's payment terms. TotalAmount is ignored
// when line items are given.
type CreateInvoiceInput struct {
	CustomerID  uuid.UUID
	InvoiceDate time.Time
	DueDate     *time.Time
	TotalAmount decimal.Decimal
	LineItems   []LineItemInput
	Notes       string
}

// UpdateInvoiceInput holds the editable fields; nil means unchanged.
// A non-nil LineItems replaces every line and the total.
type UpdateInvoiceInput struct {
	InvoiceDate *time.Time
	DueDate     *time.Time
	TotalAmount *decimal.Decimal
	LineItems   []LineItemInput
	Notes       *string
}

// InvoiceResult is an invoice together with the advisory credit check
type InvoiceResult struct {
	Invoice *receivable.Invoice
	Credit  receivable.CreditCheck
}

// InvoiceDetail is an invoice with the payments applied to it
type InvoiceDetail struct {
	Invoice     *receivable.Invoice
	Allocations []*receivable.PaymentAllocation
}

// InvoiceService manages the invoice lifecycle
type InvoiceService struct {
	deps Deps
}

// NewInvoiceService creates an InvoiceService
func NewInvoiceService(deps Deps) *InvoiceService {
	return &InvoiceService{deps: deps.withDefaults()}
}

// Create issues an invoice. The credit check never blocks creation: when the
// limit is exceeded a CREDIT_LIMIT_BREACHED alert goes out after commit and
// the check is returned for the caller to surface as a warning.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (result *InvoiceResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create", telemetry.SpanAttrCustomerID, in.CustomerID)
	defer func() { telemetry.End(span, err) }()

	items, err := buildLineItems(in.LineItems)
	if err != nil {
		return nil, err
	}

	var customer *receivable.Customer
	err = s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		customer, err = repos.Customers().FindByIDForUpdate(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if !customer.IsActive {
			return shared.NewConflictError("customer %s is deactivated", customer.Code)
		}
		settings, err := repos.Settings().Get(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		number, err := repos.Sequences().Next(ctx, receivable.SequenceInvoice)
		if err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}

		dueDate := settings.DueDateFor(customer, in.InvoiceDate)
		if in.DueDate != nil {
			dueDate = *in.DueDate
		}
		inv, err := receivable.NewInvoice(receivable.NewInvoiceParams{
			Number:      number,
			CustomerID:  customer.ID,
			InvoiceDate: in.InvoiceDate,
			DueDate:     dueDate,
			TotalAmount: in.TotalAmount,
			LineItems:   items,
			Notes:       in.Notes,
		}, settings.OverdueReference(s.deps.Clock()))
		if err != nil {
			return err
		}

		check := receivable.CheckCredit(customer, inv.TotalAmount, decimal.Zero, settings.WatchlistThresholdPct)
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := s.deps.Events.Emit(ctx, receivable.NewInvoiceCreatedEvent(inv)); err != nil {
			return fmt.Errorf("emit %s: %w", receivable.EventTypeInvoiceCreated, err)
		}
		result = &InvoiceResult{Invoice: inv, Credit: check}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, result.Invoice.ID)
	s.deps.Logger.Info("invoice created",
		zap.String("invoice", result.Invoice.Number),
		zap.String("customer", customer.Code),
		zap.String("total", result.Invoice.TotalAmount.StringFixed(2)),
	)
	s.notifyBreach(ctx, customer, result.Invoice.ID, result.Credit)
	return result, nil
}

// Update edits an invoice. The credit check is repeated against the new
// total with the invoice's previous balance excluded from current usage.
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, in UpdateInvoiceInput) (result *InvoiceResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update", telemetry.SpanAttrInvoiceID, id)
	defer func() { telemetry.End(span, err) }()

	var items []receivable.InvoiceLineItem
	if in.LineItems != nil {
		if items, err = buildLineItems(in.LineItems); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, shared.NewValidationError("an invoice needs at least one line item")
		}
	}

	var customer *receivable.Customer
	err = s.withLockedInvoice(ctx, id, func(ctx context.Context, repos TransactionalRepositories, c *receivable.Customer, inv *receivable.Invoice, settings receivable.Settings) error {
		customer = c
		previousBalance := inv.BalanceAmount
		if err := inv.Revise(receivable.InvoiceRevision{
			InvoiceDate: in.InvoiceDate,
			DueDate:     in.DueDate,
			TotalAmount: in.TotalAmount,
			LineItems:   items,
			Notes:       in.Notes,
		}, settings.OverdueReference(s.deps.Clock())); err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if items != nil {
			if err := repos.Invoices().ReplaceLineItems(ctx, inv.ID, items); err != nil {
				return fmt.Errorf("replace line items: %w", err)
			}
		}
		check := receivable.CheckCredit(c, inv.BalanceAmount, previousBalance, settings.WatchlistThresholdPct)
		if err := s.deps.Events.Emit(ctx, receivable.NewInvoiceChangedEvent(inv)); err != nil {
			return fmt.Errorf("emit %s: %w", receivable.EventTypeInvoiceChanged, err)
		}
		result = &InvoiceResult{Invoice: inv, Credit: check}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyBreach(ctx, customer, id, result.Credit)
	return result, nil
}

// Delete removes an invoice after giving every payment applied to it its
// money back.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete", telemetry.SpanAttrInvoiceID, id)
	defer func() { telemetry.End(span, err) }()

	return s.withLockedInvoice(ctx, id, func(ctx context.Context, repos TransactionalRepositories, c *receivable.Customer, inv *receivable.Invoice, _ receivable.Settings) error {
		rows, err := repos.Allocations().FindByInvoice(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("load allocations: %w", err)
		}
		for _, row := range rows {
			if err := repos.Allocations().Delete(ctx, row.ID); err != nil {
				return fmt.Errorf("delete allocation: %w", err)
			}
			if err := resyncPayment(ctx, repos, row.PaymentID); err != nil {
				return err
			}
		}
		if err := repos.Invoices().Delete(ctx, inv.ID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		s.deps.Logger.Info("invoice deleted",
			zap.String("invoice", inv.Number),
			zap.String("customer", c.Code),
			zap.Int("reversed_allocations", len(rows)),
		)
		if err := s.deps.Events.Emit(ctx, receivable.NewCustomerChangedEvent(c.ID)); err != nil {
			return fmt.Errorf("emit %s: %w", receivable.EventTypeInvoiceChanged, err)
		}
		return nil
	})
}

// WriteOff closes an invoice as uncollectable. Its allocations stay in place.
func (s *InvoiceService) WriteOff(ctx context.Context, id uuid.UUID, reason string) (*receivable.Invoice, error) {
	return s.transition(ctx, id, "write_off", func(inv *receivable.Invoice, _ time.Time) error {
		return inv.WriteOff(reason)
	})
}

// UndoWriteOff reopens a written-off invoice with its status re-derived
func (s *InvoiceService) UndoWriteOff(ctx context.Context, id uuid.UUID) (*receivable.Invoice, error) {
	return s.transition(ctx, id, "undo_write_off", func(inv *receivable.Invoice, ref time.Time) error {
		return inv.UndoWriteOff(ref)
	})
}

func (s *InvoiceService) transition(ctx context.Context, id uuid.UUID, name string, fn func(*receivable.Invoice, time.Time) error) (result *receivable.Invoice, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", name, telemetry.SpanAttrInvoiceID, id)
	defer func() { telemetry.End(span, err) }()

	err = s.withLockedInvoice(ctx, id, func(ctx context.Context, repos TransactionalRepositories, _ *receivable.Customer, inv *receivable.Invoice, settings receivable.Settings) error {
		if err := fn(inv, settings.OverdueReference(s.deps.Clock())); err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if err := s.deps.Events.Emit(ctx, receivable.NewInvoiceChangedEvent(inv)); err != nil {
			return fmt.Errorf("emit %s: %w", receivable.EventTypeInvoiceChanged, err)
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("invoice status changed", zap.String("invoice", result.Number), zap.String("status", string(result.Status)))
	return result, nil
}

// withLockedInvoice locks the owning customer, then loads the invoice for
// update, and runs fn in the same transaction.
func (s *InvoiceService) withLockedInvoice(ctx context.Context, id uuid.UUID,
	fn func(context.Context, TransactionalRepositories, *receivable.Customer, *receivable.Invoice, receivable.Settings) error) error {
	return s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByID(ctx, id)
		if err != nil {
			return err
		}
		customer, err := repos.Customers().FindByIDForUpdate(ctx, inv.CustomerID)
		if err != nil {
			return err
		}
		if inv, err = repos.Invoices().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		settings, err := repos.Settings().Get(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		return fn(ctx, repos, customer, inv, settings)
	})
}

// Get returns the invoice with its allocations
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	var detail *InvoiceDetail
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByID(ctx, id)
		if err != nil {
			return err
		}
		rows, err := repos.Allocations().FindByInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("load allocations: %w", err)
		}
		detail = &InvoiceDetail{Invoice: inv, Allocations: rows}
		return nil
	})
	return detail, err
}

// List returns a page of invoices
func (s *InvoiceService) List(ctx context.Context, filter receivable.InvoiceFilter) (shared.Paginated[*receivable.Invoice], error) {
	filter.Filter = filter.Filter.Normalize()
	var page shared.Paginated[*receivable.Invoice]
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		items, total, err := repos.Invoices().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

func (s *InvoiceService) notifyBreach(ctx context.Context, c *receivable.Customer, invoiceID uuid.UUID, check receivable.CreditCheck) {
	if !check.Breached() {
		return
	}
	s.deps.Metrics.CreditLimitBreached(ctx)
	s.deps.Events.EmitSafe(ctx, receivable.NewCreditLimitBreachedEvent(c, invoiceID, check))
}

func buildLineItems(in []LineItemInput) ([]receivable.InvoiceLineItem, error) {
	if in == nil {
		return nil, nil
	}
	items := make([]receivable.InvoiceLineItem, 0, len(in))
	for i, li := range in {
		item, err := receivable.NewInvoiceLineItem(li.Description, li.Quantity, li.Rate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// resyncPayment recomputes a payment's allocated total from its remaining rows
func resyncPayment(ctx context.Context, repos TransactionalRepositories, paymentID uuid.UUID) error {
	payment, err := repos.Payments().FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		return err
	}
	rows, err := repos.Allocations().FindByPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load allocations: %w", err)
	}
	if err := payment.SyncAllocated(receivable.SumAllocations(rows)); err != nil {
		return err
	}
	if err := repos.Payments().Save(ctx, payment); err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}
