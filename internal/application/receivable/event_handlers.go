package receivable

import (
	"context"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"go.uber.org/zap"
)

// AggregateRefreshHandler recalculates the totals and risk tier of the
// customer an event refers to. It runs synchronously inside the emitting
// transaction, so a failure rolls the whole operation back.
type AggregateRefreshHandler struct {
	recalc *Recalculator
}

// NewAggregateRefreshHandler creates an AggregateRefreshHandler
func NewAggregateRefreshHandler(recalc *Recalculator) *AggregateRefreshHandler {
	return &AggregateRefreshHandler{recalc: recalc}
}

// EventTypes returns the ledger-changing event types
func (h *AggregateRefreshHandler) EventTypes() []string {
	return []string{
		receivable.EventTypeInvoiceCreated,
		receivable.EventTypeInvoiceChanged,
		receivable.EventTypePaymentAllocated,
	}
}

// Handle refreshes the event's customer
func (h *AggregateRefreshHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ce, ok := event.(receivable.CustomerEvent)
	if !ok {
		return nil
	}
	return h.recalc.Refresh(ctx, ce.CustomerRef())
}

// AlertLogHandler writes a warning for every collection alert
type AlertLogHandler struct {
	logger *zap.Logger
}

// NewAlertLogHandler creates an AlertLogHandler
func NewAlertLogHandler(logger *zap.Logger) *AlertLogHandler {
	return &AlertLogHandler{logger: logger}
}

// EventTypes returns the alert event types
func (h *AlertLogHandler) EventTypes() []string {
	return []string{receivable.EventTypePromiseBroken, receivable.EventTypeCreditLimitBreached}
}

// Handle logs the alert
func (h *AlertLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	}
	switch e := event.(type) {
	case *receivable.PromiseBrokenEvent:
		fields = append(fields,
			zap.String("customer_id", e.CustomerID.String()),
			zap.String("promised_date", e.PromisedDate),
		)
		if e.PromisedAmount.Valid {
			fields = append(fields, zap.String("promised_amount", e.PromisedAmount.Decimal.StringFixed(2)))
		}
	case *receivable.CreditLimitBreachedEvent:
		fields = append(fields,
			zap.String("customer", e.CustomerCode),
			zap.String("credit_limit", e.CreditLimit.StringFixed(2)),
			zap.String("projected_used", e.ProjectedUsed.StringFixed(2)),
		)
	}
	h.logger.Warn("collection alert", fields...)
	return nil
}
