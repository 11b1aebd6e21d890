// Package receivable holds the ledger use cases: invoice and payment
// bookkeeping, payment allocation, aggregate recalculation, risk
// classification and the promise sweep. Every mutation runs through a
// TransactionScope; follow-up work is driven by domain events.
package receivable

import (
	"context"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deps bundles the collaborators shared by the use cases
type Deps struct {
	Scope   TransactionScope
	Events  shared.EventEmitter
	Metrics Metrics
	Logger  *zap.Logger
	Clock   func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Metrics records ledger activity. The telemetry package provides the
// OpenTelemetry implementation.
type Metrics interface {
	PaymentAllocated(ctx context.Context, strategy string, amount decimal.Decimal)
	RiskTierChanged(ctx context.Context, from, to receivable.RiskTier)
	InvoiceStatusesRefreshed(ctx context.Context, status receivable.InvoiceStatus, count int)
	PromisesBroken(ctx context.Context, count int)
	CreditLimitBreached(ctx context.Context)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) PaymentAllocated(context.Context, string, decimal.Decimal) {}
func (NopMetrics) RiskTierChanged(context.Context, receivable.RiskTier, receivable.RiskTier) {}
func (NopMetrics) InvoiceStatusesRefreshed(context.Context, receivable.InvoiceStatus, int) {}
func (NopMetrics) PromisesBroken(context.Context, int) {}
func (NopMetrics) CreditLimitBreached(context.Context) {}
