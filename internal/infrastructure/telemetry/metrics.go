package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation name of ledger metrics
const MeterName = "collections"

// Metric attribute keys
var (
	AttrStrategy      = attribute.Key("allocation.strategy")
	AttrInvoiceStatus = attribute.Key("invoice.status")
	AttrRiskFrom      = attribute.Key("risk.from")
	AttrRiskTo        = attribute.Key("risk.to")
	AttrJobType       = attribute.Key("job.type")
	AttrJobOutcome    = attribute.Key("job.outcome")
)

// AllocationAmountBuckets are histogram boundaries for allocated amounts in
// currency units
var AllocationAmountBuckets = []float64{100, 1_000, 10_000, 50_000, 100_000, 500_000, 1_000_000, 5_000_000}

// Counter wraps an Int64Counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new Counter metric.
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps a Float64Histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a new Histogram metric with optional bucket boundaries
func NewHistogram(meter metric.Meter, name, description, unit string, boundaries ...float64) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(boundaries) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	h, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return &Histogram{histogram: h}, nil
}

// Record records a value
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// LedgerMetrics records ledger activity as OpenTelemetry instruments
type LedgerMetrics struct {
	allocations     *Counter
	allocatedAmount *Histogram
	tierChanges     *Counter
	statusRefreshes *Counter
	promisesBroken  *Counter
	creditBreaches  *Counter
	jobRuns         *Counter
}

// NewLedgerMetrics creates every instrument on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error
	if m.allocations, err = NewCounter(meter, "ledger.payment.allocations", "Allocation runs that changed the ledger", "{allocation}"); err != nil {
		return nil, err
	}
	if m.allocatedAmount, err = NewHistogram(meter, "ledger.payment.allocated_amount", "Amount applied per allocation run", "{currency}", AllocationAmountBuckets...); err != nil {
		return nil, err
	}
	if m.tierChanges, err = NewCounter(meter, "ledger.customer.risk_tier_changes", "Customer risk tier transitions", "{change}"); err != nil {
		return nil, err
	}
	if m.statusRefreshes, err = NewCounter(meter, "ledger.invoice.status_refreshes", "Invoices moved by the status sweep", "{invoice}"); err != nil {
		return nil, err
	}
	if m.promisesBroken, err = NewCounter(meter, "ledger.promise.broken", "Promises marked broken", "{promise}"); err != nil {
		return nil, err
	}
	if m.creditBreaches, err = NewCounter(meter, "ledger.customer.credit_limit_breaches", "Invoices that pushed a customer over its credit limit", "{breach}"); err != nil {
		return nil, err
	}
	if m.jobRuns, err = NewCounter(meter, "ledger.job.runs", "Scheduled job runs by outcome", "{run}"); err != nil {
		return nil, err
	}
	return m, nil
}

// PaymentAllocated counts one allocation and records its amount
func (m *LedgerMetrics) PaymentAllocated(ctx context.Context, strategy string, amount decimal.Decimal) {
	m.allocations.Inc(ctx, AttrStrategy.String(strategy))
	m.allocatedAmount.Record(ctx, amount.InexactFloat64(), AttrStrategy.String(strategy))
}

// RiskTierChanged counts a tier transition
func (m *LedgerMetrics) RiskTierChanged(ctx context.Context, from, to receivable.RiskTier) {
	m.tierChanges.Inc(ctx, AttrRiskFrom.String(string(from)), AttrRiskTo.String(string(to)))
}

// InvoiceStatusesRefreshed adds count invoices moved to status
func (m *LedgerMetrics) InvoiceStatusesRefreshed(ctx context.Context, status receivable.InvoiceStatus, count int) {
	m.statusRefreshes.Add(ctx, int64(count), AttrInvoiceStatus.String(string(status)))
}

// PromisesBroken adds count broken promises
func (m *LedgerMetrics) PromisesBroken(ctx context.Context, count int) {
	m.promisesBroken.Add(ctx, int64(count))
}

// CreditLimitBreached counts one breach
func (m *LedgerMetrics) CreditLimitBreached(ctx context.Context) {
	m.creditBreaches.Inc(ctx)
}

// JobRun counts a scheduled job run; outcome is "success", "failed" or "skipped"
func (m *LedgerMetrics) JobRun(ctx context.Context, jobType, outcome string) {
	m.jobRuns.Inc(ctx, AttrJobType.String(jobType), AttrJobOutcome.String(outcome))
}
