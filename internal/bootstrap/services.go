// Package bootstrap wires the ledger use cases over a database handle. Both
// the API server and the operator CLI build their object graph here.
package bootstrap

import (
	"context"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/infrastructure/event"
	"github.com/erp/collections/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tunes the wiring
type Options struct {
	TxTimeout        time.Duration
	RefreshBatchSize int
	Metrics          app.Metrics
	Clock            func() time.Time
}

// Services is the assembled use-case graph
type Services struct {
	Bus       *event.InMemoryEventBus
	Risk      *app.RiskService
	Recalc    *app.Recalculator
	Customers *app.CustomerService
	Invoices  *app.InvoiceService
	Payments  *app.PaymentService
	Promises  *app.PromiseService
	CallLogs  *app.CallLogService
	Settings  *app.SettingsService
	Reports   *app.ReportService
	Refresher *app.StatusRefresher
	Tracker   *app.PromiseTracker
}

// NewServices builds the services and subscribes the built-in event
// handlers. Extra handlers can be added to Bus before Start.
func NewServices(db *gorm.DB, opts Options, logger *zap.Logger) *Services {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 30 * time.Second
	}

	bus := event.NewInMemoryEventBus(logger)
	deps := app.Deps{
		Scope:   persistence.NewGormTransactionScope(db, opts.TxTimeout),
		Events:  bus,
		Metrics: opts.Metrics,
		Logger:  logger,
		Clock:   opts.Clock,
	}

	risk := app.NewRiskService(deps)
	recalc := app.NewRecalculator(deps, risk)
	alloc := app.NewAllocationService(deps)
	promises := app.NewPromiseService(deps, risk)

	bus.Subscribe(app.NewAggregateRefreshHandler(recalc))
	bus.Subscribe(app.NewAlertLogHandler(logger))

	return &Services{
		Bus:       bus,
		Risk:      risk,
		Recalc:    recalc,
		Customers: app.NewCustomerService(deps, risk, recalc),
		Invoices:  app.NewInvoiceService(deps),
		Payments:  app.NewPaymentService(deps, alloc),
		Promises:  promises,
		CallLogs:  app.NewCallLogService(deps, promises),
		Settings:  app.NewSettingsService(deps),
		Reports:   app.NewReportService(deps),
		Refresher: app.NewStatusRefresher(deps, recalc, opts.RefreshBatchSize),
		Tracker:   app.NewPromiseTracker(deps, risk),
	}
}

// Start starts the event bus
func (s *Services) Start(ctx context.Context) error {
	return s.Bus.Start(ctx)
}

// Stop drains the event bus
func (s *Services) Stop(ctx context.Context) error {
	return s.Bus.Stop(ctx)
}
