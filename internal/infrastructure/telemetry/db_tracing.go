package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables in span statements; never in production
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default "postgresql"
}

type queryStartKey struct{}

type dbTracer struct {
	cfg    DBTracingConfig
	logger *zap.Logger
}

// RegisterDBTracing installs the otelgorm plugin and a slow query hook on
// db. Every statement becomes a child span of the request or job span in
// its context; statements slower than the threshold are flagged on the span
// and logged.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	t := &dbTracer{cfg: cfg, logger: logger}
	cb := db.Callback()
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("ledger_timing:before_create", t.before),
		cb.Query().Before("gorm:query").Register("ledger_timing:before_query", t.before),
		cb.Update().Before("gorm:update").Register("ledger_timing:before_update", t.before),
		cb.Delete().Before("gorm:delete").Register("ledger_timing:before_delete", t.before),
		cb.Row().Before("gorm:row").Register("ledger_timing:before_row", t.before),
		cb.Raw().Before("gorm:raw").Register("ledger_timing:before_raw", t.before),
		cb.Create().After("gorm:create").Register("ledger_timing:after_create", t.after),
		cb.Query().After("gorm:query").Register("ledger_timing:after_query", t.after),
		cb.Update().After("gorm:update").Register("ledger_timing:after_update", t.after),
		cb.Delete().After("gorm:delete").Register("ledger_timing:after_delete", t.after),
		cb.Row().After("gorm:row").Register("ledger_timing:after_row", t.after),
		cb.Raw().After("gorm:raw").Register("ledger_timing:after_raw", t.after),
	); err != nil {
		return err
	}

	logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func (t *dbTracer) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t *dbTracer) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= t.cfg.SlowQueryThresh {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	t.logger.Warn("slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.String("trace_id", GetTraceID(ctx)),
	)
}
