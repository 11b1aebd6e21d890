package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/collections/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   int
	Name string
}

func openTracedDB(t *testing.T, cfg telemetry.DBTracingConfig) (*gorm.DB, *observer.ObservedLogs) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	core, logs := observer.New(zap.DebugLevel)
	require.NoError(t, telemetry.RegisterDBTracing(db, cfg, zap.New(core)))
	return db, logs
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	db, _ := openTracedDB(t, telemetry.DBTracingConfig{Enabled: false})

	require.NoError(t, db.Create(&tracedRow{ID: 1, Name: "a"}).Error)
	assert.Empty(t, sr.Ended())
}

func TestRegisterDBTracing_SpansAreChildrenOfTheCaller(t *testing.T) {
	sr := setupTestTracer(t)
	db, logs := openTracedDB(t, telemetry.DBTracingConfig{Enabled: true, DBSystem: "sqlite"})

	ctx, parent := telemetry.StartSpan(context.Background(), "job.run")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{ID: 1, Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	parent.End()

	var dbSpans int
	for _, s := range sr.Ended() {
		if s.Name() == "job.run" {
			continue
		}
		dbSpans++
		assert.Equal(t, parent.SpanContext().TraceID(), s.SpanContext().TraceID())
		assert.Equal(t, parent.SpanContext().SpanID(), s.Parent().SpanID())
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
	assert.Equal(t, 1, logs.FilterMessage("database tracing enabled").Len())
}

func TestRegisterDBTracing_FlagsSlowQueries(t *testing.T) {
	setupTestTracer(t)
	db, logs := openTracedDB(t, telemetry.DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond})

	require.NoError(t, db.Create(&tracedRow{ID: 2, Name: "b"}).Error)
	assert.GreaterOrEqual(t, logs.FilterMessage("slow query").Len(), 1)
}
