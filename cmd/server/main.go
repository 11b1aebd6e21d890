// Command server runs the collections API and the nightly ledger sweeps.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/collections/internal/bootstrap"
	"github.com/erp/collections/internal/infrastructure/auth"
	"github.com/erp/collections/internal/infrastructure/cache"
	"github.com/erp/collections/internal/infrastructure/config"
	"github.com/erp/collections/internal/infrastructure/logger"
	"github.com/erp/collections/internal/infrastructure/persistence"
	"github.com/erp/collections/internal/infrastructure/scheduler"
	"github.com/erp/collections/internal/infrastructure/telemetry"
	"github.com/erp/collections/internal/interfaces/http/handler"
	"github.com/erp/collections/internal/interfaces/http/middleware"
	"github.com/erp/collections/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog := logger.New(logCfg)

	// Telemetry first so the final logger can tee into the OTLP log pipeline
	providers, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
		LogExportEnabled:  cfg.Telemetry.LogExportEnabled,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log := bootLog
	if core := providers.LogCore(); core != nil {
		log = logger.New(logCfg, core)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting collections service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      !cfg.App.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	metrics, err := telemetry.NewLedgerMetrics(providers.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Redis is optional; Create falls back to in-memory components
	comps, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer func() {
		if err := comps.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}()

	// Use cases and event handlers
	svc := bootstrap.NewServices(db.DB, bootstrap.Options{
		TxTimeout:        cfg.Engine.TxTimeout,
		RefreshBatchSize: cfg.Engine.RefreshBatchSize,
		Metrics:          metrics,
	}, log)
	if comps.Client != nil {
		svc.Bus.Subscribe(cache.NewRedisAlertPublisher(comps.Client, cfg.Redis.AlertChannel))
		log.Info("Publishing collection alerts to Redis", zap.String("channel", cfg.Redis.AlertChannel))
	}
	if err := svc.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Scheduler and the daily cron trigger
	var (
		jobScheduler *scheduler.Scheduler
		cronTrigger  *scheduler.CronTrigger
		jobHandler   *handler.JobHandler
	)
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewReceivableJobExecutor(
			svc.Refresher, svc.Tracker, svc.Recalc,
			comps.Lock, cfg.Redis.LockTTL, log,
			scheduler.WithJobRecorder(metrics),
		)
		jobScheduler = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:           true,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
			HistorySize:       100,
		}, executor, log)
		if err := jobScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		triggerCfg, err := scheduler.CronTriggerConfigFromSchedule(cfg.Scheduler.DailyCronSchedule)
		if err != nil {
			log.Fatal("Invalid scheduler.daily_cron_schedule", zap.Error(err))
		}
		cronTrigger = scheduler.NewCronTrigger(triggerCfg, jobScheduler, log)
		if err := cronTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		log.Info("Scheduler started",
			zap.String("schedule", cfg.Scheduler.DailyCronSchedule),
			zap.Time("next_run_at", cronTrigger.NextRunAt()),
		)
		jobHandler = handler.NewJobHandler(jobScheduler)
	}

	// HTTP engine
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     providers.IsEnabled(),
		}),
		middleware.HTTPMetrics(providers.Meter(cfg.Telemetry.ServiceName), log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	system := handler.NewSystemHandler(cfg.App.Name, Version, sqlDB)
	engine.GET("/health", system.Health)
	engine.GET("/api/v1/health", system.Health)

	jwtSvc := auth.NewJWTService(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(jwtSvc)
	jwtCfg.SkipPaths = append(jwtCfg.SkipPaths, cfg.JWT.SkipPaths...)
	jwtCfg.Logger = log

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg), middleware.TracingAttributeInjector())
	router.RegisterAPI(r, router.Handlers{
		Customers: handler.NewCustomerHandler(svc.Customers, svc.Risk),
		Invoices:  handler.NewInvoiceHandler(svc.Invoices),
		Payments:  handler.NewPaymentHandler(svc.Payments),
		Promises:  handler.NewPromiseHandler(svc.Promises),
		CallLogs:  handler.NewCallLogHandler(svc.CallLogs),
		Settings:  handler.NewSettingsHandler(svc.Settings),
		Reports:   handler.NewReportHandler(svc.Reports),
		Jobs:      jobHandler,
		System:    system,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cronTrigger != nil {
		if err := cronTrigger.Stop(ctx); err != nil {
			log.Error("Error stopping cron trigger", zap.Error(err))
		}
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := svc.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}
