// Command arctl is the operator CLI for the collections ledger: one-shot
// sweeps, the aging report and service tokens.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/erp/collections/internal/bootstrap"
	"github.com/erp/collections/internal/infrastructure/config"
	"github.com/erp/collections/internal/infrastructure/logger"
	"github.com/erp/collections/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type globalFlags struct {
	configFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "arctl",
		Short:         "Operate the collections ledger",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to config file (default: ./config.toml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newJobsCmd(flags),
		newReportCmd(flags),
		newTokenCmd(flags),
	)
	return root
}

// env is the state shared by commands that need the database
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *persistence.Database
	svc *bootstrap.Services
}

func (f *globalFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(f.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: f.logLevel, Format: "console", Output: "stderr"})
	return cfg, log, nil
}

func (f *globalFlags) open(ctx context.Context) (*env, error) {
	cfg, log, err := f.load()
	if err != nil {
		return nil, err
	}
	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.GormLevel(f.logLevel), cfg.Telemetry.DBSlowQueryThresh))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	svc := bootstrap.NewServices(db.DB, bootstrap.Options{
		TxTimeout:        cfg.Engine.TxTimeout,
		RefreshBatchSize: cfg.Engine.RefreshBatchSize,
	}, log)
	if err := svc.Start(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("start event bus: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db, svc: svc}, nil
}

func (e *env) Close(ctx context.Context) {
	if err := e.svc.Stop(ctx); err != nil {
		e.log.Warn("event bus did not drain", zap.Error(err))
	}
	if err := e.db.Close(); err != nil {
		e.log.Warn("close database", zap.Error(err))
	}
	_ = e.log.Sync()
}
