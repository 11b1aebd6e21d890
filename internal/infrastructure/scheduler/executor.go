package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobLock keeps two processes from running the same sweep at once
type JobLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// JobRecorder counts job outcomes
type JobRecorder interface {
	JobRun(ctx context.Context, jobType, outcome string)
}

// StatusRefresher reclassifies open invoices
type StatusRefresher interface {
	RefreshAll(ctx context.Context) (app.RefreshSummary, error)
}

// BrokenPromiseDetector marks lapsed promises as broken
type BrokenPromiseDetector interface {
	DetectBroken(ctx context.Context, ref time.Time) (int, error)
}

// CustomerRecalculator rebuilds the cached customer aggregates
type CustomerRecalculator interface {
	RecalculateAll(ctx context.Context) (int, error)
}

// BrokenPromisesResult is the result of a DETECT_BROKEN_PROMISES run
type BrokenPromisesResult struct {
	Broken int `json:"broken"`
}

// RecalculateResult is the result of a RECALCULATE_CUSTOMERS run
type RecalculateResult struct {
	Customers int `json:"customers"`
}

// ReceivableJobExecutor dispatches the ledger sweeps by job type. Each run
// holds a lock named after its type for lockTTL.
type ReceivableJobExecutor struct {
	refresher StatusRefresher
	tracker   BrokenPromiseDetector
	recalc    CustomerRecalculator
	lock      JobLock
	lockTTL   time.Duration
	metrics   JobRecorder
	clock     func() time.Time
	logger    *zap.Logger
}

// ExecutorOption configures a ReceivableJobExecutor
type ExecutorOption func(*ReceivableJobExecutor)

// WithJobRecorder records an outcome metric per run
func WithJobRecorder(r JobRecorder) ExecutorOption {
	return func(e *ReceivableJobExecutor) { e.metrics = r }
}

// WithClock overrides the reference time for the promise sweep
func WithClock(clock func() time.Time) ExecutorOption {
	return func(e *ReceivableJobExecutor) { e.clock = clock }
}

// NewReceivableJobExecutor creates a ReceivableJobExecutor
func NewReceivableJobExecutor(
	refresher StatusRefresher,
	tracker BrokenPromiseDetector,
	recalc CustomerRecalculator,
	lock JobLock,
	lockTTL time.Duration,
	logger *zap.Logger,
	opts ...ExecutorOption,
) *ReceivableJobExecutor {
	e := &ReceivableJobExecutor{
		refresher: refresher,
		tracker:   tracker,
		recalc:    recalc,
		lock:      lock,
		lockTTL:   lockTTL,
		clock:     time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs job under its lock
func (e *ReceivableJobExecutor) Execute(ctx context.Context, job *Job) (result any, err error) {
	ctx, span := telemetry.StartSpan(ctx, "job."+string(job.Type),
		telemetry.SpanAttrJobType, string(job.Type),
		"job.id", job.ID.String(),
	)
	defer func() {
		outcome := "success"
		switch {
		case errors.Is(err, ErrJobAlreadyRunning):
			outcome = "skipped"
		case err != nil:
			outcome = "failure"
		}
		if e.metrics != nil {
			e.metrics.JobRun(ctx, string(job.Type), outcome)
		}
		telemetry.End(span, err)
	}()

	key := "job:" + string(job.Type)
	token, ok, err := e.lock.Acquire(ctx, key, e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !ok {
		return nil, ErrJobAlreadyRunning
	}
	defer func() {
		// release even when the job context has expired
		if relErr := e.lock.Release(context.WithoutCancel(ctx), key, token); relErr != nil {
			e.logger.Warn("Failed to release job lock", zap.String("key", key), zap.Error(relErr))
		}
	}()

	start := time.Now()
	result, err = e.run(ctx, job.Type)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Job finished",
		zap.String("job_type", string(job.Type)),
		zap.Duration("duration", time.Since(start)),
		zap.Any("result", result),
	)
	return result, nil
}

func (e *ReceivableJobExecutor) run(ctx context.Context, jobType JobType) (any, error) {
	switch jobType {
	case JobTypeRefreshInvoiceStatuses:
		return e.refresher.RefreshAll(ctx)
	case JobTypeDetectBrokenPromises:
		n, err := e.tracker.DetectBroken(ctx, e.clock())
		if err != nil {
			return nil, err
		}
		return BrokenPromisesResult{Broken: n}, nil
	case JobTypeRecalculateCustomers:
		n, err := e.recalc.RecalculateAll(ctx)
		if err != nil {
			return nil, err
		}
		return RecalculateResult{Customers: n}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidJobType, jobType)
	}
}

var _ JobExecutor = (*ReceivableJobExecutor)(nil)
