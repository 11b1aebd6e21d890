package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusSkipped JobStatus = "SKIPPED"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobType names one of the ledger maintenance sweeps
type JobType string

const (
	JobTypeRefreshInvoiceStatuses JobType = "REFRESH_INVOICE_STATUSES"
	JobTypeDetectBrokenPromises   JobType = "DETECT_BROKEN_PROMISES"
	JobTypeRecalculateCustomers   JobType = "RECALCULATE_CUSTOMERS"
)

// AllJobTypes returns the nightly jobs in the order they are submitted.
// Statuses are refreshed first so the promise sweep and the recalculation
// see today's OVERDUE set.
func AllJobTypes() []JobType {
	return []JobType{
		JobTypeRefreshInvoiceStatuses,
		JobTypeDetectBrokenPromises,
		JobTypeRecalculateCustomers,
	}
}

// ParseJobType validates a job type name
func ParseJobType(s string) (JobType, error) {
	for _, jt := range AllJobTypes() {
		if string(jt) == s {
			return jt, nil
		}
	}
	return "", ErrInvalidJobType
}

// Job represents one submitted sweep
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Type        JobType    `json:"type"`
	TriggeredBy string     `json:"triggered_by"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// NewJob creates a new job instance
func NewJob(jobType JobType, triggeredBy string, maxRetries int) *Job {
	return &Job{
		ID:          uuid.New(),
		Type:        jobType,
		TriggeredBy: triggeredBy,
		Status:      JobStatusPending,
		SubmittedAt: time.Now(),
		MaxRetries:  maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(result any) {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.Result = result
}

// Skip marks a job that found another replica already running the sweep
func (j *Job) Skip() {
	now := time.Now()
	j.Status = JobStatusSkipped
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// JobExecutor runs one job. It returns the job's result summary.
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) (any, error)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	HistorySize       int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 2,
		JobTimeout:        20 * time.Minute,
		RetryAttempts:     2,
		RetryDelay:        5 * time.Minute,
		HistorySize:       100,
	}
}

// Scheduler runs submitted jobs on a small worker pool and keeps the most
// recent ones for status queries
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	history   []*Job
	byID      map[uuid.UUID]*Job
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 100
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, 100),
		byID:     make(map[uuid.UUID]*Job),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether workers are accepting jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Submit queues a job of the given type and returns a snapshot of it
func (s *Scheduler) Submit(jobType JobType, triggeredBy string) (Job, error) {
	job := NewJob(jobType, triggeredBy, s.config.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return Job{}, err
	}
	return s.snapshot(job), nil
}

// SubmitJob submits a job for execution
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
	default:
		return ErrJobQueueFull
	}
	s.remember(job)
	s.logger.Debug("Job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("triggered_by", job.TriggeredBy),
	)
	return nil
}

// SubmitAll queues every nightly job in order
func (s *Scheduler) SubmitAll(triggeredBy string) ([]Job, error) {
	out := make([]Job, 0, len(AllJobTypes()))
	for _, jt := range AllJobTypes() {
		job, err := s.Submit(jt, triggeredBy)
		if err != nil {
			return out, err
		}
		out = append(out, job)
	}
	return out, nil
}

// Lookup returns a snapshot of a remembered job
func (s *Scheduler) Lookup(id uuid.UUID) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.byID[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// History returns snapshots of the most recent jobs, newest first
func (s *Scheduler) History(limit int) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]Job, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.history[i])
	}
	return out
}

// remember must be called with s.mu held
func (s *Scheduler) remember(job *Job) {
	if _, ok := s.byID[job.ID]; ok {
		return
	}
	s.history = append(s.history, job)
	s.byID[job.ID] = job
	if len(s.history) > s.config.HistorySize {
		evicted := s.history[0]
		s.history = s.history[1:]
		delete(s.byID, evicted.ID)
	}
}

func (s *Scheduler) snapshot(job *Job) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *job
}

func (s *Scheduler) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	var notBefore *time.Time
	s.update(func() { notBefore = job.NextRetryAt })
	if notBefore != nil && time.Now().Before(*notBefore) {
		s.requeue(ctx, job)
		return
	}

	s.update(job.Start)
	s.logger.Info("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.executor.Execute(jobCtx, job)
	switch {
	case err == nil:
		s.update(func() { job.Complete(result) })
		s.logger.Info("Job completed successfully",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
	case errors.Is(err, ErrJobAlreadyRunning):
		s.update(job.Skip)
		s.logger.Info("Job skipped, sweep already running elsewhere",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
	default:
		var (
			retry      bool
			retryCount int
		)
		s.update(func() {
			job.Fail(err.Error())
			if retry = job.ShouldRetry(); retry {
				job.ScheduleRetry(s.config.RetryDelay)
			}
			retryCount = job.RetryCount
		})
		s.logger.Error("Job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Error(err),
		)
		if retry {
			s.logger.Info("Job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", retryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			s.requeue(ctx, job)
		}
	}
}

// requeue puts a waiting job back after a short pause so an idle worker
// does not spin on it
func (s *Scheduler) requeue(ctx context.Context, job *Job) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(requeuePause):
	}
	select {
	case s.jobs <- job:
	default:
		s.logger.Warn("Failed to re-queue job for retry",
			zap.String("job_id", job.ID.String()),
		)
	}
}

var requeuePause = 500 * time.Millisecond
