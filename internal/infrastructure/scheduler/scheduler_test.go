package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedExecutor fails the first failures calls of each job, then
// succeeds with the job type as result
type scriptedExecutor struct {
	mu       sync.Mutex
	failures int
	calls    map[uuid.UUID]int
	err      error
}

func (e *scriptedExecutor) Execute(_ context.Context, job *Job) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calls == nil {
		e.calls = make(map[uuid.UUID]int)
	}
	e.calls[job.ID]++
	if e.err != nil {
		return nil, e.err
	}
	if e.calls[job.ID] <= e.failures {
		return nil, errors.New("database unavailable")
	}
	return string(job.Type), nil
}

func (e *scriptedExecutor) callsFor(id uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[id]
}

func startScheduler(t *testing.T, cfg SchedulerConfig, exec JobExecutor) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitForStatus(t *testing.T, s *Scheduler, id uuid.UUID, want JobStatus) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = s.Lookup(id)
		return err == nil && job.Status == want
	}, 3*time.Second, 10*time.Millisecond, "job never reached %s", want)
	return job
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobTypeDetectBrokenPromises, "admin", 1)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.NotEqual(t, uuid.Nil, job.ID)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.True(t, job.ShouldRetry())
	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Empty(t, job.Error)

	job.Start()
	job.Fail("boom again")
	assert.False(t, job.ShouldRetry(), "retries exhausted")

	job.Start()
	job.Complete(BrokenPromisesResult{Broken: 2})
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, BrokenPromisesResult{Broken: 2}, job.Result)
}

func TestParseJobType(t *testing.T) {
	jt, err := ParseJobType("RECALCULATE_CUSTOMERS")
	require.NoError(t, err)
	assert.Equal(t, JobTypeRecalculateCustomers, jt)

	_, err = ParseJobType("recalculate_customers")
	assert.ErrorIs(t, err, ErrInvalidJobType)
}

func TestScheduler_SubmitNotRunning(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), &scriptedExecutor{}, zap.NewNop())
	_, err := s.Submit(JobTypeRefreshInvoiceStatuses, "admin")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}

func TestScheduler_RunsSubmittedJobs(t *testing.T) {
	exec := &scriptedExecutor{}
	s := startScheduler(t, DefaultSchedulerConfig(), exec)

	jobs, err := s.SubmitAll("admin")
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	for _, j := range jobs {
		done := waitForStatus(t, s, j.ID, JobStatusSuccess)
		assert.Equal(t, string(j.Type), done.Result)
		assert.NotNil(t, done.CompletedAt)
	}

	history := s.History(10)
	require.Len(t, history, 3)
	assert.Equal(t, JobTypeRecalculateCustomers, history[0].Type, "newest first")

	_, err = s.Lookup(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	old := requeuePause
	requeuePause = 5 * time.Millisecond
	t.Cleanup(func() { requeuePause = old })

	cfg := DefaultSchedulerConfig()
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.RetryAttempts = 2
	exec := &scriptedExecutor{failures: 1}
	s := startScheduler(t, cfg, exec)

	job, err := s.Submit(JobTypeRefreshInvoiceStatuses, "cron")
	require.NoError(t, err)

	done := waitForStatus(t, s, job.ID, JobStatusSuccess)
	assert.Equal(t, 1, done.RetryCount)
	assert.Equal(t, 2, exec.callsFor(job.ID))
}

func TestScheduler_GivesUpAfterRetries(t *testing.T) {
	old := requeuePause
	requeuePause = 5 * time.Millisecond
	t.Cleanup(func() { requeuePause = old })

	cfg := DefaultSchedulerConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RetryAttempts = 1
	exec := &scriptedExecutor{err: errors.New("permanent")}
	s := startScheduler(t, cfg, exec)

	job, err := s.Submit(JobTypeRecalculateCustomers, "admin")
	require.NoError(t, err)

	done := waitForStatus(t, s, job.ID, JobStatusFailed)
	assert.Equal(t, "permanent", done.Error)
	assert.Equal(t, 2, exec.callsFor(job.ID))
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	exec := &scriptedExecutor{err: ErrJobAlreadyRunning}
	s := startScheduler(t, DefaultSchedulerConfig(), exec)

	job, err := s.Submit(JobTypeDetectBrokenPromises, "cron")
	require.NoError(t, err)

	done := waitForStatus(t, s, job.ID, JobStatusSkipped)
	assert.Empty(t, done.Error)
	assert.Equal(t, 1, exec.callsFor(job.ID), "skipped jobs are not retried")
}

func TestScheduler_HistoryIsBounded(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.HistorySize = 2
	s := startScheduler(t, cfg, &scriptedExecutor{})

	first, err := s.Submit(JobTypeRefreshInvoiceStatuses, "admin")
	require.NoError(t, err)
	_, err = s.SubmitAll("admin")
	require.NoError(t, err)

	assert.Len(t, s.History(0), 2)
	_, err = s.Lookup(first.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
