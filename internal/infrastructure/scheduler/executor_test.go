package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) RefreshAll(ctx context.Context) (app.RefreshSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(app.RefreshSummary), args.Error(1)
}

type mockDetector struct{ mock.Mock }

func (m *mockDetector) DetectBroken(ctx context.Context, ref time.Time) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

type mockRecalculator struct{ mock.Mock }

func (m *mockRecalculator) RecalculateAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) JobRun(ctx context.Context, jobType, outcome string) {
	m.Called(ctx, jobType, outcome)
}

type executorFixture struct {
	refresher *mockRefresher
	detector  *mockDetector
	recalc    *mockRecalculator
	recorder  *mockRecorder
	lock      *cache.InMemoryLock
	exec      *ReceivableJobExecutor
}

var executorNow = time.Date(2026, 4, 15, 2, 0, 0, 0, time.UTC)

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		refresher: &mockRefresher{},
		detector:  &mockDetector{},
		recalc:    &mockRecalculator{},
		recorder:  &mockRecorder{},
		lock:      cache.NewInMemoryLock(),
	}
	f.exec = NewReceivableJobExecutor(f.refresher, f.detector, f.recalc, f.lock, time.Hour, zap.NewNop(),
		WithJobRecorder(f.recorder),
		WithClock(func() time.Time { return executorNow }),
	)
	return f
}

func TestReceivableJobExecutor_Dispatch(t *testing.T) {
	f := newExecutorFixture()
	summary := app.RefreshSummary{
		Scanned:   4,
		Changed:   3,
		ByStatus:  map[receivable.InvoiceStatus]int{receivable.InvoiceStatusOverdue: 3},
		Customers: 2,
	}
	f.refresher.On("RefreshAll", mock.Anything).Return(summary, nil).Once()
	f.detector.On("DetectBroken", mock.Anything, executorNow).Return(2, nil).Once()
	f.recalc.On("RecalculateAll", mock.Anything).Return(5, nil).Once()
	f.recorder.On("JobRun", mock.Anything, mock.Anything, "success").Times(3)

	ctx := context.Background()

	res, err := f.exec.Execute(ctx, NewJob(JobTypeRefreshInvoiceStatuses, "cron", 0))
	require.NoError(t, err)
	assert.Equal(t, summary, res)

	res, err = f.exec.Execute(ctx, NewJob(JobTypeDetectBrokenPromises, "cron", 0))
	require.NoError(t, err)
	assert.Equal(t, BrokenPromisesResult{Broken: 2}, res)

	res, err = f.exec.Execute(ctx, NewJob(JobTypeRecalculateCustomers, "cron", 0))
	require.NoError(t, err)
	assert.Equal(t, RecalculateResult{Customers: 5}, res)

	f.refresher.AssertExpectations(t)
	f.detector.AssertExpectations(t)
	f.recalc.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
	assert.False(t, f.lock.Held("job:"+string(JobTypeRefreshInvoiceStatuses)), "lock released after run")
}

func TestReceivableJobExecutor_LockHeld(t *testing.T) {
	f := newExecutorFixture()
	f.recorder.On("JobRun", mock.Anything, string(JobTypeRecalculateCustomers), "skipped").Once()

	_, ok, err := f.lock.Acquire(context.Background(), "job:"+string(JobTypeRecalculateCustomers), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.exec.Execute(context.Background(), NewJob(JobTypeRecalculateCustomers, "admin", 0))
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	f.recalc.AssertNotCalled(t, "RecalculateAll", mock.Anything)
	f.recorder.AssertExpectations(t)
}

func TestReceivableJobExecutor_FailureReleasesLock(t *testing.T) {
	f := newExecutorFixture()
	f.recalc.On("RecalculateAll", mock.Anything).Return(0, errors.New("connection reset")).Once()
	f.recorder.On("JobRun", mock.Anything, string(JobTypeRecalculateCustomers), "failure").Once()

	_, err := f.exec.Execute(context.Background(), NewJob(JobTypeRecalculateCustomers, "cron", 0))
	assert.ErrorContains(t, err, "connection reset")
	assert.False(t, f.lock.Held("job:"+string(JobTypeRecalculateCustomers)))
	f.recorder.AssertExpectations(t)
}

func TestReceivableJobExecutor_UnknownType(t *testing.T) {
	f := newExecutorFixture()
	f.recorder.On("JobRun", mock.Anything, "PURGE", "failure").Once()

	_, err := f.exec.Execute(context.Background(), NewJob(JobType("PURGE"), "admin", 0))
	assert.ErrorIs(t, err, ErrInvalidJobType)
}
