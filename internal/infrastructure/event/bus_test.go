package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
	}
}

// recorder collects the order handlers ran in
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string, err error, types ...string) *HandlerFunc {
	return NewHandlerFunc(func(ctx context.Context, e shared.DomainEvent) error {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return err
	}, types...)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestEmit_RunsHandlersInRegistrationOrder(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}

	bus.Subscribe(rec.handler("first", nil, "INVOICE_CREATED"))
	bus.Subscribe(rec.handler("all", nil))
	bus.Subscribe(rec.handler("other", nil, "PROMISE_BROKEN"))
	bus.Subscribe(rec.handler("second", nil, "INVOICE_CREATED", "INVOICE_CHANGED"))

	require.NoError(t, bus.Emit(context.Background(), newTestEvent("INVOICE_CREATED")))
	assert.Equal(t, []string{"first", "all", "second"}, rec.snapshot())
}

func TestEmit_PropagatesFirstError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}
	boom := errors.New("recalculation failed")

	bus.Subscribe(rec.handler("fails", boom, "PAYMENT_ALLOCATED"))
	bus.Subscribe(rec.handler("never", nil, "PAYMENT_ALLOCATED"))

	err := bus.Emit(context.Background(), newTestEvent("PAYMENT_ALLOCATED"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"fails"}, rec.snapshot())
}

func TestEmit_PanicBecomesError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewHandlerFunc(func(ctx context.Context, e shared.DomainEvent) error {
		panic("nil map")
	}, "INVOICE_CHANGED"))

	err := bus.Emit(context.Background(), newTestEvent("INVOICE_CHANGED"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestEmit_NoHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.NoError(t, bus.Emit(context.Background(), newTestEvent("UNKNOWN")))
}

func TestEmitSafe_LogsFailuresWithoutSurfacing(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	rec := &recorder{}

	bus.Subscribe(rec.handler("alert", errors.New("smtp down"), "CREDIT_LIMIT_BREACHED"))
	bus.Subscribe(rec.handler("audit", nil, "CREDIT_LIMIT_BREACHED"))

	ctx, cancel := context.WithCancel(context.Background())
	bus.EmitSafe(ctx, newTestEvent("CREDIT_LIMIT_BREACHED"))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))

	assert.Equal(t, []string{"alert", "audit"}, rec.snapshot())
	require.Equal(t, 1, logs.FilterMessage("handler failed to process event").Len())
}

func TestEmit_AfterStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Stop(context.Background()))

	assert.ErrorIs(t, bus.Emit(context.Background(), newTestEvent("INVOICE_CREATED")), ErrBusStopped)

	require.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Emit(context.Background(), newTestEvent("INVOICE_CREATED")))
}

func TestUnsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}
	h := rec.handler("gone", nil, "INVOICE_CREATED")

	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Emit(context.Background(), newTestEvent("INVOICE_CREATED")))
	assert.Empty(t, rec.snapshot())
}
