package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in
	// An empty slice means the handler receives all events
	EventTypes() []string
}

// EventEmitter dispatches domain events to registered handlers.
//
// Emit runs every matching handler in registration order on the caller's
// goroutine and returns the first handler error. Callers that must know the
// follow-up work succeeded (aggregate recalculation inside a transaction)
// use Emit.
//
// EmitSafe never blocks on handlers and never returns their errors; failures
// are logged. It is meant for best-effort notifications.
type EventEmitter interface {
	Emit(ctx context.Context, event DomainEvent) error
	EmitSafe(ctx context.Context, event DomainEvent)
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	// Subscribe registers a handler for specific event types
	// If no event types are provided, the handler's own EventTypes are used
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from the subscription list
	Unsubscribe(handler EventHandler)
}

// EventBus combines emitter and subscriber capabilities
type EventBus interface {
	EventEmitter
	EventSubscriber
	Start(ctx context.Context) error
	// Stop waits for in-flight EmitSafe dispatches
	Stop(ctx context.Context) error
}
