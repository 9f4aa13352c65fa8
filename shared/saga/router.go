package saga

import (
	"context"
	"log/slog"
	"sync"

	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
)

var _ events.EventHandler = (*EventRouter)(nil)

// HandlerFunc wraps a function as an event handler
type HandlerFunc func(ctx context.Context, event *events.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event *events.Event) error {
	return f(ctx, event)
}

// EventRouter dispatches inbound events to the handlers registered for their type.
// Handlers run in registration order and the first error is returned so the message
// is redelivered.
type EventRouter struct {
	mu       sync.RWMutex
	handlers map[string][]events.EventHandler
	logger   *slog.Logger
}

// NewEventRouter creates a new event router
func NewEventRouter(logger *slog.Logger) *EventRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRouter{
		handlers: make(map[string][]events.EventHandler),
		logger:   logger,
	}
}

// Register adds a handler for eventType
func (r *EventRouter) Register(eventType string, handler events.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

// EventTypes lists the types with at least one handler
func (r *EventRouter) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, eventType)
	}
	return types
}

func (r *EventRouter) HandlerID() string {
	return "saga-event-router"
}

func (r *EventRouter) Handle(ctx context.Context, event *events.Event) error {
	r.mu.RLock()
	handlers := r.handlers[event.EventType]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.logger.WarnContext(ctx, "no handler registered", "event_type", event.EventType, "event_id", event.ID)
		return nil
	}

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			return errors.Wrapf(err, "failed to handle %s", event.EventType)
		}
	}
	return nil
}
