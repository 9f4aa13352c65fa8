package saga

import (
	"context"
	"testing"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRouter_Handle(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name          string
		eventType     string
		setup         func(r *EventRouter, calls *[]string)
		expectedError error
		expectedCalls []string
	}{
		{
			name:      "runs handlers in registration order",
			eventType: events.OrderRetryRequestedEvent,
			setup: func(r *EventRouter, calls *[]string) {
				r.Register(events.OrderRetryRequestedEvent, HandlerFunc(func(context.Context, *events.Event) error {
					*calls = append(*calls, "first")
					return nil
				}))
				r.Register(events.OrderRetryRequestedEvent, HandlerFunc(func(context.Context, *events.Event) error {
					*calls = append(*calls, "second")
					return nil
				}))
			},
			expectedCalls: []string{"first", "second"},
		},
		{
			name:      "unknown type is acknowledged",
			eventType: "unknown",
			setup: func(r *EventRouter, calls *[]string) {
				r.Register(events.OrderRetryRequestedEvent, HandlerFunc(func(context.Context, *events.Event) error {
					*calls = append(*calls, "retry")
					return nil
				}))
			},
		},
		{
			name:      "first error stops the chain",
			eventType: events.OrderCreateRequestedEvent,
			setup: func(r *EventRouter, calls *[]string) {
				r.Register(events.OrderCreateRequestedEvent, HandlerFunc(func(context.Context, *events.Event) error {
					*calls = append(*calls, "failing")
					return errBoom
				}))
				r.Register(events.OrderCreateRequestedEvent, HandlerFunc(func(context.Context, *events.Event) error {
					*calls = append(*calls, "skipped")
					return nil
				}))
			},
			expectedError: errBoom,
			expectedCalls: []string{"failing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewEventRouter(nil)
			var calls []string
			tt.setup(router, &calls)

			err := router.Handle(context.Background(), events.NewEvent(models.GenerateUUID(), tt.eventType, nil))

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestEventRouter_EventTypes(t *testing.T) {
	router := NewEventRouter(nil)
	noop := HandlerFunc(func(context.Context, *events.Event) error { return nil })
	router.Register(events.OrderCreateRequestedEvent, noop)
	router.Register(events.DeadLetterReplayRequestedEvent, noop)
	router.Register(events.DeadLetterReplayRequestedEvent, noop)

	assert.ElementsMatch(t, []string{events.OrderCreateRequestedEvent, events.DeadLetterReplayRequestedEvent}, router.EventTypes())
	assert.Equal(t, "saga-event-router", router.HandlerID())
}
