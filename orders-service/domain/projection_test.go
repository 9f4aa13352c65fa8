package domain

import (
	"testing"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/stretchr/testify/assert"
)

func eventsOf(types ...string) []*events.Event {
	orderID := models.GenerateUUID()
	evts := make([]*events.Event, len(types))
	for i, eventType := range types {
		evts[i] = events.NewEvent(orderID, eventType, nil)
	}
	return evts
}

func TestReplay(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		expected Projection
	}{
		{
			name:     "no events",
			expected: Projection{Status: OrderStatusPending, Stage: StageOrder},
		},
		{
			name: "happy path",
			types: []string{events.OrderCreatedEvent, events.InventoryReservedEvent,
				events.PaymentAuthorizedEvent, events.OrderShippedEvent},
			expected: Projection{Status: OrderStatusCompleted, Stage: StageCompleted},
		},
		{
			name: "payment declined with compensation",
			types: []string{events.OrderCreatedEvent, events.InventoryReservedEvent,
				events.PaymentFailedEvent, events.CompensationStartedEvent, events.InventoryReleasedEvent},
			expected: Projection{Status: OrderStatusFailed, Stage: StagePayment},
		},
		{
			name:     "downstream invocation failure fails the stage that could not start",
			types:    []string{events.OrderCreatedEvent, events.InventoryReservedEvent, events.OrderFailedEvent},
			expected: Projection{Status: OrderStatusFailed, Stage: StagePayment},
		},
		{
			name: "retry resumes at failed stage",
			types: []string{events.OrderCreatedEvent, events.InventoryReservedEvent,
				events.PaymentFailedEvent, events.OrderRetriedEvent},
			expected: Projection{Status: OrderStatusProcessing, Stage: StagePayment},
		},
		{
			name: "retry then success",
			types: []string{events.OrderCreatedEvent, events.InventoryReservedEvent, events.PaymentFailedEvent,
				events.OrderRetriedEvent, events.PaymentAuthorizedEvent, events.OrderShippedEvent},
			expected: Projection{Status: OrderStatusCompleted, Stage: StageCompleted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Replay(eventsOf(tt.types...)))
		})
	}
}

func TestLastFailure(t *testing.T) {
	evts := eventsOf(events.OrderCreatedEvent, events.InventoryFailedEvent, events.OrderRetriedEvent,
		events.OrderFailedEvent, events.CompensationStartedEvent)

	last := LastFailure(evts)
	assert.Equal(t, evts[3].ID, last.ID)
	assert.Nil(t, LastFailure(eventsOf(events.OrderCreatedEvent)))
}

func TestDeadLetterEntry_Lifecycle(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := NewDeadLetterEntry(models.GenerateUUID(), events.PaymentFailedEvent,
		OperationAuthorizePayment, models.GenerateUUID(), "declined", 3, created)

	assert.True(t, entry.IsOpen())
	assert.False(t, entry.EligibleAt(created.Add(59*time.Second), time.Minute))
	assert.True(t, entry.EligibleAt(created.Add(time.Minute), time.Minute))

	lastRetry := created.Add(5 * time.Minute)
	entry.LastRetryAt = &lastRetry
	entry.RetryCount = 3
	assert.False(t, entry.EligibleAt(lastRetry.Add(time.Hour), time.Minute), "budget exhausted")

	entry.Status = DeadLetterStatusPermanentlyFailed
	assert.False(t, entry.CanTransitionTo(DeadLetterStatusRetrying))
	assert.True(t, entry.CanTransitionTo(DeadLetterStatusReplayed))

	entry.Status = DeadLetterStatusReplayed
	assert.True(t, entry.IsSettled())
	assert.False(t, entry.CanTransitionTo(DeadLetterStatusResolved))
}
