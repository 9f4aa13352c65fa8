package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/mocks"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	calls     int
	published []*events.Event
}

func (p *flakyPublisher) Publish(_ context.Context, evts ...*events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("topic unavailable")
	}
	p.published = append(p.published, evts...)
	return nil
}

func TestPublishingEventLog_Append(t *testing.T) {
	tests := []struct {
		name              string
		failures          int
		expectedCalls     int
		expectedPublished int
	}{
		{name: "published on first attempt", failures: 0, expectedCalls: 1, expectedPublished: 1},
		{name: "retried until published", failures: 2, expectedCalls: 3, expectedPublished: 1},
		{name: "dropped after the retry budget", failures: 10, expectedCalls: 3, expectedPublished: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &flakyPublisher{failures: tt.failures}
			inner := NewMemoryEventLog()
			log := NewPublishingEventLog(inner, publisher, nil, WithPublishRetry(3, time.Millisecond))

			orderID := models.GenerateUUID()
			event := events.NewEvent(orderID, events.OrderCreatedEvent, nil).WithCorrelationID(orderID)

			id, err := log.Append(context.Background(), event)
			require.NoError(t, err)
			assert.Equal(t, event.ID, id)

			stored, err := log.ReadEvents(context.Background(), orderID)
			require.NoError(t, err)
			assert.Len(t, stored, 1)

			assert.Equal(t, tt.expectedCalls, publisher.calls)
			assert.Len(t, publisher.published, tt.expectedPublished)
		})
	}
}

func TestPublishingEventLog_PublishesStoredEvent(t *testing.T) {
	orderID := models.GenerateUUID()
	event := events.NewEvent(orderID, events.OrderShippedEvent, nil).WithCorrelationID(orderID)

	publisher := mocks.NewMockPublisher(t)
	publisher.EXPECT().
		Publish(mock.Anything, mock.MatchedBy(func(e *events.Event) bool {
			return e.ID == event.ID && e.EventType == events.OrderShippedEvent
		})).
		Return(nil).
		Once()

	_, err := NewPublishingEventLog(NewMemoryEventLog(), publisher, nil).Append(context.Background(), event)
	require.NoError(t, err)
}

func TestPublishingEventLog_AppendFailureSkipsPublish(t *testing.T) {
	// no expectations: any Publish call fails the test
	publisher := mocks.NewMockPublisher(t)
	log := NewPublishingEventLog(NewMemoryEventLog(), publisher, nil)

	_, err := log.Append(context.Background(), &events.Event{})
	require.Error(t, err)
}
