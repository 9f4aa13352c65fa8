package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisDedupStore(t *testing.T) (*RedisDedupStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisDedupStore(client, time.Hour)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store, server
}

func TestRedisDedupStore_ReserveConfirmLookup(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisDedupStore(t)
	key := domain.DedupKey{EventType: events.InventoryReservedEvent, OrderID: models.GenerateUUID(), CorrelationID: models.GenerateUUID()}
	eventID := models.GenerateUUID()

	first, err := store.CheckAndReserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, first.Reserved)

	second, err := store.CheckAndReserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, second.InFlight())

	record, err := store.Lookup(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Confirmed())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), record.CreatedAt)

	require.NoError(t, store.Confirm(ctx, key, eventID))
	require.NoError(t, store.Confirm(ctx, key, models.GenerateUUID()))

	third, err := store.CheckAndReserve(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyProcessed(eventID), third)
	assert.True(t, server.TTL(redisDedupPrefix+key.String()) > 0)
}

func TestRedisDedupStore_ConfirmWithoutReservation(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisDedupStore(t)
	key := domain.DedupKey{EventType: events.OrderRetriedEvent, OrderID: models.GenerateUUID(), CorrelationID: models.GenerateUUID()}
	eventID := models.GenerateUUID()

	require.NoError(t, store.Confirm(ctx, key, eventID))

	record, err := store.Lookup(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, eventID, record.EventID)
	assert.Equal(t, time.Hour, server.TTL(redisDedupPrefix+key.String()))
}

func TestRedisDedupStore_ExpiredKeyCanBeReservedAgain(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisDedupStore(t)
	key := domain.DedupKey{EventType: events.PaymentAuthorizedEvent, OrderID: models.GenerateUUID(), CorrelationID: models.GenerateUUID()}

	r, err := store.CheckAndReserve(ctx, key)
	require.NoError(t, err)
	require.True(t, r.Reserved)

	server.FastForward(2 * time.Hour)

	r, err = store.CheckAndReserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, r.Reserved)

	purged, err := store.Purge(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestRedisDedupStore_ConcurrentReservationsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisDedupStore(t)
	key := domain.DedupKey{EventType: events.OrderShippedEvent, OrderID: models.GenerateUUID(), CorrelationID: models.GenerateUUID()}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := store.CheckAndReserve(ctx, key)
			assert.NoError(t, err)
			if r.Reserved {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestRedisDedupStore_Unavailable(t *testing.T) {
	store, server := newRedisDedupStore(t)
	server.Close()

	_, err := store.CheckAndReserve(context.Background(), domain.DedupKey{
		EventType: events.OrderCreatedEvent, OrderID: models.GenerateUUID(), CorrelationID: models.GenerateUUID(),
	})
	assert.Error(t, err)
}

func TestRedisDedupStore_Release(t *testing.T) {
	eventID := models.GenerateUUID()

	tests := []struct {
		name             string
		setup            func(t *testing.T, store *RedisDedupStore, key domain.DedupKey)
		expectedReserved bool
		expectedEventID  models.ID
	}{
		{
			name: "pending key is released",
			setup: func(t *testing.T, store *RedisDedupStore, key domain.DedupKey) {
				_, err := store.CheckAndReserve(context.Background(), key)
				require.NoError(t, err)
			},
			expectedReserved: true,
		},
		{
			name: "confirmed key survives",
			setup: func(t *testing.T, store *RedisDedupStore, key domain.DedupKey) {
				_, err := store.CheckAndReserve(context.Background(), key)
				require.NoError(t, err)
				require.NoError(t, store.Confirm(context.Background(), key, eventID))
			},
			expectedEventID: eventID,
		},
		{
			name:             "missing key is a no-op",
			setup:            func(t *testing.T, store *RedisDedupStore, key domain.DedupKey) {},
			expectedReserved: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newRedisDedupStore(t)
			key := domain.DedupKey{EventType: events.OrderRetriedEvent, OrderID: models.GenerateUUID(), CorrelationID: models.GenerateUUID()}
			tt.setup(t, store, key)

			require.NoError(t, store.Release(ctx, key))

			r, err := store.CheckAndReserve(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedReserved, r.Reserved)
			assert.Equal(t, tt.expectedEventID, r.ExistingEventID)
		})
	}
}
