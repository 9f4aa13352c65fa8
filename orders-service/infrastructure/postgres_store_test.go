package infrastructure

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

var (
	orderID = models.ID("0b8f8a51-2f4c-4e57-9d6b-2f6c1c1b1a01")
	eventID = models.ID("6a1e5cde-4b1f-4b7a-8d0e-3c1f6a2b9c02")
	entryID = models.ID("9d3c4b2a-1f0e-4d5c-8b7a-6e5f4d3c2b03")
	created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func TestPostgresEventLog_Append(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(mock sqlmock.Sqlmock)
		expectedError string
	}{
		{
			name: "inserts the event",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saga_events")).
					WithArgs(eventID.String(), orderID.String(), events.PaymentFailedEvent, orderID.String(),
						sqlmock.AnyArg(), 1, sqlmock.AnyArg(), sqlmock.AnyArg(), "orders-service", created).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate event ID",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saga_events")).
					WillReturnError(&pq.Error{Code: uniqueViolation})
			},
			expectedError: "already appended",
		},
		{
			name: "storage failure",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saga_events")).
					WillReturnError(errors.New("connection reset"))
			},
			expectedError: "failed to insert event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMocks(mock)

			evt := events.NewEvent(orderID, events.PaymentFailedEvent, domain.StageFailedData{
				Stage:     domain.StagePayment,
				Operation: domain.OperationAuthorizePayment,
				Reason:    "declined",
			}).WithCorrelationID(orderID).WithProducer("orders-service")
			evt.ID = eventID
			evt.CreatedAt = created

			id, err := NewPostgresEventLog(db).Append(context.Background(), evt)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, eventID, id)
		})
	}
}

func TestPostgresEventLog_ReadEvents(t *testing.T) {
	db, mock := newMockDB(t)
	causation := models.ID("1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e05")

	rows := sqlmock.NewRows([]string{
		"id", "order_id", "event_type", "correlation_id", "causation_id",
		"schema_version", "data", "metadata", "produced_by", "created_at",
	}).
		AddRow(causation.String(), orderID.String(), events.OrderCreatedEvent, orderID.String(), nil,
			1, []byte(`{"customer_ref":"cust-1"}`), []byte(`{}`), "orders-service", created).
		AddRow(eventID.String(), orderID.String(), events.PaymentFailedEvent, orderID.String(), causation.String(),
			1, []byte(`{"stage":"payment","operation":"authorize_payment","reason":"declined"}`),
			[]byte(`{"attempt":"1"}`), "orders-service", created.Add(time.Second))
	mock.ExpectQuery(regexp.QuoteMeta("FROM saga_events")).
		WithArgs(orderID.String()).
		WillReturnRows(rows)

	evts, err := NewPostgresEventLog(db).ReadEvents(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, evts, 2)

	assert.True(t, evts[0].CausationID.IsZero())
	assert.Equal(t, causation, evts[1].CausationID)
	assert.Equal(t, "1", evts[1].Metadata["attempt"])

	var data domain.StageFailedData
	require.NoError(t, evts[1].UnmarshalPayload(&data))
	assert.Equal(t, domain.StagePayment, data.Stage)
	assert.Equal(t, "declined", data.Reason)
}

func TestPostgresOrderRepository(t *testing.T) {
	columns := []string{"id", "customer_ref", "items", "total_amount", "currency", "status", "stage", "created_at", "updated_at"}

	t.Run("save upserts status and stage", func(t *testing.T) {
		db, mock := newMockDB(t)
		order, err := domain.NewOrder(orderID, "cust-1",
			[]domain.Item{{SKU: "sku-1", Quantity: 2, UnitPrice: decimal.RequireFromString("50.00")}}, "", created)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
			WithArgs(orderID.String(), "cust-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "USD",
				"pending", "order", created, created).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgresOrderRepository(db).Save(context.Background(), order))
	})

	t.Run("find maps the row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
			WithArgs(orderID.String()).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				orderID.String(), "cust-1", []byte(`[{"sku":"sku-1","quantity":2,"unit_price":"50"}]`),
				"100.00", "USD", "failed", "payment", created, created.Add(time.Minute)))

		order, err := NewPostgresOrderRepository(db).FindByID(context.Background(), orderID)
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.True(t, order.FailedAt(domain.StagePayment))
		assert.Equal(t, "100.00 USD", order.TotalAmount.String())
		require.Len(t, order.Items, 1)
		assert.Equal(t, int64(2), order.Items[0].Quantity)
	})

	t.Run("missing order", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows(columns))

		order, err := NewPostgresOrderRepository(db).FindByID(context.Background(), orderID)
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("list filters by status", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE ($1 = '' OR status = $1)")).
			WithArgs("failed", 10).
			WillReturnRows(sqlmock.NewRows(columns))

		orders, err := NewPostgresOrderRepository(db).List(context.Background(), domain.OrderQuery{Status: domain.OrderStatusFailed, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestPostgresDedupStore_CheckAndReserve(t *testing.T) {
	key := domain.DedupKey{EventType: events.PaymentAuthorizedEvent, OrderID: orderID, CorrelationID: orderID}
	lookup := regexp.QuoteMeta("SELECT event_type, order_id, correlation_id, event_id, created_at")
	columns := []string{"event_type", "order_id", "correlation_id", "event_id", "created_at"}

	tests := []struct {
		name           string
		setupMocks     func(mock sqlmock.Sqlmock)
		expectedError  string
		validateResult func(t *testing.T, r domain.Reservation)
	}{
		{
			name: "first caller reserves",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_type, order_id, correlation_id) DO NOTHING")).
					WithArgs(key.EventType, orderID.String(), orderID.String(), sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			validateResult: func(t *testing.T, r domain.Reservation) {
				assert.True(t, r.Reserved)
			},
		},
		{
			name: "confirmed key returns the existing event",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dedup_keys")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(lookup).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(key.EventType, orderID.String(), orderID.String(), eventID.String(), created))
			},
			validateResult: func(t *testing.T, r domain.Reservation) {
				assert.False(t, r.Reserved)
				assert.Equal(t, eventID, r.ExistingEventID)
			},
		},
		{
			name: "unconfirmed key is in flight",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dedup_keys")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(lookup).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(key.EventType, orderID.String(), orderID.String(), nil, created))
			},
			validateResult: func(t *testing.T, r domain.Reservation) {
				assert.True(t, r.InFlight())
			},
		},
		{
			name: "holder purged between insert and lookup",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dedup_keys")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(lookup).
					WillReturnRows(sqlmock.NewRows(columns))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dedup_keys")).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			validateResult: func(t *testing.T, r domain.Reservation) {
				assert.True(t, r.Reserved)
			},
		},
		{
			name: "store unavailable",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dedup_keys")).
					WillReturnError(errors.New("connection refused"))
			},
			expectedError: "failed to reserve dedup key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMocks(mock)

			r, err := NewPostgresDedupStore(db).CheckAndReserve(context.Background(), key)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			tt.validateResult(t, r)
		})
	}
}

func TestPostgresDedupStore_ConfirmAndPurge(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresDedupStore(db)
	key := domain.DedupKey{EventType: events.OrderShippedEvent, OrderID: orderID, CorrelationID: orderID}

	mock.ExpectExec(regexp.QuoteMeta("WHERE dedup_keys.event_id IS NULL")).
		WithArgs(key.EventType, orderID.String(), orderID.String(), eventID.String(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dedup_keys WHERE created_at < $1")).
		WithArgs(created).
		WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, store.Confirm(context.Background(), key, eventID))
	purged, err := store.Purge(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, int64(5), purged)
}

func TestPostgresDedupStore_Release(t *testing.T) {
	key := domain.DedupKey{EventType: events.InventoryReservedEvent, OrderID: orderID, CorrelationID: orderID}

	tests := []struct {
		name          string
		setupMocks    func(mock sqlmock.Sqlmock)
		expectedError string
	}{
		{
			name: "pending key is deleted",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("AND event_id IS NULL")).
					WithArgs(key.EventType, orderID.String(), orderID.String()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "confirmed or missing key is left alone",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dedup_keys")).
					WithArgs(key.EventType, orderID.String(), orderID.String()).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "store unavailable",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dedup_keys")).
					WillReturnError(errors.New("connection refused"))
			},
			expectedError: "failed to release dedup key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMocks(mock)

			err := NewPostgresDedupStore(db).Release(context.Background(), key)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}

var deadLetterRowColumns = []string{
	"id", "order_id", "event_type", "operation", "correlation_id", "error_message",
	"retry_count", "max_retries", "status", "last_retry_at", "created_at", "updated_at",
}

func TestPostgresDeadLetterRepository_Enqueue(t *testing.T) {
	db, mock := newMockDB(t)
	entry := domain.NewDeadLetterEntry(orderID, events.PaymentFailedEvent, domain.OperationAuthorizePayment,
		orderID, "declined", 3, created)

	lastRetry := created.Add(-time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (order_id, operation) WHERE status IN ('pending', 'retrying')")).
		WithArgs(entry.ID.String(), orderID.String(), events.PaymentFailedEvent, "authorize_payment", orderID.String(),
			"declined", 0, 3, "pending", sqlmock.AnyArg(), created, created).
		WillReturnRows(sqlmock.NewRows(deadLetterRowColumns).AddRow(
			entryID.String(), orderID.String(), events.PaymentFailedEvent, "authorize_payment", orderID.String(),
			"declined", 1, 3, "retrying", lastRetry, created.Add(-time.Hour), created))

	stored, err := NewPostgresDeadLetterRepository(db).Enqueue(context.Background(), entry)
	require.NoError(t, err)

	assert.Equal(t, entryID, stored.ID)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, domain.DeadLetterStatusRetrying, stored.Status)
	require.NotNil(t, stored.LastRetryAt)
	assert.Equal(t, lastRetry, *stored.LastRetryAt)
}

func TestPostgresDeadLetterRepository_List(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ($1, $2) AND order_id = $3 ORDER BY created_at ASC LIMIT $4")).
		WithArgs("pending", "permanently_failed", orderID.String(), 5).
		WillReturnRows(sqlmock.NewRows(deadLetterRowColumns).AddRow(
			entryID.String(), orderID.String(), events.InventoryFailedEvent, "reserve_inventory", orderID.String(),
			"out of stock", 3, 3, "permanently_failed", created, created, created))

	entries, err := NewPostgresDeadLetterRepository(db).List(context.Background(), domain.DeadLetterQuery{
		Statuses: []domain.DeadLetterStatus{domain.DeadLetterStatusPending, domain.DeadLetterStatusPermanentlyFailed},
		OrderID:  orderID,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OperationReserveInventory, entries[0].Operation)
	assert.False(t, entries[0].HasRetryBudget())
}

func TestPostgresDeadLetterRepository_ListEligible(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(last_retry_at, created_at) <= $1")).
		WithArgs(created, 10).
		WillReturnRows(sqlmock.NewRows(deadLetterRowColumns))

	entries, err := NewPostgresDeadLetterRepository(db).ListEligible(context.Background(), created, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostgresDeadLetterRepository_Updates(t *testing.T) {
	exists := regexp.QuoteMeta("SELECT EXISTS")

	tests := []struct {
		name          string
		run           func(r *PostgresDeadLetterRepository) error
		setupMocks    func(mock sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "attempt spends budget",
			run: func(r *PostgresDeadLetterRepository) error {
				return r.RecordAttempt(context.Background(), entryID, created)
			},
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("SET retry_count = retry_count + 1")).
					WithArgs(entryID.String(), created, "retrying").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "attempt without budget",
			run: func(r *PostgresDeadLetterRepository) error {
				return r.RecordAttempt(context.Background(), entryID, created)
			},
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("SET retry_count = retry_count + 1")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(exists).WithArgs(entryID.String()).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			expectedError: domain.ErrRetryBudgetExhausted,
		},
		{
			name: "attempt on unknown entry",
			run: func(r *PostgresDeadLetterRepository) error {
				return r.RecordAttempt(context.Background(), entryID, created)
			},
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("SET retry_count = retry_count + 1")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(exists).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			expectedError: domain.ErrDeadLetterNotFound,
		},
		{
			name: "touch restarts the cooldown",
			run: func(r *PostgresDeadLetterRepository) error {
				return r.TouchRetry(context.Background(), entryID, created)
			},
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("SET last_retry_at = $2")).
					WithArgs(entryID.String(), created).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "settle replayed entry",
			run: func(r *PostgresDeadLetterRepository) error {
				return r.UpdateStatus(context.Background(), entryID, domain.DeadLetterStatusReplayed, created)
			},
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("status = ANY($4)")).
					WithArgs(entryID.String(), "replayed", created, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "illegal transition",
			run: func(r *PostgresDeadLetterRepository) error {
				return r.UpdateStatus(context.Background(), entryID, domain.DeadLetterStatusRetrying, created)
			},
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("status = ANY($4)")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(exists).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			expectedError: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMocks(mock)

			err := tt.run(NewPostgresDeadLetterRepository(db))

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
