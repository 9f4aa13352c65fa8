package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ domain.EventLog = (*PostgresEventLog)(nil)

const uniqueViolation = "23505"

// PostgresEventLog is the append-only saga event table
type PostgresEventLog struct {
	db *sqlx.DB
}

// NewPostgresEventLog creates a new PostgresEventLog
func NewPostgresEventLog(db *sqlx.DB) *PostgresEventLog {
	return &PostgresEventLog{db: db}
}

// postgresEvent represents an event row
type postgresEvent struct {
	ID            string         `db:"id"`
	OrderID       string         `db:"order_id"`
	EventType     string         `db:"event_type"`
	CorrelationID string         `db:"correlation_id"`
	CausationID   sql.NullString `db:"causation_id"`
	SchemaVersion int            `db:"schema_version"`
	Data          []byte         `db:"data"`
	Metadata      []byte         `db:"metadata"`
	ProducedBy    string         `db:"produced_by"`
	CreatedAt     time.Time      `db:"created_at"`
}

// Append inserts the event. Events are never updated or deleted.
func (l *PostgresEventLog) Append(ctx context.Context, event *events.Event) (models.ID, error) {
	if event == nil || event.ID.IsZero() || event.OrderID.IsZero() {
		return "", errors.New("event must have an ID and an order ID")
	}

	row, err := l.toPostgres(event)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO saga_events (
			id, order_id, event_type, correlation_id, causation_id,
			schema_version, data, metadata, produced_by, created_at
		) VALUES (
			:id, :order_id, :event_type, :correlation_id, :causation_id,
			:schema_version, :data, :metadata, :produced_by, :created_at
		)`

	if _, err := l.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return "", errors.Errorf("event %s already appended", event.ID)
		}
		return "", errors.Wrap(err, "failed to insert event")
	}

	return event.ID, nil
}

// ReadEvents returns the order's events in append order
func (l *PostgresEventLog) ReadEvents(ctx context.Context, orderID models.ID) ([]*events.Event, error) {
	query := `
		SELECT id, order_id, event_type, correlation_id, causation_id,
			   schema_version, data, metadata, produced_by, created_at
		FROM saga_events
		WHERE order_id = $1
		ORDER BY created_at ASC, seq ASC`

	var rows []postgresEvent
	if err := l.db.SelectContext(ctx, &rows, query, orderID.String()); err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}

	result := make([]*events.Event, len(rows))
	for i := range rows {
		event, err := l.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		result[i] = event
	}
	return result, nil
}

func (l *PostgresEventLog) toPostgres(event *events.Event) (*postgresEvent, error) {
	data, err := event.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event data")
	}

	metadata := event.Metadata
	if metadata == nil {
		metadata = events.Metadata{}
	}
	rawMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event metadata")
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &postgresEvent{
		ID:            event.ID.String(),
		OrderID:       event.OrderID.String(),
		EventType:     event.EventType,
		CorrelationID: event.CorrelationID.String(),
		CausationID:   sql.NullString{String: event.CausationID.String(), Valid: !event.CausationID.IsZero()},
		SchemaVersion: event.SchemaVersion,
		Data:          data,
		Metadata:      rawMetadata,
		ProducedBy:    event.ProducedBy,
		CreatedAt:     createdAt.UTC(),
	}, nil
}

func (l *PostgresEventLog) toDomain(row *postgresEvent) (*events.Event, error) {
	id, err := models.NewID(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event ID")
	}

	orderID, err := models.NewID(row.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	metadata := make(events.Metadata)
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal event metadata")
		}
	}

	var causationID models.ID
	if row.CausationID.Valid {
		causationID = models.ID(row.CausationID.String)
	}

	return &events.Event{
		ID:            id,
		OrderID:       orderID,
		EventType:     row.EventType,
		CorrelationID: models.ID(row.CorrelationID),
		CausationID:   causationID,
		SchemaVersion: row.SchemaVersion,
		Data:          json.RawMessage(row.Data),
		ProducedBy:    row.ProducedBy,
		CreatedAt:     row.CreatedAt.UTC(),
		Metadata:      metadata,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
