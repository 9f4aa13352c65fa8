package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ domain.DedupStore = (*PostgresDedupStore)(nil)

// PostgresDedupStore reserves keys through the dedup_keys primary key, so two concurrent
// reservations of the same key can never both succeed.
type PostgresDedupStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresDedupStore creates a new PostgresDedupStore
func NewPostgresDedupStore(db *sqlx.DB) *PostgresDedupStore {
	return &PostgresDedupStore{db: db, now: time.Now}
}

type postgresDedupKey struct {
	EventType     string         `db:"event_type"`
	OrderID       string         `db:"order_id"`
	CorrelationID string         `db:"correlation_id"`
	EventID       sql.NullString `db:"event_id"`
	CreatedAt     time.Time      `db:"created_at"`
}

// CheckAndReserve inserts the key or reports who already holds it
func (s *PostgresDedupStore) CheckAndReserve(ctx context.Context, key domain.DedupKey) (domain.Reservation, error) {
	// a purge may delete the holder between the insert and the lookup
	for attempt := 0; attempt < 2; attempt++ {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO dedup_keys (event_type, order_id, correlation_id, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (event_type, order_id, correlation_id) DO NOTHING`,
			key.EventType, key.OrderID.String(), key.CorrelationID.String(), s.now().UTC())
		if err != nil {
			return domain.Reservation{}, errors.Wrap(err, "failed to reserve dedup key")
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return domain.Reservation{}, errors.Wrap(err, "failed to reserve dedup key")
		}
		if inserted == 1 {
			return domain.Reserved(), nil
		}

		record, err := s.Lookup(ctx, key)
		if err != nil {
			return domain.Reservation{}, err
		}
		if record != nil {
			return domain.AlreadyProcessed(record.EventID), nil
		}
	}
	return domain.Reservation{}, errors.Errorf("dedup key %s changed during reservation", key)
}

// Confirm binds the key to its event, inserting it when no reservation exists
func (s *PostgresDedupStore) Confirm(ctx context.Context, key domain.DedupKey, eventID models.ID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dedup_keys (event_type, order_id, correlation_id, event_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_type, order_id, correlation_id) DO UPDATE
		SET event_id = EXCLUDED.event_id
		WHERE dedup_keys.event_id IS NULL`,
		key.EventType, key.OrderID.String(), key.CorrelationID.String(), eventID.String(), s.now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to confirm dedup key")
	}
	return nil
}

// Release deletes the key only while it is still pending
func (s *PostgresDedupStore) Release(ctx context.Context, key domain.DedupKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM dedup_keys
		WHERE event_type = $1 AND order_id = $2 AND correlation_id = $3 AND event_id IS NULL`,
		key.EventType, key.OrderID.String(), key.CorrelationID.String())
	if err != nil {
		return errors.Wrap(err, "failed to release dedup key")
	}
	return nil
}

// Lookup returns nil, nil when the key is absent
func (s *PostgresDedupStore) Lookup(ctx context.Context, key domain.DedupKey) (*domain.DedupRecord, error) {
	var row postgresDedupKey
	err := s.db.GetContext(ctx, &row, `
		SELECT event_type, order_id, correlation_id, event_id, created_at
		FROM dedup_keys
		WHERE event_type = $1 AND order_id = $2 AND correlation_id = $3`,
		key.EventType, key.OrderID.String(), key.CorrelationID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to look up dedup key")
	}

	record := &domain.DedupRecord{Key: key, CreatedAt: row.CreatedAt.UTC()}
	if row.EventID.Valid {
		record.EventID = models.ID(row.EventID.String)
	}
	return record, nil
}

// Purge deletes keys created before the cutoff
func (s *PostgresDedupStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dedup_keys WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge dedup keys")
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge dedup keys")
	}
	return purged, nil
}
