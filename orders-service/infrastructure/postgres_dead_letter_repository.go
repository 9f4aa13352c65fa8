package infrastructure

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ domain.DeadLetterRepository = (*PostgresDeadLetterRepository)(nil)

// PostgresDeadLetterRepository stores dead-letter entries. The partial unique index on
// (order_id, operation) for open statuses backs the one-open-entry rule.
type PostgresDeadLetterRepository struct {
	db *sqlx.DB
}

// NewPostgresDeadLetterRepository creates a new PostgresDeadLetterRepository
func NewPostgresDeadLetterRepository(db *sqlx.DB) *PostgresDeadLetterRepository {
	return &PostgresDeadLetterRepository{db: db}
}

// postgresDeadLetter represents a dead-letter row
type postgresDeadLetter struct {
	ID            string       `db:"id"`
	OrderID       string       `db:"order_id"`
	EventType     string       `db:"event_type"`
	Operation     string       `db:"operation"`
	CorrelationID string       `db:"correlation_id"`
	ErrorMessage  string       `db:"error_message"`
	RetryCount    int          `db:"retry_count"`
	MaxRetries    int          `db:"max_retries"`
	Status        string       `db:"status"`
	LastRetryAt   sql.NullTime `db:"last_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

const deadLetterColumns = `id, order_id, event_type, operation, correlation_id, error_message,
	retry_count, max_retries, status, last_retry_at, created_at, updated_at`

// Enqueue inserts the entry or refreshes the open entry for the same order and operation
func (r *PostgresDeadLetterRepository) Enqueue(ctx context.Context, entry *domain.DeadLetterEntry) (*domain.DeadLetterEntry, error) {
	query := `
		INSERT INTO dead_letters (` + deadLetterColumns + `)
		VALUES (
			:id, :order_id, :event_type, :operation, :correlation_id, :error_message,
			:retry_count, :max_retries, :status, :last_retry_at, :created_at, :updated_at
		)
		ON CONFLICT (order_id, operation) WHERE status IN ('pending', 'retrying')
		DO UPDATE SET
			event_type = EXCLUDED.event_type,
			correlation_id = EXCLUDED.correlation_id,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + deadLetterColumns

	bound, args, err := sqlx.Named(query, r.toPostgres(entry))
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind dead letter")
	}

	var row postgresDeadLetter
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(bound), args...); err != nil {
		return nil, errors.Wrap(err, "failed to enqueue dead letter")
	}
	return r.toDomain(&row)
}

// FindByID returns nil, nil when the entry does not exist
func (r *PostgresDeadLetterRepository) FindByID(ctx context.Context, id models.ID) (*domain.DeadLetterEntry, error) {
	var row postgresDeadLetter
	err := r.db.GetContext(ctx, &row, `SELECT `+deadLetterColumns+` FROM dead_letters WHERE id = $1`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find dead letter")
	}
	return r.toDomain(&row)
}

// List returns entries matching the query, oldest first
func (r *PostgresDeadLetterRepository) List(ctx context.Context, query domain.DeadLetterQuery) ([]*domain.DeadLetterEntry, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if len(query.Statuses) > 0 {
		statuses := make([]string, len(query.Statuses))
		for i, status := range query.Statuses {
			statuses[i] = string(status)
		}
		conditions = append(conditions, "status IN (?)")
		args = append(args, statuses)
	}
	if !query.OrderID.IsZero() {
		conditions = append(conditions, "order_id = ?")
		args = append(args, query.OrderID.String())
	}

	stmt := `SELECT ` + deadLetterColumns + ` FROM dead_letters`
	if len(conditions) > 0 {
		stmt += " WHERE " + strings.Join(conditions, " AND ")
	}
	stmt += " ORDER BY created_at ASC"
	if query.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, query.Limit)
	}

	stmt, args, err := sqlx.In(stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build dead letter query")
	}

	var rows []postgresDeadLetter
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(stmt), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list dead letters")
	}
	return r.toDomainList(rows)
}

// ListEligible returns open entries with budget left whose cooldown anchor is at or before cutoff
func (r *PostgresDeadLetterRepository) ListEligible(ctx context.Context, cutoff time.Time, limit int) ([]*domain.DeadLetterEntry, error) {
	query := `
		SELECT ` + deadLetterColumns + `
		FROM dead_letters
		WHERE status IN ('pending', 'retrying')
		  AND retry_count < max_retries
		  AND COALESCE(last_retry_at, created_at) <= $1
		ORDER BY created_at ASC
		LIMIT NULLIF($2, 0)`

	var rows []postgresDeadLetter
	if err := r.db.SelectContext(ctx, &rows, query, cutoff.UTC(), limit); err != nil {
		return nil, errors.Wrap(err, "failed to list eligible dead letters")
	}
	return r.toDomainList(rows)
}

// RecordAttempt spends one unit of retry budget
func (r *PostgresDeadLetterRepository) RecordAttempt(ctx context.Context, id models.ID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE dead_letters
		SET retry_count = retry_count + 1, last_retry_at = $2, status = $3, updated_at = $2
		WHERE id = $1
		  AND status IN ('pending', 'retrying')
		  AND retry_count < max_retries`,
		id.String(), at.UTC(), string(domain.DeadLetterStatusRetrying))
	if err != nil {
		return errors.Wrap(err, "failed to record retry attempt")
	}
	return r.checkUpdated(ctx, result, id, domain.ErrRetryBudgetExhausted)
}

// TouchRetry restarts the cooldown without spending budget
func (r *PostgresDeadLetterRepository) TouchRetry(ctx context.Context, id models.ID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE dead_letters SET last_retry_at = $2, updated_at = $2 WHERE id = $1`,
		id.String(), at.UTC())
	if err != nil {
		return errors.Wrap(err, "failed to touch dead letter")
	}
	return r.checkUpdated(ctx, result, id, domain.ErrDeadLetterNotFound)
}

// UpdateStatus moves the entry to status when its current status allows it
func (r *PostgresDeadLetterRepository) UpdateStatus(ctx context.Context, id models.ID, status domain.DeadLetterStatus, at time.Time) error {
	sources := domain.TransitionSources(status)
	allowed := make([]string, len(sources))
	for i, source := range sources {
		allowed[i] = string(source)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE dead_letters SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)`,
		id.String(), string(status), at.UTC(), pq.Array(allowed))
	if err != nil {
		return errors.Wrap(err, "failed to update dead letter status")
	}
	return r.checkUpdated(ctx, result, id, errors.Wrapf(domain.ErrInvalidTransition, "dead letter %s -> %s", id, status))
}

// checkUpdated tells a missing entry apart from one whose state refused the update
func (r *PostgresDeadLetterRepository) checkUpdated(ctx context.Context, result sql.Result, id models.ID, refused error) error {
	updated, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if updated > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM dead_letters WHERE id = $1)`, id.String()); err != nil {
		return errors.Wrap(err, "failed to check dead letter")
	}
	if !exists {
		return domain.ErrDeadLetterNotFound
	}
	return refused
}

func (r *PostgresDeadLetterRepository) toPostgres(entry *domain.DeadLetterEntry) *postgresDeadLetter {
	row := &postgresDeadLetter{
		ID:            entry.ID.String(),
		OrderID:       entry.OrderID.String(),
		EventType:     entry.EventType,
		Operation:     string(entry.Operation),
		CorrelationID: entry.CorrelationID.String(),
		ErrorMessage:  entry.ErrorMessage,
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		Status:        string(entry.Status),
		CreatedAt:     entry.Timestamps.CreatedAt.UTC(),
		UpdatedAt:     entry.Timestamps.UpdatedAt.UTC(),
	}
	if entry.LastRetryAt != nil {
		row.LastRetryAt = sql.NullTime{Time: entry.LastRetryAt.UTC(), Valid: true}
	}
	return row
}

func (r *PostgresDeadLetterRepository) toDomain(row *postgresDeadLetter) (*domain.DeadLetterEntry, error) {
	id, err := models.NewID(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid dead letter ID")
	}

	entry := &domain.DeadLetterEntry{
		ID:            id,
		OrderID:       models.ID(row.OrderID),
		EventType:     row.EventType,
		Operation:     domain.Operation(row.Operation),
		CorrelationID: models.ID(row.CorrelationID),
		ErrorMessage:  row.ErrorMessage,
		RetryCount:    row.RetryCount,
		MaxRetries:    row.MaxRetries,
		Status:        domain.DeadLetterStatus(row.Status),
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		},
	}
	if row.LastRetryAt.Valid {
		at := row.LastRetryAt.Time.UTC()
		entry.LastRetryAt = &at
	}
	return entry, nil
}

func (r *PostgresDeadLetterRepository) toDomainList(rows []postgresDeadLetter) ([]*domain.DeadLetterEntry, error) {
	result := make([]*domain.DeadLetterEntry, len(rows))
	for i := range rows {
		entry, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		result[i] = entry
	}
	return result, nil
}
