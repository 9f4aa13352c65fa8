package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// DefaultMaxRetries is the automatic retry budget of a stage dead letter
const DefaultMaxRetries = 3

// DeadLetterQueue records failed attempts and drives their lifecycle
type DeadLetterQueue struct {
	repo       domain.DeadLetterRepository
	maxRetries int
	sink       Sink
	logger     *slog.Logger
	now        func() time.Time
}

// NewDeadLetterQueue creates a new DeadLetterQueue
func NewDeadLetterQueue(repo domain.DeadLetterRepository, maxRetries int, opts ...Option) *DeadLetterQueue {
	o := newOptions(opts)
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &DeadLetterQueue{
		repo:       repo,
		maxRetries: maxRetries,
		sink:       o.sink,
		logger:     o.logger,
		now:        o.now,
	}
}

// Enqueue records a failed stage attempt with the automatic retry budget
func (q *DeadLetterQueue) Enqueue(ctx context.Context, orderID models.ID, eventType string, op domain.Operation, correlationID models.ID, cause string) (*domain.DeadLetterEntry, error) {
	return q.enqueue(ctx, domain.NewDeadLetterEntry(orderID, eventType, op, correlationID, cause, q.maxRetries, q.now()))
}

// EnqueueForOperator records a failure only an operator replay may act on
func (q *DeadLetterQueue) EnqueueForOperator(ctx context.Context, orderID models.ID, eventType string, op domain.Operation, correlationID models.ID, cause string) (*domain.DeadLetterEntry, error) {
	return q.enqueue(ctx, domain.NewDeadLetterEntry(orderID, eventType, op, correlationID, cause, 0, q.now()))
}

func (q *DeadLetterQueue) enqueue(ctx context.Context, entry *domain.DeadLetterEntry) (*domain.DeadLetterEntry, error) {
	stored, err := q.repo.Enqueue(ctx, entry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enqueue dead letter")
	}

	q.logger.InfoContext(ctx, "dead letter enqueued",
		"dead_letter_id", stored.ID,
		"order_id", stored.OrderID,
		"event_type", stored.EventType,
		"operation", stored.Operation,
		"retry_count", stored.RetryCount,
	)
	q.sink.DeadLetterEnqueued(ctx, stored)
	return stored, nil
}

// Find returns the entry or ErrDeadLetterNotFound
func (q *DeadLetterQueue) Find(ctx context.Context, id models.ID) (*domain.DeadLetterEntry, error) {
	entry, err := q.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find dead letter")
	}
	if entry == nil {
		return nil, domain.ErrDeadLetterNotFound
	}
	return entry, nil
}

// List returns entries matching the query
func (q *DeadLetterQueue) List(ctx context.Context, query domain.DeadLetterQuery) ([]*domain.DeadLetterEntry, error) {
	entries, err := q.repo.List(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list dead letters")
	}
	return entries, nil
}

// ListEligible returns open entries whose cooldown has elapsed, oldest first
func (q *DeadLetterQueue) ListEligible(ctx context.Context, cooldown time.Duration, limit int) ([]*domain.DeadLetterEntry, error) {
	entries, err := q.repo.ListEligible(ctx, q.now().Add(-cooldown), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list eligible dead letters")
	}
	return entries, nil
}

// MarkAttempt consumes one unit of retry budget
func (q *DeadLetterQueue) MarkAttempt(ctx context.Context, id models.ID) error {
	if err := q.repo.RecordAttempt(ctx, id, q.now()); err != nil {
		return errors.Wrap(err, "failed to record retry attempt")
	}
	return nil
}

// MarkManualAttempt stamps the retry time without consuming budget
func (q *DeadLetterQueue) MarkManualAttempt(ctx context.Context, id models.ID) error {
	if err := q.repo.TouchRetry(ctx, id, q.now()); err != nil {
		return errors.Wrap(err, "failed to record manual attempt")
	}
	return nil
}

func (q *DeadLetterQueue) MarkPermanentlyFailed(ctx context.Context, entry *domain.DeadLetterEntry) error {
	return q.settle(ctx, entry, domain.DeadLetterStatusPermanentlyFailed)
}

func (q *DeadLetterQueue) MarkResolved(ctx context.Context, entry *domain.DeadLetterEntry) error {
	return q.settle(ctx, entry, domain.DeadLetterStatusResolved)
}

func (q *DeadLetterQueue) MarkReplayed(ctx context.Context, entry *domain.DeadLetterEntry) error {
	return q.settle(ctx, entry, domain.DeadLetterStatusReplayed)
}

func (q *DeadLetterQueue) settle(ctx context.Context, entry *domain.DeadLetterEntry, status domain.DeadLetterStatus) error {
	if err := q.repo.UpdateStatus(ctx, entry.ID, status, q.now()); err != nil {
		return errors.Wrapf(err, "failed to mark dead letter %s", status)
	}

	q.logger.InfoContext(ctx, "dead letter settled",
		"dead_letter_id", entry.ID,
		"order_id", entry.OrderID,
		"status", status,
	)
	q.sink.DeadLetterSettled(ctx, entry, status)
	return nil
}

// ResolveRecovered resolves the open stage entries of an order that is no longer failed at their stage
func (q *DeadLetterQueue) ResolveRecovered(ctx context.Context, order *domain.Order) error {
	open, err := q.List(ctx, domain.DeadLetterQuery{
		OrderID:  order.ID,
		Statuses: domain.OpenDeadLetterStatuses,
	})
	if err != nil {
		return err
	}

	for _, entry := range open {
		stage, ok := entry.Operation.Stage()
		if !ok || order.FailedAt(stage) {
			continue
		}
		if err := q.MarkResolved(ctx, entry); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			return err
		}
	}
	return nil
}
