package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
)

var _ domain.EventLog = (*PublishingEventLog)(nil)

const (
	defaultPublishAttempts = 3
	defaultPublishBackoff  = 100 * time.Millisecond
)

// PublishingEventLog fans every appended event out to a publisher. The log stays the source of
// truth: publish failures are retried briefly, then logged and dropped.
type PublishingEventLog struct {
	next      domain.EventLog
	publisher events.Publisher
	logger    *slog.Logger
	attempts  uint
	interval  time.Duration
}

// PublishingOption configures a PublishingEventLog
type PublishingOption func(*PublishingEventLog)

// WithPublishRetry sets how many publish attempts are made and the initial backoff between them
func WithPublishRetry(attempts uint, interval time.Duration) PublishingOption {
	return func(l *PublishingEventLog) {
		if attempts > 0 {
			l.attempts = attempts
		}
		if interval > 0 {
			l.interval = interval
		}
	}
}

// NewPublishingEventLog wraps next so appended events are also published
func NewPublishingEventLog(next domain.EventLog, publisher events.Publisher, logger *slog.Logger, opts ...PublishingOption) *PublishingEventLog {
	if logger == nil {
		logger = slog.Default()
	}
	l := &PublishingEventLog{
		next:      next,
		publisher: publisher,
		logger:    logger,
		attempts:  defaultPublishAttempts,
		interval:  defaultPublishBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *PublishingEventLog) Append(ctx context.Context, event *events.Event) (models.ID, error) {
	id, err := l.next.Append(ctx, event)
	if err != nil {
		return "", err
	}

	l.publish(ctx, event)
	return id, nil
}

func (l *PublishingEventLog) ReadEvents(ctx context.Context, orderID models.ID) ([]*events.Event, error) {
	return l.next.ReadEvents(ctx, orderID)
}

func (l *PublishingEventLog) publish(ctx context.Context, event *events.Event) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.interval

	// the caller's cancellation must not drop an event that is already durable
	ctx = context.WithoutCancel(ctx)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, l.publisher.Publish(ctx, event)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(l.attempts))
	if err != nil {
		l.logger.WarnContext(ctx, "failed to publish saga event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"order_id", event.OrderID,
			"error", err,
		)
	}
}
