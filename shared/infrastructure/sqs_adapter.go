package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/saga"
	"github.com/pkg/errors"
)

var _ events.Subscriber = (*SQSSubscriberAdapter)(nil)

// SQSSubscriberAdapter collects handlers per event type and serves them from one queue
type SQSSubscriberAdapter struct {
	mu         sync.Mutex
	client     SQSAPI
	queueURL   string
	router     *saga.EventRouter
	subscriber *SQSEventSubscriber
	opts       []SQSSubscriberOption
	logger     *slog.Logger
}

// NewSQSSubscriberAdapter creates a new SQS subscriber adapter
func NewSQSSubscriberAdapter(client SQSAPI, queueURL string, logger *slog.Logger, opts ...SQSSubscriberOption) (*SQSSubscriberAdapter, error) {
	if queueURL == "" {
		return nil, errors.New("sqs queue URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSSubscriberAdapter{
		client:   client,
		queueURL: queueURL,
		router:   saga.NewEventRouter(logger),
		opts:     append(opts, WithSubscriberLogger(logger)),
		logger:   logger,
	}, nil
}

// Subscribe registers handler for eventType. Handlers must be registered before Start.
func (s *SQSSubscriberAdapter) Subscribe(_ context.Context, eventType string, handler events.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscriber != nil {
		return errors.New("subscriber is already running")
	}
	s.router.Register(eventType, handler)
	return nil
}

// Start begins consuming the queue
func (s *SQSSubscriberAdapter) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscriber != nil {
		return nil
	}

	subscriber := NewSQSEventSubscriber(s.client, s.queueURL, s.router, s.opts...)
	if err := subscriber.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start SQS subscriber")
	}
	s.subscriber = subscriber
	s.logger.Info("sqs subscriptions active", "event_types", s.router.EventTypes())
	return nil
}

// Close stops the subscriber
func (s *SQSSubscriberAdapter) Close(ctx context.Context) error {
	s.mu.Lock()
	subscriber := s.subscriber
	s.subscriber = nil
	s.mu.Unlock()

	if subscriber == nil {
		return nil
	}
	if err := subscriber.Stop(ctx); err != nil {
		return errors.Wrap(err, "failed to stop SQS subscriber")
	}
	return nil
}
