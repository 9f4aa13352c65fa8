package infrastructure

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
)

const (
	SQSMessageIDKey     = "sqs_message_id"
	SQSReceiptHandleKey = "sqs_receipt_handle"
)

// SQSAPI is the part of the SQS client the subscriber uses
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

type sqsMessage struct {
	Message types.Message
	Event   *events.Event
	Err     error
}

// SQSEventSubscriber reads event envelopes from a queue with readers, hands them to workers
// and acknowledges them with cleaners. A handler error leaves the message on the queue with
// a growing visibility timeout so it is redelivered.
type SQSEventSubscriber struct {
	mux              sync.Mutex
	inboundMessages  chan *sqsMessage
	outboundMessages chan *sqsMessage
	cancel           context.CancelFunc
	wg               *conc.WaitGroup
	options          *sqsSubscriberOptions

	client   SQSAPI
	queueURL string
	handler  events.EventHandler
	logger   *slog.Logger
}

type sqsSubscriberOptions struct {
	workers                        int
	readers                        int
	cleaners                       int
	maxNumberOfMessages            int32
	waitTimeSeconds                int32
	visibilityTimeout              int32
	sleepTimeAfterEmptyReceive     time.Duration
	sleepTimeAfterError            time.Duration
	ack                            bool
	extendVisibilityTimeoutOnError bool
	receiveCountRange              int32
	visibilityTimeoutOffset        int32
	maxVisibilityTimeout           int32
	logger                         *slog.Logger
}

type SQSSubscriberOption func(*sqsSubscriberOptions)

func WithWorkers(workers int) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.workers = workers
	}
}

func WithReaders(readers int) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.readers = readers
	}
}

func WithVisibilityTimeout(timeout int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.visibilityTimeout = timeout
	}
}

func WithWaitTime(seconds int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.waitTimeSeconds = seconds
	}
}

func WithIdleSleep(afterEmpty, afterError time.Duration) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.sleepTimeAfterEmptyReceive = afterEmpty
		o.sleepTimeAfterError = afterError
	}
}

func WithSubscriberLogger(logger *slog.Logger) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.logger = logger
	}
}

// NewSQSEventSubscriber creates a new SQS event subscriber
func NewSQSEventSubscriber(
	client SQSAPI,
	queueURL string,
	handler events.EventHandler,
	opts ...SQSSubscriberOption,
) *SQSEventSubscriber {
	options := &sqsSubscriberOptions{
		workers:                        8,
		readers:                        1,
		cleaners:                       2,
		maxNumberOfMessages:            5,
		waitTimeSeconds:                15,
		visibilityTimeout:              30,
		sleepTimeAfterEmptyReceive:     time.Second,
		sleepTimeAfterError:            5 * time.Second,
		ack:                            true,
		extendVisibilityTimeoutOnError: true,
		receiveCountRange:              3,
		visibilityTimeoutOffset:        30,
		maxVisibilityTimeout:           900,
		logger:                         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &SQSEventSubscriber{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		options:  options,
		logger:   options.logger,
	}
}

// Start launches the readers, workers and cleaners. It returns immediately.
func (s *SQSEventSubscriber) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.cancel != nil {
		return nil
	}
	if s.handler == nil {
		return errors.New("no handler configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.inboundMessages = make(chan *sqsMessage, s.options.maxNumberOfMessages*2)
	s.outboundMessages = make(chan *sqsMessage, s.options.maxNumberOfMessages*2)
	s.wg = conc.NewWaitGroup()

	inbound, outbound := s.inboundMessages, s.outboundMessages
	for i := 0; i < s.options.workers; i++ {
		s.wg.Go(func() { s.startWorker(ctx, inbound, outbound) })
	}
	for i := 0; i < s.options.readers; i++ {
		s.wg.Go(func() { s.startReader(ctx, inbound) })
	}
	for i := 0; i < s.options.cleaners; i++ {
		s.wg.Go(func() { s.startCleaner(ctx, outbound) })
	}

	s.logger.Info("sqs subscriber started", "queue_url", s.queueURL, "workers", s.options.workers)
	return nil
}

// Stop cancels the loops and waits for them to return or ctx to end
func (s *SQSEventSubscriber) Stop(ctx context.Context) error {
	s.mux.Lock()
	cancel, wg := s.cancel, s.wg
	s.cancel, s.wg = nil, nil
	s.mux.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		if recovered := wg.WaitAndRecover(); recovered != nil {
			s.logger.Error("sqs subscriber panicked", "panic", recovered.String())
		}
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sqs subscriber stopped", "queue_url", s.queueURL)
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "failed to stop SQS subscriber")
	}
}

func (s *SQSEventSubscriber) startWorker(ctx context.Context, inbound <-chan *sqsMessage, outbound chan<- *sqsMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-inbound:
			message.Err = s.handler.Handle(ctx, message.Event)
			if message.Err != nil {
				s.logger.WarnContext(ctx, "sqs message handling failed",
					"event_type", message.Event.EventType,
					"event_id", message.Event.ID,
					"error", message.Err,
				)
			}
			select {
			case outbound <- message:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *SQSEventSubscriber) startReader(ctx context.Context, inbound chan<- *sqsMessage) {
	for {
		if ctx.Err() != nil {
			return
		}

		received, err := s.read(ctx, inbound)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.ErrorContext(ctx, "sqs receive failed", "queue_url", s.queueURL, "error", err)
			sleep(ctx, s.options.sleepTimeAfterError)
		case err == nil && received == 0:
			sleep(ctx, s.options.sleepTimeAfterEmptyReceive)
		}
	}
}

func (s *SQSEventSubscriber) startCleaner(ctx context.Context, outbound <-chan *sqsMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-outbound:
			if err := s.clean(ctx, message); err != nil {
				s.logger.WarnContext(ctx, "sqs cleanup failed", "event_id", message.Event.ID, "error", err)
			}
		}
	}
}

func (s *SQSEventSubscriber) read(ctx context.Context, inbound chan<- *sqsMessage) (int, error) {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.options.maxNumberOfMessages,
		WaitTimeSeconds:     s.options.waitTimeSeconds,
		VisibilityTimeout:   s.options.visibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to receive message from SQS")
	}

	for _, message := range output.Messages {
		event, err := decodeMessage(message)
		if err != nil {
			// a body that never decodes would be redelivered forever
			s.logger.ErrorContext(ctx, "dropping malformed sqs message",
				"message_id", aws.ToString(message.MessageId),
				"error", err,
			)
			s.delete(ctx, message)
			continue
		}

		select {
		case inbound <- &sqsMessage{Message: message, Event: event}:
		case <-ctx.Done():
			return len(output.Messages), ctx.Err()
		}
	}
	return len(output.Messages), nil
}

func decodeMessage(message types.Message) (*events.Event, error) {
	if message.Body == nil {
		return nil, errors.New("empty message body")
	}

	event, err := events.FromJSON(unwrapNotification([]byte(*message.Body)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode event")
	}
	if event.EventType == "" {
		return nil, errors.New("event type is required")
	}

	event.Metadata.Set(SQSMessageIDKey, aws.ToString(message.MessageId))
	if message.ReceiptHandle != nil {
		event.Metadata.Set(SQSReceiptHandleKey, *message.ReceiptHandle)
	}
	for k, v := range message.MessageAttributes {
		if v.StringValue != nil {
			event.Metadata.Set(k, *v.StringValue)
		}
	}
	return event, nil
}

func (s *SQSEventSubscriber) clean(ctx context.Context, message *sqsMessage) error {
	if message.Err != nil {
		if !s.options.extendVisibilityTimeoutOnError {
			return nil
		}
		_, err := s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(s.queueURL),
			ReceiptHandle:     message.Message.ReceiptHandle,
			VisibilityTimeout: s.backoffVisibility(message.Message),
		})
		if err != nil {
			return errors.Wrap(err, "failed to extend visibility timeout")
		}
		return nil
	}

	if s.options.ack {
		if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(s.queueURL),
			ReceiptHandle: message.Message.ReceiptHandle,
		}); err != nil {
			return errors.Wrap(err, "failed to delete message from SQS")
		}
	}
	return nil
}

func (s *SQSEventSubscriber) delete(ctx context.Context, message types.Message) {
	if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to delete message from SQS", "error", err)
	}
}

// backoffVisibility grows the visibility timeout with the receive count
func (s *SQSEventSubscriber) backoffVisibility(message types.Message) int32 {
	receiveCount, err := strconv.Atoi(message.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil {
		receiveCount = 1
	}

	visibilityTimeout := s.options.visibilityTimeout
	visibilityTimeout += (int32(receiveCount) / s.options.receiveCountRange) * s.options.visibilityTimeoutOffset
	if visibilityTimeout > s.options.maxVisibilityTimeout {
		visibilityTimeout = s.options.maxVisibilityTimeout
	}
	return visibilityTimeout
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
