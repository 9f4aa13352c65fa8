package infrastructure

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/order-saga/shared/events"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*SNSEventPublisher)(nil)

const maxBatchSize = 10

// SNSAPI is the part of the SNS client the publisher uses
type SNSAPI interface {
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// SNSEventPublisher publishes event envelopes to an SNS topic in batches of ten
type SNSEventPublisher struct {
	client   SNSAPI
	topicArn string
	logger   *slog.Logger
}

// NewSNSEventPublisher creates a new SNSEventPublisher
func NewSNSEventPublisher(client SNSAPI, topicArn string, logger *slog.Logger) *SNSEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SNSEventPublisher{
		client:   client,
		topicArn: topicArn,
		logger:   logger,
	}
}

// Publish publishes events to SNS
func (p *SNSEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	gr, ctx := errgroup.WithContext(ctx)
	for _, batch := range splitToChunks(evts, maxBatchSize) {
		gr.Go(func() error {
			return p.batchPublish(ctx, batch)
		})
	}
	return gr.Wait()
}

func (p *SNSEventPublisher) batchPublish(ctx context.Context, batch []*events.Event) error {
	requests := make([]types.PublishBatchRequestEntry, len(batch))

	for i, event := range batch {
		envelope, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		attrs := map[string]types.MessageAttributeValue{
			"event_type":     stringAttribute(event.EventType),
			"order_id":       stringAttribute(event.OrderID.String()),
			"correlation_id": stringAttribute(event.CorrelationID.String()),
		}
		for k, v := range event.Metadata {
			if k == SQSMessageIDKey || k == SQSReceiptHandleKey {
				continue
			}
			attrs[k] = stringAttribute(v)
		}

		requests[i] = types.PublishBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			Message:           aws.String(string(envelope)),
			MessageAttributes: attrs,
		}
	}

	res, err := p.client.PublishBatch(ctx, &sns.PublishBatchInput{
		TopicArn:                   aws.String(p.topicArn),
		PublishBatchRequestEntries: requests,
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish batch to SNS")
	}

	if len(res.Failed) > 0 {
		failed := make([]string, len(res.Failed))
		for i, entry := range res.Failed {
			failed[i] = aws.ToString(entry.Id)
			p.logger.WarnContext(ctx, "sns entry rejected",
				"event_id", aws.ToString(entry.Id),
				"code", aws.ToString(entry.Code),
				"message", aws.ToString(entry.Message),
			)
		}
		return errors.Errorf("sns rejected %d of %d events: %s", len(res.Failed), len(batch), strings.Join(failed, ","))
	}
	return nil
}

func stringAttribute(value string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(value),
	}
}

// snsNotification is the envelope SNS wraps messages in when delivering to SQS without raw delivery
type snsNotification struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// unwrapNotification returns the inner message of an SNS notification, or body unchanged
func unwrapNotification(body []byte) []byte {
	var n snsNotification
	if err := json.Unmarshal(body, &n); err == nil && n.Type == "Notification" && n.Message != "" {
		return []byte(n.Message)
	}
	return body
}

// splitToChunks splits slice into chunks of specified size
func splitToChunks[T any](slice []T, chunkSize int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += chunkSize {
		end := i + chunkSize
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}
