package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
)

// Sink receives saga measurements. Implementations must be safe for concurrent use.
type Sink interface {
	StageCompleted(ctx context.Context, op domain.Operation, kind domain.OutcomeKind, latency time.Duration)
	SagaFinished(ctx context.Context, status domain.OrderStatus, stage domain.Stage)
	DeadLetterEnqueued(ctx context.Context, entry *domain.DeadLetterEntry)
	DeadLetterSettled(ctx context.Context, entry *domain.DeadLetterEntry, status domain.DeadLetterStatus)
	DegradedRead(ctx context.Context, source string, err error)
	// SweepFinished reports how many dead letters one sweep found eligible and how many errored
	SweepFinished(ctx context.Context, eligible, errored int)
}

// NoopSink discards everything
type NoopSink struct{}

func (NoopSink) StageCompleted(context.Context, domain.Operation, domain.OutcomeKind, time.Duration) {}

func (NoopSink) SagaFinished(context.Context, domain.OrderStatus, domain.Stage) {}

func (NoopSink) DeadLetterEnqueued(context.Context, *domain.DeadLetterEntry) {}

func (NoopSink) DeadLetterSettled(context.Context, *domain.DeadLetterEntry, domain.DeadLetterStatus) {}

func (NoopSink) DegradedRead(context.Context, string, error) {}

func (NoopSink) SweepFinished(context.Context, int, int) {}
