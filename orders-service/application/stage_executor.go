package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultStageTimeout bounds every stage worker call
const DefaultStageTimeout = 10 * time.Second

// StageExecutor runs one stage worker operation under a hard timeout and classifies the result.
// It holds no saga state.
type StageExecutor struct {
	worker  domain.StageWorker
	timeout time.Duration
}

// NewStageExecutor creates a new StageExecutor
func NewStageExecutor(worker domain.StageWorker, timeout time.Duration) *StageExecutor {
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	return &StageExecutor{
		worker:  worker,
		timeout: timeout,
	}
}

type invocation struct {
	reply domain.StageReply
	err   error
}

// Execute invokes op for the order. A late answer from a timed out call is discarded.
func (e *StageExecutor) Execute(ctx context.Context, op domain.Operation, order *domain.Order, correlationID models.ID) domain.StageOutcome {
	ctx, span := telemetry.StartSpan(ctx, "saga.stage."+string(op),
		trace.WithAttributes(
			attribute.String("order.id", order.ID.String()),
			attribute.String("saga.correlation_id", correlationID.String()),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := domain.StageRequest{
		Operation:     op,
		OrderID:       order.ID,
		CorrelationID: correlationID,
		CustomerRef:   order.CustomerRef,
		TotalAmount:   order.TotalAmount,
		Items:         order.Items,
	}

	start := time.Now()
	result := make(chan invocation, 1)
	go func() {
		reply, err := e.worker.Invoke(ctx, req)
		result <- invocation{reply: reply, err: err}
	}()

	var outcome domain.StageOutcome
	select {
	case res := <-result:
		outcome = classify(op, res)
	case <-ctx.Done():
		outcome = domain.Unavailable(errors.Wrapf(ctx.Err(), "%s did not answer within %s", op, e.timeout))
	}
	outcome.Latency = time.Since(start)

	span.SetAttributes(attribute.String("saga.outcome", string(outcome.Kind)))
	return outcome
}

func classify(op domain.Operation, res invocation) domain.StageOutcome {
	if res.err != nil {
		return domain.Unavailable(errors.Wrapf(res.err, "failed to invoke %s", op))
	}
	if !res.reply.Accepted {
		reason := res.reply.Reason
		if reason == "" {
			reason = string(op) + " rejected"
		}
		return domain.DomainFailure(reason)
	}
	return domain.Success(res.reply.Payload)
}
