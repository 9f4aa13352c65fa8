package application

import (
	"context"
	"log/slog"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
)

// RetryOrderCommand represents an operator retry of a failed order
type RetryOrderCommand struct {
	OrderID string `json:"order_id"`
}

// RetryOrderResponse is Accepted or Rejected with a reason
type RetryOrderResponse struct {
	OrderID       models.ID    `json:"order_id" yaml:"order_id"`
	Accepted      bool         `json:"accepted" yaml:"accepted"`
	Reason        string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Stage         domain.Stage `json:"stage,omitempty" yaml:"stage,omitempty"`
	CorrelationID models.ID    `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
}

// RetryOrder resumes a failed order at the stage that failed
type RetryOrder struct {
	orchestrator *Orchestrator
	deadLetters  *DeadLetterQueue
	orders       domain.OrderRepository
	dispatcher   Dispatcher
	logger       *slog.Logger
}

// NewRetryOrder creates a new RetryOrder use case
func NewRetryOrder(
	orchestrator *Orchestrator,
	deadLetters *DeadLetterQueue,
	orders domain.OrderRepository,
	dispatcher Dispatcher,
	opts ...Option,
) *RetryOrder {
	o := newOptions(opts)
	return &RetryOrder{
		orchestrator: orchestrator,
		deadLetters:  deadLetters,
		orders:       orders,
		dispatcher:   dispatcher,
		logger:       o.logger,
	}
}

// Execute executes the retry order use case
func (uc *RetryOrder) Execute(ctx context.Context, cmd *RetryOrderCommand) (*RetryOrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "orders.retry")
	defer span.End()

	orderID, err := parseOrderID(cmd.OrderID)
	if err != nil {
		return nil, err
	}

	run, err := uc.orchestrator.BeginRetry(ctx, orderID, domain.RetryTriggerManual)
	if errors.Is(err, ErrOrderNotFailed) {
		return &RetryOrderResponse{OrderID: orderID, Reason: err.Error()}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin retry")
	}
	if !run.Started {
		return &RetryOrderResponse{OrderID: orderID, Stage: run.Stage, Reason: "a retry of this failure is already in progress"}, nil
	}

	if err := uc.dispatcher.Dispatch(ctx, func(ctx context.Context) {
		uc.run(ctx, run)
	}); err != nil {
		uc.logger.WarnContext(ctx, "retry dispatch failed", "order_id", orderID, "error", err)
		if err := uc.orchestrator.FailDispatch(ctx, run, err); err != nil {
			return nil, errors.Wrap(err, "failed to record dispatch failure")
		}
		return &RetryOrderResponse{
			OrderID:       orderID,
			Stage:         run.Stage,
			CorrelationID: run.CorrelationID,
			Reason:        "retry recorded but could not be dispatched: " + err.Error(),
		}, nil
	}

	return &RetryOrderResponse{
		OrderID:       orderID,
		Accepted:      true,
		Stage:         run.Stage,
		CorrelationID: run.CorrelationID,
	}, nil
}

// run drives the retried saga and resolves dead letters the retry fixed
func (uc *RetryOrder) run(ctx context.Context, run *SagaRun) {
	if err := uc.orchestrator.Run(ctx, run); err != nil {
		uc.logger.ErrorContext(ctx, "saga run failed", "order_id", run.OrderID, "error", err)
		return
	}

	order, err := uc.orders.FindByID(ctx, run.OrderID)
	if err != nil || order == nil {
		uc.logger.ErrorContext(ctx, "failed to reload order after retry", "order_id", run.OrderID, "error", err)
		return
	}
	if err := uc.deadLetters.ResolveRecovered(ctx, order); err != nil {
		uc.logger.ErrorContext(ctx, "failed to resolve dead letters", "order_id", run.OrderID, "error", err)
	}
}
