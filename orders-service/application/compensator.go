package application

import (
	"context"
	"log/slog"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
)

// Compensator undoes the effects of stages that completed before a domain failure.
// Each action is a stage worker call guarded by its own reservation.
type Compensator struct {
	recorder    eventRecorder
	executor    *StageExecutor
	deadLetters *DeadLetterQueue
	sink        Sink
	logger      *slog.Logger
}

// NewCompensator creates a new Compensator
func NewCompensator(
	eventLog domain.EventLog,
	dedup domain.DedupStore,
	executor *StageExecutor,
	deadLetters *DeadLetterQueue,
	opts ...Option,
) *Compensator {
	o := newOptions(opts)
	return &Compensator{
		recorder: eventRecorder{
			eventLog:   eventLog,
			dedup:      dedup,
			producedBy: o.producedBy,
			now:        o.now,
		},
		executor:    executor,
		deadLetters: deadLetters,
		sink:        o.sink,
		logger:      o.logger,
	}
}

// Compensate runs every compensating action for a failure at failed, refund before release.
// One CompensationStarted lists them all; a failed action does not stop the ones after it.
func (c *Compensator) Compensate(ctx context.Context, order *domain.Order, failed domain.Stage, correlationID, causationID models.ID) error {
	actions := domain.CompensationsFor(failed)
	if len(actions) == 0 {
		return nil
	}
	started, err := c.start(ctx, order, actions, failed, correlationID, causationID)
	if err != nil {
		return err
	}
	for _, action := range actions {
		if _, err := c.run(ctx, order, action, failed, correlationID, started.ID); err != nil {
			return err
		}
	}
	return nil
}

// Replay re-runs one compensating action under a fresh correlation
func (c *Compensator) Replay(ctx context.Context, order *domain.Order, action domain.Operation) (bool, error) {
	correlationID := models.GenerateUUID()
	started, err := c.start(ctx, order, []domain.Operation{action}, order.Stage, correlationID, "")
	if err != nil {
		return false, err
	}
	return c.run(ctx, order, action, order.Stage, correlationID, started.ID)
}

func (c *Compensator) start(ctx context.Context, order *domain.Order, actions []domain.Operation, failed domain.Stage, correlationID, causationID models.ID) (*events.Event, error) {
	started := c.recorder.newEvent(order.ID, events.CompensationStartedEvent, domain.CompensationStartedData{
		Actions:     actions,
		FailedStage: failed,
	}, correlationID, causationID)
	if err := c.recorder.record(ctx, started, nil); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "compensation started", "order_id", order.ID, "failed_stage", failed, "actions", actions)
	return started, nil
}

func (c *Compensator) run(ctx context.Context, order *domain.Order, action domain.Operation, failed domain.Stage, correlationID, startedID models.ID) (bool, error) {
	key := domain.DedupKey{
		EventType:     action.CompletionEvent(),
		OrderID:       order.ID,
		CorrelationID: correlationID,
	}
	reservation, err := c.recorder.reserve(ctx, key)
	if err != nil {
		return false, err
	}
	if !reservation.Reserved {
		c.logger.InfoContext(ctx, "compensation already handled",
			"order_id", order.ID,
			"action", action,
			"event_id", reservation.ExistingEventID,
		)
		return !reservation.InFlight(), nil
	}

	outcome := c.executor.Execute(ctx, action, order, correlationID)
	c.sink.StageCompleted(ctx, action, outcome.Kind, outcome.Latency)

	if outcome.Kind == domain.OutcomeSuccess {
		done := c.recorder.newEvent(order.ID, action.CompletionEvent(), domain.CompensationCompletedData{
			Action: action,
			Result: outcome.Payload,
		}, correlationID, startedID)
		if err := c.recorder.record(ctx, done, &key); err != nil {
			return false, err
		}
		c.logger.InfoContext(ctx, "compensation completed", "order_id", order.ID, "action", action)
		return true, nil
	}

	failedEvt := c.recorder.newEvent(order.ID, events.CompensationFailedEvent, domain.CompensationFailedData{
		Action:      action,
		FailedStage: failed,
		Reason:      outcome.Reason,
	}, correlationID, startedID)
	if err := c.recorder.record(ctx, failedEvt, &key); err != nil {
		return false, err
	}

	c.logger.WarnContext(ctx, "compensation failed",
		"order_id", order.ID,
		"action", action,
		"outcome", outcome.Kind,
		"reason", outcome.Reason,
	)
	if _, err := c.deadLetters.EnqueueForOperator(ctx, order.ID, events.CompensationFailedEvent, action, correlationID, outcome.Reason); err != nil {
		return false, err
	}
	return false, nil
}
