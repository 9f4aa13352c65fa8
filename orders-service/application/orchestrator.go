package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SagaRun identifies one attempt of the stage chain
type SagaRun struct {
	OrderID       models.ID
	Stage         domain.Stage
	CorrelationID models.ID
	CausationID   models.ID
	// Started is false when another caller already holds the reservation for this attempt
	Started bool
}

// Orchestrator is the saga state machine. Every effect it produces is guarded by a dedup
// reservation; stage worker outcomes never escape it as errors, only storage failures do.
type Orchestrator struct {
	orders      domain.OrderRepository
	eventLog    domain.EventLog
	recorder    eventRecorder
	executor    *StageExecutor
	compensator *Compensator
	deadLetters *DeadLetterQueue
	sink        Sink
	logger      *slog.Logger
	now         func() time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	orders domain.OrderRepository,
	eventLog domain.EventLog,
	dedup domain.DedupStore,
	executor *StageExecutor,
	compensator *Compensator,
	deadLetters *DeadLetterQueue,
	opts ...Option,
) *Orchestrator {
	o := newOptions(opts)
	return &Orchestrator{
		orders:   orders,
		eventLog: eventLog,
		recorder: eventRecorder{
			eventLog:   eventLog,
			dedup:      dedup,
			producedBy: o.producedBy,
			now:        o.now,
		},
		executor:    executor,
		compensator: compensator,
		deadLetters: deadLetters,
		sink:        o.sink,
		logger:      o.logger,
		now:         o.now,
	}
}

// Begin records OrderCreated for a new order and moves it into the inventory stage.
// The first attempt's correlation is the order ID, so a repeated create finds the reservation.
// A stored order always wins over the reservation, which may have been purged.
func (o *Orchestrator) Begin(ctx context.Context, order *domain.Order) (*SagaRun, error) {
	existing, err := o.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if existing != nil {
		return &SagaRun{OrderID: order.ID, Stage: existing.Stage, CorrelationID: order.ID}, nil
	}

	key := domain.DedupKey{
		EventType:     events.OrderCreatedEvent,
		OrderID:       order.ID,
		CorrelationID: order.ID,
	}
	reservation, err := o.recorder.reserve(ctx, key)
	if err != nil {
		return nil, err
	}
	if reservation.InFlight() {
		return &SagaRun{OrderID: order.ID, CorrelationID: order.ID}, nil
	}
	if !reservation.Reserved {
		return o.resumeCreated(ctx, order, reservation.ExistingEventID)
	}

	if err := order.Start(o.now()); err != nil {
		return nil, o.recorder.abandon(ctx, key, errors.Wrap(err, "failed to start order"))
	}

	created := o.recorder.newEvent(order.ID, events.OrderCreatedEvent, domain.OrderCreatedData{
		OrderID:     order.ID,
		CustomerRef: order.CustomerRef,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
	}, order.ID, "")
	if err := o.recorder.record(ctx, created, &key); err != nil {
		return nil, err
	}
	if err := o.orders.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}

	o.logger.InfoContext(ctx, "order created", "order_id", order.ID, "total", order.TotalAmount.String())
	return &SagaRun{
		OrderID:       order.ID,
		Stage:         order.Stage,
		CorrelationID: order.ID,
		CausationID:   created.ID,
		Started:       true,
	}, nil
}

// orphanedCreateAfter is how long a confirmed OrderCreated may go without a stored order
// before a repeated create takes the order over
const orphanedCreateAfter = 30 * time.Second

// resumeCreated stores an order whose OrderCreated was recorded by an attempt that failed
// to save it, and starts its saga from that event. Younger or progressed orders are left
// to the attempt that created them.
func (o *Orchestrator) resumeCreated(ctx context.Context, order *domain.Order, createdID models.ID) (*SagaRun, error) {
	pending := &SagaRun{OrderID: order.ID, CorrelationID: order.ID, CausationID: createdID}

	evts, err := o.eventLog.ReadEvents(ctx, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}
	if len(evts) != 1 || o.now().Sub(evts[0].CreatedAt) < orphanedCreateAfter {
		return pending, nil
	}
	existing, err := o.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if existing != nil {
		return pending, nil
	}

	restored, err := orderFromCreatedEvent(evts)
	if err != nil {
		return nil, err
	}
	if err := restored.Start(o.now()); err != nil {
		return nil, errors.Wrap(err, "failed to start order")
	}
	if err := o.orders.Save(ctx, restored); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}
	*order = *restored

	o.logger.WarnContext(ctx, "order restored from its OrderCreated event", "order_id", order.ID, "event_id", createdID)
	return &SagaRun{
		OrderID:       order.ID,
		Stage:         order.Stage,
		CorrelationID: order.ID,
		CausationID:   createdID,
		Started:       true,
	}, nil
}

// Run executes stages until the order completes, fails or another attempt owns the current stage
func (o *Orchestrator) Run(ctx context.Context, run *SagaRun) error {
	ctx, span := telemetry.StartSpan(ctx, "saga.run", trace.WithAttributes(
		attribute.String("order.id", run.OrderID.String()),
		attribute.String("saga.correlation_id", run.CorrelationID.String()),
	))
	defer span.End()

	causationID := run.CausationID
	for {
		order, err := o.load(ctx, run.OrderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusProcessing || !order.Stage.IsExecutable() {
			return nil
		}

		next, err := o.runStage(ctx, order, run.CorrelationID, causationID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if next.IsZero() {
			return nil
		}
		causationID = next
	}
}

// runStage performs one stage attempt. It returns the ID of the success event when the
// saga should continue, or an empty ID when the run is over.
func (o *Orchestrator) runStage(ctx context.Context, order *domain.Order, correlationID, causationID models.ID) (models.ID, error) {
	stage := order.Stage
	key := domain.DedupKey{
		EventType:     stage.SuccessEvent(),
		OrderID:       order.ID,
		CorrelationID: correlationID,
	}

	reservation, err := o.recorder.reserve(ctx, key)
	if err != nil {
		// no reservation, no attempt
		return "", err
	}
	if !reservation.Reserved {
		o.logger.InfoContext(ctx, "stage attempt already owned",
			"order_id", order.ID,
			"stage", stage,
			"event_id", reservation.ExistingEventID,
			"in_flight", reservation.InFlight(),
		)
		return "", nil
	}

	outcome := o.executor.Execute(ctx, stage.Operation(), order, correlationID)
	o.sink.StageCompleted(ctx, stage.Operation(), outcome.Kind, outcome.Latency)

	switch outcome.Kind {
	case domain.OutcomeSuccess:
		return o.completeStage(ctx, order, key, outcome, causationID)
	case domain.OutcomeDomainFailure:
		return "", o.rejectStage(ctx, order, key, outcome, causationID)
	default:
		return "", o.failInvocation(ctx, order, &key, correlationID, causationID, outcome.Reason)
	}
}

func (o *Orchestrator) completeStage(ctx context.Context, order *domain.Order, key domain.DedupKey, outcome domain.StageOutcome, causationID models.ID) (models.ID, error) {
	stage := order.Stage
	evt := o.recorder.newEvent(order.ID, stage.SuccessEvent(), domain.StageCompletedData{
		Stage:     stage,
		Operation: stage.Operation(),
		Result:    outcome.Payload,
	}, key.CorrelationID, causationID)
	if err := o.recorder.record(ctx, evt, &key); err != nil {
		return "", o.failStorage(ctx, order, key.CorrelationID, causationID, err)
	}

	if err := order.Advance(o.now()); err != nil {
		return "", errors.Wrap(err, "failed to advance order")
	}
	if err := o.orders.Save(ctx, order); err != nil {
		err = errors.Wrap(err, "failed to save order")
		if order.Status != domain.OrderStatusProcessing {
			// the log holds OrderShipped; rebuild repairs the stored order
			return "", err
		}
		return "", o.failStorage(ctx, order, key.CorrelationID, evt.ID, err)
	}

	o.logger.InfoContext(ctx, "stage completed", "order_id", order.ID, "stage", stage, "next", order.Stage)
	if order.Status == domain.OrderStatusCompleted {
		o.sink.SagaFinished(ctx, order.Status, order.Stage)
		return "", nil
	}
	return evt.ID, nil
}

func (o *Orchestrator) rejectStage(ctx context.Context, order *domain.Order, key domain.DedupKey, outcome domain.StageOutcome, causationID models.ID) error {
	stage := order.Stage
	evt := o.recorder.newEvent(order.ID, stage.FailureEvent(), domain.StageFailedData{
		Stage:     stage,
		Operation: stage.Operation(),
		Reason:    outcome.Reason,
	}, key.CorrelationID, causationID)
	if err := o.recorder.record(ctx, evt, &key); err != nil {
		return o.failStorage(ctx, order, key.CorrelationID, causationID, err)
	}

	if err := order.Fail(o.now()); err != nil {
		return errors.Wrap(err, "failed to fail order")
	}
	// the failure is recorded, so compensation and the dead letter follow it even when the
	// stored order lags; the sweep reconciles it from the log
	saveErr := o.orders.Save(ctx, order)
	if saveErr != nil {
		saveErr = errors.Wrap(saveErr, "failed to save order")
		o.logger.ErrorContext(ctx, "failed order not stored", "order_id", order.ID, "stage", stage, "error", saveErr)
	}

	o.logger.WarnContext(ctx, "stage rejected", "order_id", order.ID, "stage", stage, "reason", outcome.Reason)
	o.sink.SagaFinished(ctx, order.Status, order.Stage)

	compensateErr := o.compensator.Compensate(ctx, order, stage, key.CorrelationID, evt.ID)
	if _, err := o.deadLetters.Enqueue(ctx, order.ID, evt.EventType, stage.Operation(), key.CorrelationID, outcome.Reason); err != nil {
		return err
	}
	if compensateErr != nil {
		return errors.Wrap(compensateErr, "failed to compensate")
	}
	return saveErr
}

// failInvocation records that the current stage could not be invoked. Nothing ran, so
// nothing is compensated; the dead letter carries the retry.
func (o *Orchestrator) failInvocation(ctx context.Context, order *domain.Order, key *domain.DedupKey, correlationID, causationID models.ID, cause string) error {
	stage := order.Stage
	evt := o.recorder.newEvent(order.ID, events.OrderFailedEvent, domain.OrderFailedData{
		Stage:  stage,
		Reason: domain.DownstreamInvocationFailed,
		Cause:  cause,
	}, correlationID, causationID)
	if err := o.recorder.record(ctx, evt, key); err != nil {
		return err
	}

	if err := order.Fail(o.now()); err != nil {
		return errors.Wrap(err, "failed to fail order")
	}
	saveErr := o.orders.Save(ctx, order)
	if saveErr != nil {
		saveErr = errors.Wrap(saveErr, "failed to save order")
		o.logger.ErrorContext(ctx, "failed order not stored", "order_id", order.ID, "stage", stage, "error", saveErr)
	}

	o.logger.WarnContext(ctx, "stage invocation failed", "order_id", order.ID, "stage", stage, "cause", cause)
	o.sink.SagaFinished(ctx, order.Status, order.Stage)

	if _, err := o.deadLetters.Enqueue(ctx, order.ID, evt.EventType, stage.Operation(), correlationID, cause); err != nil {
		return err
	}
	return saveErr
}

// failStorage turns an attempt whose outcome could not be stored into an invocation failure,
// so the order ends Failed with a dead letter instead of processing with no run behind it.
// The storage error is returned either way.
func (o *Orchestrator) failStorage(ctx context.Context, order *domain.Order, correlationID, causationID models.ID, cause error) error {
	o.logger.ErrorContext(ctx, "saga outcome not stored", "order_id", order.ID, "stage", order.Stage, "error", cause)
	if err := o.failInvocation(ctx, order, nil, correlationID, causationID, cause.Error()); err != nil {
		o.logger.ErrorContext(ctx, "failed to record storage failure", "order_id", order.ID, "error", err)
	}
	return cause
}

// FailDispatch records a run that could not be handed to a dispatcher
func (o *Orchestrator) FailDispatch(ctx context.Context, run *SagaRun, cause error) error {
	order, err := o.load(ctx, run.OrderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusProcessing {
		return nil
	}
	return o.failInvocation(ctx, order, nil, run.CorrelationID, run.CausationID, cause.Error())
}

// BeginRetry records OrderRetried for a failed order and resumes it at the failed stage.
// The reservation is keyed on the failed attempt's correlation, so concurrent retries of the
// same failure produce a single OrderRetried; losers get a run with Started=false.
func (o *Orchestrator) BeginRetry(ctx context.Context, orderID models.ID, trigger domain.RetryTrigger) (*SagaRun, error) {
	order, err := o.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	evts, err := o.reconcile(ctx, order)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusFailed {
		return nil, errors.Wrapf(ErrOrderNotFailed, "order %s is %s", order.ID, order.Status)
	}

	failure := domain.LastFailure(evts)
	if failure == nil {
		return nil, errors.Errorf("order %s has no failure event", order.ID)
	}

	key := domain.DedupKey{
		EventType:     events.OrderRetriedEvent,
		OrderID:       order.ID,
		CorrelationID: failure.CorrelationID,
	}
	reservation, err := o.recorder.reserve(ctx, key)
	if err != nil {
		return nil, err
	}
	if !reservation.Reserved {
		o.logger.InfoContext(ctx, "retry already started", "order_id", order.ID, "event_id", reservation.ExistingEventID)
		return &SagaRun{OrderID: order.ID, Stage: order.Stage, CausationID: reservation.ExistingEventID}, nil
	}

	correlationID := models.GenerateUUID()
	retried := o.recorder.newEvent(order.ID, events.OrderRetriedEvent, domain.OrderRetriedData{
		Stage:              order.Stage,
		PriorCorrelationID: failure.CorrelationID,
		Trigger:            trigger,
	}, correlationID, failure.ID)
	if err := o.recorder.record(ctx, retried, &key); err != nil {
		return nil, err
	}

	if err := order.Retry(o.now()); err != nil {
		return nil, errors.Wrap(err, "failed to retry order")
	}
	if err := o.orders.Save(ctx, order); err != nil {
		// a fresh failure under the new correlation keeps the order retryable
		return nil, o.failStorage(ctx, order, correlationID, retried.ID, errors.Wrap(err, "failed to save order"))
	}

	o.logger.InfoContext(ctx, "order retried", "order_id", order.ID, "stage", order.Stage, "trigger", trigger)
	return &SagaRun{
		OrderID:       order.ID,
		Stage:         order.Stage,
		CorrelationID: correlationID,
		CausationID:   retried.ID,
		Started:       true,
	}, nil
}

// Retry begins a retry and runs it to the end on the caller's goroutine
func (o *Orchestrator) Retry(ctx context.Context, orderID models.ID, trigger domain.RetryTrigger) (*SagaRun, error) {
	run, err := o.BeginRetry(ctx, orderID, trigger)
	if err != nil {
		return nil, err
	}
	if !run.Started {
		return run, nil
	}
	if err := o.Run(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

func (o *Orchestrator) load(ctx context.Context, orderID models.ID) (*domain.Order, error) {
	order, err := o.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// reconcile applies a terminal outcome the event log holds but the stored order missed
// because its save failed. It returns the order's events.
func (o *Orchestrator) reconcile(ctx context.Context, order *domain.Order) ([]*events.Event, error) {
	evts, err := o.eventLog.ReadEvents(ctx, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}

	if order.Status != domain.OrderStatusProcessing {
		return evts, nil
	}
	projected := domain.Replay(evts)
	if projected.Status != domain.OrderStatusFailed && projected.Status != domain.OrderStatusCompleted {
		return evts, nil
	}

	previous := domain.Projection{Status: order.Status, Stage: order.Stage}
	order.Status = projected.Status
	order.Stage = projected.Stage
	order.Timestamps = order.Timestamps.Touch(o.now())
	if err := order.CheckInvariants(); err != nil {
		return nil, errors.Wrap(err, "reconciled order is inconsistent")
	}
	if err := o.orders.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save reconciled order")
	}

	o.logger.WarnContext(ctx, "order reconciled with its events",
		"order_id", order.ID,
		"status", projected.Status,
		"stage", projected.Stage,
		"previous_status", previous.Status,
		"previous_stage", previous.Stage,
	)
	return evts, nil
}
