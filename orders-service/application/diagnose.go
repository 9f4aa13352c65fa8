package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// DefaultStuckThreshold is how long a processing order may go without a new event
const DefaultStuckThreshold = 5 * time.Minute

// DiagnoseQuery represents the query to diagnose an order
type DiagnoseQuery struct {
	OrderID string `json:"order_id"`
}

// Diagnosis is derived from the event log and order state; nothing is stored
type Diagnosis struct {
	OrderID            models.ID          `json:"order_id" yaml:"order_id"`
	Status             domain.OrderStatus `json:"status" yaml:"status"`
	Stage              domain.Stage       `json:"stage" yaml:"stage"`
	IsStuck            bool               `json:"is_stuck" yaml:"is_stuck"`
	TimeSinceLastEvent time.Duration      `json:"time_since_last_event" yaml:"time_since_last_event"`
	LastEventType      string             `json:"last_event_type,omitempty" yaml:"last_event_type,omitempty"`
	ExpectedNextStep   string             `json:"expected_next_step" yaml:"expected_next_step"`
	Recommendation     string             `json:"recommendation" yaml:"recommendation"`
	OpenDeadLetters    int                `json:"open_dead_letters" yaml:"open_dead_letters"`
	InFlight           bool               `json:"in_flight" yaml:"in_flight"`
	ProjectionDrift    bool               `json:"projection_drift" yaml:"projection_drift"`
	Degraded           bool               `json:"degraded" yaml:"degraded"`
}

// Diagnose explains where an order is and what to do about it. Only the order read may
// fail the call; the other reads fail open and mark the diagnosis degraded.
type Diagnose struct {
	orders         domain.OrderRepository
	eventLog       domain.EventLog
	deadLetters    domain.DeadLetterRepository
	dedup          domain.DedupStore
	stuckThreshold time.Duration
	sink           Sink
	logger         *slog.Logger
	now            func() time.Time
}

// NewDiagnose creates a new Diagnose use case
func NewDiagnose(
	orders domain.OrderRepository,
	eventLog domain.EventLog,
	deadLetters domain.DeadLetterRepository,
	dedup domain.DedupStore,
	stuckThreshold time.Duration,
	opts ...Option,
) *Diagnose {
	o := newOptions(opts)
	if stuckThreshold <= 0 {
		stuckThreshold = DefaultStuckThreshold
	}
	return &Diagnose{
		orders:         orders,
		eventLog:       eventLog,
		deadLetters:    deadLetters,
		dedup:          dedup,
		stuckThreshold: stuckThreshold,
		sink:           o.sink,
		logger:         o.logger,
		now:            o.now,
	}
}

// Execute executes the diagnose use case
func (uc *Diagnose) Execute(ctx context.Context, query *DiagnoseQuery) (*Diagnosis, error) {
	orderID, err := parseOrderID(query.OrderID)
	if err != nil {
		return nil, err
	}

	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	d := &Diagnosis{
		OrderID: order.ID,
		Status:  order.Status,
		Stage:   order.Stage,
	}
	lastActivity := order.Timestamps.UpdatedAt

	evts, err := uc.eventLog.ReadEvents(ctx, orderID)
	if err != nil {
		uc.degraded(ctx, d, "event_log", err)
	} else if len(evts) > 0 {
		last := evts[len(evts)-1]
		d.LastEventType = last.EventType
		lastActivity = last.CreatedAt
		d.ProjectionDrift = domain.Replay(evts) != domain.Projection{Status: order.Status, Stage: order.Stage}
	}

	open, err := uc.deadLetters.List(ctx, domain.DeadLetterQuery{
		OrderID:  orderID,
		Statuses: domain.OpenDeadLetterStatuses,
	})
	if err != nil {
		uc.degraded(ctx, d, "dead_letters", err)
	} else {
		d.OpenDeadLetters = len(open)
	}

	if order.Status == domain.OrderStatusProcessing && order.Stage.IsExecutable() && len(evts) > 0 {
		key := domain.DedupKey{
			EventType:     order.Stage.SuccessEvent(),
			OrderID:       order.ID,
			CorrelationID: currentCorrelation(evts),
		}
		record, err := uc.dedup.Lookup(ctx, key)
		if err != nil {
			uc.degraded(ctx, d, "dedup", err)
		} else {
			d.InFlight = record != nil && !record.Confirmed()
		}
	}

	d.TimeSinceLastEvent = uc.now().Sub(lastActivity)
	d.IsStuck = order.Status == domain.OrderStatusProcessing && d.TimeSinceLastEvent > uc.stuckThreshold
	d.ExpectedNextStep = expectedNextStep(order)
	d.Recommendation = uc.recommend(order, d)
	return d, nil
}

func (uc *Diagnose) degraded(ctx context.Context, d *Diagnosis, source string, err error) {
	d.Degraded = true
	uc.logger.WarnContext(ctx, "diagnostic read failed open",
		"order_id", d.OrderID,
		"source", source,
		"degraded", true,
		"error", err,
	)
	uc.sink.DegradedRead(ctx, source, err)
}

// currentCorrelation is the correlation of the attempt that produced the latest event
func currentCorrelation(evts []*events.Event) models.ID {
	return evts[len(evts)-1].CorrelationID
}

func expectedNextStep(order *domain.Order) string {
	switch order.Status {
	case domain.OrderStatusPending:
		return "record OrderCreated and start inventory"
	case domain.OrderStatusProcessing:
		return string(order.Stage.Operation())
	case domain.OrderStatusFailed:
		return "retry " + string(order.Stage.Operation())
	}
	return "none"
}

func (uc *Diagnose) recommend(order *domain.Order, d *Diagnosis) string {
	switch {
	case d.ProjectionDrift:
		return "stored state disagrees with the event log; rebuild the order"
	case d.IsStuck && d.InFlight:
		return fmt.Sprintf("%s has been in flight for %s; check the %s worker", order.Stage, d.TimeSinceLastEvent.Round(time.Second), order.Stage)
	case d.IsStuck:
		return fmt.Sprintf("no progress at %s for %s; the saga run was likely lost, rebuild the order and retry once it fails", order.Stage, d.TimeSinceLastEvent.Round(time.Second))
	case order.Status == domain.OrderStatusFailed && d.OpenDeadLetters > 0:
		return "automatic retry is pending; wait for the sweep or replay the dead letter"
	case order.Status == domain.OrderStatusFailed:
		return "no automatic retry left; retry the order or replay its dead letter"
	case order.Status == domain.OrderStatusCompleted:
		return "no action required"
	}
	return "saga in progress"
}
