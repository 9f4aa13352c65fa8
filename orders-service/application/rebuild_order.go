package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// RebuildOrderCommand rebuilds the stored order state from its events
type RebuildOrderCommand struct {
	OrderID string `json:"order_id"`
}

// RebuildOrderResponse reports the state before and after the rebuild
type RebuildOrderResponse struct {
	OrderID models.ID         `json:"order_id" yaml:"order_id"`
	Before  domain.Projection `json:"before" yaml:"before"`
	After   domain.Projection `json:"after" yaml:"after"`
	Changed bool              `json:"changed" yaml:"changed"`
}

// RebuildOrder replays the event log into the order projection
type RebuildOrder struct {
	orders   domain.OrderRepository
	eventLog domain.EventLog
	logger   *slog.Logger
	now      func() time.Time
}

// NewRebuildOrder creates a new RebuildOrder use case
func NewRebuildOrder(orders domain.OrderRepository, eventLog domain.EventLog, opts ...Option) *RebuildOrder {
	o := newOptions(opts)
	return &RebuildOrder{
		orders:   orders,
		eventLog: eventLog,
		logger:   o.logger,
		now:      o.now,
	}
}

// Execute executes the rebuild order use case
func (uc *RebuildOrder) Execute(ctx context.Context, cmd *RebuildOrderCommand) (*RebuildOrderResponse, error) {
	orderID, err := parseOrderID(cmd.OrderID)
	if err != nil {
		return nil, err
	}

	evts, err := uc.eventLog.ReadEvents(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}
	if len(evts) == 0 {
		return nil, domain.ErrOrderNotFound
	}

	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		if order, err = orderFromCreatedEvent(evts); err != nil {
			return nil, err
		}
	}

	before := domain.Projection{Status: order.Status, Stage: order.Stage}
	after := domain.Replay(evts)

	resp := &RebuildOrderResponse{OrderID: orderID, Before: before, After: after, Changed: before != after}
	if !resp.Changed {
		return resp, nil
	}

	order.Status = after.Status
	order.Stage = after.Stage
	order.Timestamps = order.Timestamps.Touch(uc.now())
	if err := order.CheckInvariants(); err != nil {
		return nil, errors.Wrap(err, "rebuilt order is inconsistent")
	}
	if err := uc.orders.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}

	uc.logger.InfoContext(ctx, "order rebuilt",
		"order_id", orderID,
		"status", after.Status,
		"stage", after.Stage,
		"previous_status", before.Status,
		"previous_stage", before.Stage,
	)
	return resp, nil
}

func orderFromCreatedEvent(evts []*events.Event) (*domain.Order, error) {
	created := evts[0]
	if created.EventType != events.OrderCreatedEvent {
		return nil, errors.Errorf("first event is %s, expected %s", created.EventType, events.OrderCreatedEvent)
	}

	var data domain.OrderCreatedData
	if err := created.UnmarshalPayload(&data); err != nil {
		return nil, errors.Wrap(err, "failed to decode OrderCreated")
	}

	return &domain.Order{
		ID:          created.OrderID,
		CustomerRef: data.CustomerRef,
		Items:       data.Items,
		TotalAmount: data.TotalAmount,
		Status:      domain.OrderStatusPending,
		Stage:       domain.StageOrder,
		Timestamps:  models.NewTimestamps(created.CreatedAt),
	}, nil
}
