package domain

import (
	"context"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
)

// EventLog is the append-only record of everything that happened to an order.
// ReadEvents returns events ordered by creation time, insertion order breaking ties.
type EventLog interface {
	Append(ctx context.Context, event *events.Event) (models.ID, error)
	ReadEvents(ctx context.Context, orderID models.ID) ([]*events.Event, error)
}

// Projection is the status/stage pair derived from an event sequence
type Projection struct {
	Status OrderStatus `json:"status" yaml:"status"`
	Stage  Stage       `json:"stage" yaml:"stage"`
}

// Replay folds the events of one order into its status and stage
func Replay(evts []*events.Event) Projection {
	p := Projection{Status: OrderStatusPending, Stage: StageOrder}

	for _, evt := range evts {
		switch evt.EventType {
		case events.OrderCreatedEvent:
			p = Projection{Status: OrderStatusProcessing, Stage: StageInventory}
		case events.InventoryReservedEvent:
			p = Projection{Status: OrderStatusProcessing, Stage: StagePayment}
		case events.PaymentAuthorizedEvent:
			p = Projection{Status: OrderStatusProcessing, Stage: StageShipping}
		case events.OrderShippedEvent:
			p = Projection{Status: OrderStatusCompleted, Stage: StageCompleted}
		case events.InventoryFailedEvent:
			p = Projection{Status: OrderStatusFailed, Stage: StageInventory}
		case events.PaymentFailedEvent:
			p = Projection{Status: OrderStatusFailed, Stage: StagePayment}
		case events.ShippingFailedEvent:
			p = Projection{Status: OrderStatusFailed, Stage: StageShipping}
		case events.OrderFailedEvent:
			// the stage that could not be invoked is the one already projected
			p.Status = OrderStatusFailed
		case events.OrderRetriedEvent:
			p.Status = OrderStatusProcessing
		}
	}

	return p
}

// IsFailureEvent reports whether the event type moves an order into Failed
func IsFailureEvent(eventType string) bool {
	switch eventType {
	case events.InventoryFailedEvent, events.PaymentFailedEvent,
		events.ShippingFailedEvent, events.OrderFailedEvent:
		return true
	}
	return false
}

// LastFailure returns the most recent failure event, or nil
func LastFailure(evts []*events.Event) *events.Event {
	for i := len(evts) - 1; i >= 0; i-- {
		if IsFailureEvent(evts[i].EventType) {
			return evts[i]
		}
	}
	return nil
}

// FindEvent returns the event with the given ID, or nil
func FindEvent(evts []*events.Event, id models.ID) *events.Event {
	for _, evt := range evts {
		if evt.ID == id {
			return evt
		}
	}
	return nil
}
