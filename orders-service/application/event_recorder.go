package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// eventRecorder builds saga events and binds them to their dedup reservation
type eventRecorder struct {
	eventLog   domain.EventLog
	dedup      domain.DedupStore
	producedBy string
	now        func() time.Time
}

func (r eventRecorder) newEvent(orderID models.ID, eventType string, data interface{}, correlationID, causationID models.ID) *events.Event {
	evt := events.NewEvent(orderID, eventType, data).
		WithCorrelationID(correlationID).
		WithProducer(r.producedBy)
	if !causationID.IsZero() {
		evt.WithCausationID(causationID)
	}
	evt.CreatedAt = r.now().UTC()
	return evt
}

// record appends the event and, when key is set, confirms the reservation with it.
// A failed append releases the reservation; a failed confirm keeps it, since the event exists.
func (r eventRecorder) record(ctx context.Context, evt *events.Event, key *domain.DedupKey) error {
	if _, err := r.eventLog.Append(ctx, evt); err != nil {
		err = errors.Wrapf(err, "failed to append %s event", evt.EventType)
		if key == nil {
			return err
		}
		return r.abandon(ctx, *key, err)
	}
	if key == nil {
		return nil
	}
	if err := r.dedup.Confirm(ctx, *key, evt.ID); err != nil {
		return errors.Wrapf(err, "failed to confirm %s", key)
	}
	return nil
}

func (r eventRecorder) reserve(ctx context.Context, key domain.DedupKey) (domain.Reservation, error) {
	reservation, err := r.dedup.CheckAndReserve(ctx, key)
	if err != nil {
		return domain.Reservation{}, errors.Wrapf(err, "failed to reserve %s", key)
	}
	return reservation, nil
}

// abandon releases a reservation whose attempt stopped before recording its event
// and returns cause
func (r eventRecorder) abandon(ctx context.Context, key domain.DedupKey, cause error) error {
	if err := r.dedup.Release(ctx, key); err != nil {
		return errors.Wrapf(cause, "failed to release %s: %v", key, err)
	}
	return cause
}
