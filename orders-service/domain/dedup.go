package domain

import (
	"context"
	"time"

	"github.com/draftea/order-saga/shared/models"
)

// DedupRetention is how long dedup keys are kept for storage hygiene
const DedupRetention = 24 * time.Hour

// DedupKey identifies one logical effect
type DedupKey struct {
	EventType     string
	OrderID       models.ID
	CorrelationID models.ID
}

func (k DedupKey) String() string {
	return k.EventType + ":" + k.OrderID.String() + ":" + k.CorrelationID.String()
}

// Reservation is the result of an atomic check-and-reserve.
// When Reserved is false the effect already happened (or is in flight when ExistingEventID is empty).
type Reservation struct {
	Reserved        bool
	ExistingEventID models.ID
}

func Reserved() Reservation {
	return Reservation{Reserved: true}
}

func AlreadyProcessed(eventID models.ID) Reservation {
	return Reservation{ExistingEventID: eventID}
}

// InFlight reports a reservation held by another attempt that has not produced its event yet
func (r Reservation) InFlight() bool {
	return !r.Reserved && r.ExistingEventID.IsZero()
}

// DedupRecord is a stored dedup key
type DedupRecord struct {
	Key       DedupKey
	EventID   models.ID
	CreatedAt time.Time
}

// Confirmed reports whether the reservation has been bound to an event
func (r *DedupRecord) Confirmed() bool {
	return !r.EventID.IsZero()
}

// DedupStore guards effects with a uniqueness constraint on the key.
// CheckAndReserve must be a single atomic operation; Confirm is insert-or-ignore.
// Release drops a reservation that was never confirmed and leaves confirmed keys alone.
// Lookup returns nil, nil when the key is absent.
type DedupStore interface {
	CheckAndReserve(ctx context.Context, key DedupKey) (Reservation, error)
	Confirm(ctx context.Context, key DedupKey, eventID models.ID) error
	Release(ctx context.Context, key DedupKey) error
	Lookup(ctx context.Context, key DedupKey) (*DedupRecord, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}
