package domain

import (
	"context"
	"strings"
	"time"

	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// DefaultCurrency is used when an order request carries no currency
const DefaultCurrency = "USD"

// Item is one line of an order
type Item struct {
	SKU       string          `json:"sku" yaml:"sku"`
	Quantity  int64           `json:"quantity" yaml:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" yaml:"unit_price"`
}

// Order aggregate root. Mutated only by the saga in response to stage outcomes.
type Order struct {
	ID          models.ID
	CustomerRef string
	Items       []Item
	TotalAmount models.Money
	Status      OrderStatus
	Stage       Stage
	Timestamps  models.Timestamps
}

// NewOrder validates the request and builds a pending order
func NewOrder(id models.ID, customerRef string, items []Item, currency string, now time.Time) (*Order, error) {
	if id.IsZero() {
		return nil, errors.New("order ID is required")
	}
	if strings.TrimSpace(customerRef) == "" {
		return nil, errors.New("customer reference is required")
	}
	if len(items) == 0 {
		return nil, errors.New("at least one item is required")
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	total := models.NewMoney(decimal.Zero, currency)
	for i, item := range items {
		if strings.TrimSpace(item.SKU) == "" {
			return nil, errors.Errorf("item %d: sku is required", i)
		}
		if item.Quantity <= 0 {
			return nil, errors.Errorf("item %d: quantity must be positive", i)
		}
		if item.UnitPrice.IsNegative() {
			return nil, errors.Errorf("item %d: unit price must not be negative", i)
		}
		line := models.NewMoney(item.UnitPrice, currency).Times(item.Quantity)
		total, _ = total.Add(line)
	}
	if !total.IsPositive() {
		return nil, errors.New("total amount must be positive")
	}

	return &Order{
		ID:          id,
		CustomerRef: customerRef,
		Items:       items,
		TotalAmount: total,
		Status:      OrderStatusPending,
		Stage:       StageOrder,
		Timestamps:  models.NewTimestamps(now),
	}, nil
}

// Start moves a pending order into the inventory stage
func (o *Order) Start(now time.Time) error {
	if o.Status != OrderStatusPending || o.Stage != StageOrder {
		return errors.Wrapf(ErrInvalidTransition, "cannot start order in %s/%s", o.Status, o.Stage)
	}
	o.Status = OrderStatusProcessing
	o.Stage = StageInventory
	o.Timestamps = o.Timestamps.Touch(now)
	return nil
}

// Advance records success of the current stage and moves to the next one
func (o *Order) Advance(now time.Time) error {
	if o.Status != OrderStatusProcessing || !o.Stage.IsExecutable() {
		return errors.Wrapf(ErrInvalidTransition, "cannot advance order in %s/%s", o.Status, o.Stage)
	}
	o.Stage = o.Stage.Next()
	if o.Stage == StageCompleted {
		o.Status = OrderStatusCompleted
	}
	o.Timestamps = o.Timestamps.Touch(now)
	return nil
}

// Fail marks the order failed at its current stage
func (o *Order) Fail(now time.Time) error {
	if o.Status != OrderStatusProcessing || !o.Stage.IsExecutable() {
		return errors.Wrapf(ErrInvalidTransition, "cannot fail order in %s/%s", o.Status, o.Stage)
	}
	o.Status = OrderStatusFailed
	o.Timestamps = o.Timestamps.Touch(now)
	return nil
}

// Retry resumes a failed order at the stage that failed
func (o *Order) Retry(now time.Time) error {
	if o.Status != OrderStatusFailed {
		return errors.Wrapf(ErrInvalidTransition, "cannot retry order in %s", o.Status)
	}
	o.Status = OrderStatusProcessing
	o.Timestamps = o.Timestamps.Touch(now)
	return nil
}

// FailedAt reports whether the order is failed at the given stage
func (o *Order) FailedAt(stage Stage) bool {
	return o.Status == OrderStatusFailed && o.Stage == stage
}

// CheckInvariants verifies the status/stage pairing
func (o *Order) CheckInvariants() error {
	switch o.Status {
	case OrderStatusPending:
		if o.Stage != StageOrder {
			return errors.Errorf("pending order must be at stage %s, got %s", StageOrder, o.Stage)
		}
	case OrderStatusProcessing, OrderStatusFailed:
		if !o.Stage.IsExecutable() {
			return errors.Errorf("%s order must be at an executable stage, got %s", o.Status, o.Stage)
		}
	case OrderStatusCompleted:
		if o.Stage != StageCompleted {
			return errors.Errorf("completed order must be at stage %s, got %s", StageCompleted, o.Stage)
		}
	default:
		return errors.Errorf("unknown status %q", o.Status)
	}
	return nil
}

// OrderQuery filters order listings
type OrderQuery struct {
	Status OrderStatus
	Limit  int
}

// OrderRepository persists the order projection. FindByID returns nil, nil when missing.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id models.ID) (*Order, error)
	List(ctx context.Context, query OrderQuery) ([]*Order, error)
}
