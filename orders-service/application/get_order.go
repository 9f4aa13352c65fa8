package application

import (
	"context"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// GetOrderQuery represents the query to get an order
type GetOrderQuery struct {
	OrderID string `json:"order_id"`
}

// GetOrderResponse is the order with its full event history
type GetOrderResponse struct {
	Order  *domain.Order
	Events []*events.Event
}

// GetOrder use case
type GetOrder struct {
	orders   domain.OrderRepository
	eventLog domain.EventLog
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orders domain.OrderRepository, eventLog domain.EventLog) *GetOrder {
	return &GetOrder{
		orders:   orders,
		eventLog: eventLog,
	}
}

// Execute executes the get order use case
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*GetOrderResponse, error) {
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

	evts, err := uc.eventLog.ReadEvents(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}

	return &GetOrderResponse{
		Order:  order,
		Events: evts,
	}, nil
}

func parseOrderID(raw string) (models.ID, error) {
	if raw == "" {
		return "", invalid("order ID is required")
	}
	id, err := models.NewID(raw)
	if err != nil {
		return "", invalid("order ID must be a UUID")
	}
	return id, nil
}
