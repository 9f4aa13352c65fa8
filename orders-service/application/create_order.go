package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CreateOrderItem is one requested line
type CreateOrderItem struct {
	SKU       string          `json:"sku"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderCommand represents the command to create an order
type CreateOrderCommand struct {
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	CustomerRef    string            `json:"customer_ref"`
	Currency       string            `json:"currency,omitempty"`
	Items          []CreateOrderItem `json:"items"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID models.ID          `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
	Stage   domain.Stage       `json:"stage"`
	// Created is false when the idempotency key matched an existing order
	Created bool `json:"created"`
}

// CreateOrder validates a request, records OrderCreated and dispatches the saga
type CreateOrder struct {
	orders       domain.OrderRepository
	orchestrator *Orchestrator
	dispatcher   Dispatcher
	logger       *slog.Logger
	now          func() time.Time
}

// NewCreateOrder creates a new CreateOrder use case
func NewCreateOrder(orders domain.OrderRepository, orchestrator *Orchestrator, dispatcher Dispatcher, opts ...Option) *CreateOrder {
	o := newOptions(opts)
	return &CreateOrder{
		orders:       orders,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		logger:       o.logger,
		now:          o.now,
	}
}

// Execute executes the create order use case
func (uc *CreateOrder) Execute(ctx context.Context, cmd *CreateOrderCommand) (*CreateOrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "orders.create")
	defer span.End()

	if err := uc.validateCommand(cmd); err != nil {
		return nil, err
	}

	orderID := models.GenerateUUID()
	if key := strings.TrimSpace(cmd.IdempotencyKey); key != "" {
		orderID = models.DeriveID("order:" + key)
	}

	items := make([]domain.Item, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.Item{SKU: item.SKU, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}

	order, err := domain.NewOrder(orderID, cmd.CustomerRef, items, cmd.Currency, uc.now())
	if err != nil {
		return nil, invalid(err.Error())
	}

	run, err := uc.orchestrator.Begin(ctx, order)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin saga")
	}

	if !run.Started {
		existing, err := uc.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to find order")
		}
		if existing == nil {
			return nil, errors.Errorf("order %s is still being created", orderID)
		}
		return &CreateOrderResponse{
			OrderID: existing.ID,
			Status:  existing.Status,
			Stage:   existing.Stage,
		}, nil
	}

	if err := uc.dispatcher.Dispatch(ctx, func(ctx context.Context) {
		if err := uc.orchestrator.Run(ctx, run); err != nil {
			uc.logger.ErrorContext(ctx, "saga run failed", "order_id", run.OrderID, "error", err)
		}
	}); err != nil {
		uc.logger.WarnContext(ctx, "saga dispatch failed", "order_id", run.OrderID, "error", err)
		if err := uc.orchestrator.FailDispatch(ctx, run, err); err != nil {
			return nil, errors.Wrap(err, "failed to record dispatch failure")
		}
	}

	return &CreateOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Stage:   order.Stage,
		Created: true,
	}, nil
}

// validateCommand validates the create order command
func (uc *CreateOrder) validateCommand(cmd *CreateOrderCommand) error {
	if cmd == nil {
		return invalid("command is required")
	}
	if strings.TrimSpace(cmd.CustomerRef) == "" {
		return invalid("customer reference is required")
	}
	if len(cmd.Items) == 0 {
		return invalid("at least one item is required")
	}
	return nil
}
