package handlers

import (
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
)

// OrderView is the operator-facing shape of an order and its history
type OrderView struct {
	ID          models.ID          `json:"id" yaml:"id"`
	CustomerRef string             `json:"customer_ref" yaml:"customer_ref"`
	Items       []domain.Item      `json:"items" yaml:"items"`
	TotalAmount models.Money       `json:"total_amount" yaml:"total_amount"`
	Status      domain.OrderStatus `json:"status" yaml:"status"`
	Stage       domain.Stage       `json:"stage" yaml:"stage"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" yaml:"updated_at"`
	Events      []EventView        `json:"events,omitempty" yaml:"events,omitempty"`
}

type EventView struct {
	ID            models.ID              `json:"id" yaml:"id"`
	EventType     string                 `json:"event_type" yaml:"event_type"`
	CorrelationID models.ID              `json:"correlation_id" yaml:"correlation_id"`
	CausationID   models.ID              `json:"causation_id,omitempty" yaml:"causation_id,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	ProducedBy    string                 `json:"produced_by" yaml:"produced_by"`
	CreatedAt     time.Time              `json:"created_at" yaml:"created_at"`
}

type DeadLetterView struct {
	ID            models.ID               `json:"id" yaml:"id"`
	OrderID       models.ID               `json:"order_id" yaml:"order_id"`
	EventType     string                  `json:"event_type" yaml:"event_type"`
	Operation     domain.Operation        `json:"operation" yaml:"operation"`
	CorrelationID models.ID               `json:"correlation_id" yaml:"correlation_id"`
	ErrorMessage  string                  `json:"error_message" yaml:"error_message"`
	RetryCount    int                     `json:"retry_count" yaml:"retry_count"`
	MaxRetries    int                     `json:"max_retries" yaml:"max_retries"`
	Status        domain.DeadLetterStatus `json:"status" yaml:"status"`
	LastRetryAt   *time.Time              `json:"last_retry_at,omitempty" yaml:"last_retry_at,omitempty"`
	CreatedAt     time.Time               `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at" yaml:"updated_at"`
}

func NewOrderView(order *domain.Order, evts []*events.Event) OrderView {
	view := OrderView{
		ID:          order.ID,
		CustomerRef: order.CustomerRef,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		Stage:       order.Stage,
		CreatedAt:   order.Timestamps.CreatedAt,
		UpdatedAt:   order.Timestamps.UpdatedAt,
	}
	for _, event := range evts {
		view.Events = append(view.Events, NewEventView(event))
	}
	return view
}

func NewEventView(event *events.Event) EventView {
	view := EventView{
		ID:            event.ID,
		EventType:     event.EventType,
		CorrelationID: event.CorrelationID,
		CausationID:   event.CausationID,
		ProducedBy:    event.ProducedBy,
		CreatedAt:     event.CreatedAt,
	}
	var data map[string]interface{}
	if err := event.UnmarshalPayload(&data); err == nil {
		view.Data = data
	}
	return view
}

func NewDeadLetterView(entry *domain.DeadLetterEntry) DeadLetterView {
	return DeadLetterView{
		ID:            entry.ID,
		OrderID:       entry.OrderID,
		EventType:     entry.EventType,
		Operation:     entry.Operation,
		CorrelationID: entry.CorrelationID,
		ErrorMessage:  entry.ErrorMessage,
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		Status:        entry.Status,
		LastRetryAt:   entry.LastRetryAt,
		CreatedAt:     entry.Timestamps.CreatedAt,
		UpdatedAt:     entry.Timestamps.UpdatedAt,
	}
}

func NewDeadLetterViews(entries []*domain.DeadLetterEntry) []DeadLetterView {
	views := make([]DeadLetterView, len(entries))
	for i, entry := range entries {
		views[i] = NewDeadLetterView(entry)
	}
	return views
}
