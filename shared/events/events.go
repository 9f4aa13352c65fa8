package events

import (
	"context"
	"reflect"
	"time"

	"github.com/draftea/order-saga/shared/models"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
)

// CurrentSchemaVersion is stamped on every event produced by this module
const CurrentSchemaVersion = 1

// Metadata represents event metadata
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	m[key] = value
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Event is an immutable fact about an order
type Event struct {
	ID            models.ID   `json:"id"`
	OrderID       models.ID   `json:"order_id"`
	EventType     string      `json:"event_type"`
	CorrelationID models.ID   `json:"correlation_id"`
	CausationID   models.ID   `json:"causation_id,omitempty"`
	SchemaVersion int         `json:"schema_version"`
	Data          interface{} `json:"data"`
	ProducedBy    string      `json:"produced_by"`
	CreatedAt     time.Time   `json:"created_at"`
	Metadata      Metadata    `json:"metadata,omitempty"`
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// Subscriber subscribes to events
type Subscriber interface {
	Subscribe(ctx context.Context, eventType string, handler EventHandler) error
}

// EventHandler handles events
type EventHandler interface {
	Handle(ctx context.Context, event *Event) error
}

// NewEvent creates a new event for an order
func NewEvent(orderID models.ID, eventType string, data interface{}) *Event {
	return &Event{
		ID:            models.GenerateUUID(),
		OrderID:       orderID,
		EventType:     eventType,
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
		Metadata:      make(Metadata),
		CreatedAt:     time.Now().UTC(),
	}
}

// WithCorrelationID sets correlation ID
func (e *Event) WithCorrelationID(correlationID models.ID) *Event {
	e.CorrelationID = correlationID
	return e
}

// WithCausationID sets the event that triggered this one
func (e *Event) WithCausationID(causationID models.ID) *Event {
	e.CausationID = causationID
	return e
}

// WithProducer sets the logical service name that produced the event
func (e *Event) WithProducer(producedBy string) *Event {
	e.ProducedBy = producedBy
	return e
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// ToJSON converts event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Metadata == nil {
		event.Metadata = make(Metadata)
	}
	return &event, nil
}

// MarshalPayload marshals the event payload
func (e *Event) MarshalPayload() (json.RawMessage, error) {
	switch data := e.Data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case []byte:
		return data, nil
	case json.RawMessage:
		return data, nil
	}

	return json.Marshal(e.Data)
}

// UnmarshalPayload unmarshals the event payload into the given pointer
func (e *Event) UnmarshalPayload(v interface{}) error {
	vValue := reflect.ValueOf(v)
	if vValue.Kind() != reflect.Ptr || vValue.IsNil() {
		return ErrInvalidReceiver
	}

	if e.Data != nil {
		payloadValue := reflect.ValueOf(e.Data)
		if vValue.Elem().Type() == payloadValue.Type() {
			vValue.Elem().Set(payloadValue)
			return nil
		}
		if payloadValue.Kind() == reflect.Ptr && !payloadValue.IsNil() && payloadValue.Elem().Type() == vValue.Elem().Type() {
			vValue.Elem().Set(payloadValue.Elem())
			return nil
		}
	}

	raw, err := e.MarshalPayload()
	if err != nil {
		return errors.Wrap(ErrInvalidPayload, err.Error())
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return nil
}

// Clone creates a copy of the event
func (e *Event) Clone() *Event {
	clone := *e
	clone.Metadata = e.Metadata.Clone()
	return &clone
}

// Saga event types
const (
	OrderCreatedEvent        = "OrderCreated"
	InventoryReservedEvent   = "InventoryReserved"
	InventoryFailedEvent     = "InventoryFailed"
	PaymentAuthorizedEvent   = "PaymentAuthorized"
	PaymentFailedEvent       = "PaymentFailed"
	OrderShippedEvent        = "OrderShipped"
	ShippingFailedEvent      = "ShippingFailed"
	OrderFailedEvent         = "OrderFailed"
	OrderRetriedEvent        = "OrderRetried"
	CompensationStartedEvent = "CompensationStarted"
	InventoryReleasedEvent   = "InventoryReleased"
	PaymentRefundedEvent     = "PaymentRefunded"
	CompensationFailedEvent  = "CompensationFailed"
)

// Inbound operator commands
const (
	OrderCreateRequestedEvent      = "order.create.requested"
	OrderRetryRequestedEvent       = "order.retry.requested"
	DeadLetterReplayRequestedEvent = "dead_letter.replay.requested"
)
