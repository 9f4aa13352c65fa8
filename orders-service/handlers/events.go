package handlers

import (
	"context"
	"log/slog"

	"github.com/draftea/order-saga/orders-service/application"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
)

var _ events.EventHandler = (*CommandEventHandlers)(nil)

// CommandEventHandlers serves operator commands that arrive on the queue
type CommandEventHandlers struct {
	createOrder      *application.CreateOrder
	retryOrder       *application.RetryOrder
	replayDeadLetter *application.ReplayDeadLetter
	logger           *slog.Logger
}

// NewCommandEventHandlers creates new command event handlers
func NewCommandEventHandlers(
	createOrder *application.CreateOrder,
	retryOrder *application.RetryOrder,
	replayDeadLetter *application.ReplayDeadLetter,
	logger *slog.Logger,
) *CommandEventHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandEventHandlers{
		createOrder:      createOrder,
		retryOrder:       retryOrder,
		replayDeadLetter: replayDeadLetter,
		logger:           logger,
	}
}

// Subscribe registers the handlers for every command type
func (h *CommandEventHandlers) Subscribe(ctx context.Context, subscriber events.Subscriber) error {
	for _, eventType := range []string{
		events.OrderCreateRequestedEvent,
		events.OrderRetryRequestedEvent,
		events.DeadLetterReplayRequestedEvent,
	} {
		if err := subscriber.Subscribe(ctx, eventType, h); err != nil {
			return errors.Wrapf(err, "failed to subscribe to %s", eventType)
		}
	}
	return nil
}

// Handle implements the events.EventHandler interface. Commands that can never succeed are
// logged and acknowledged; storage failures are returned so the message is redelivered.
func (h *CommandEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	var err error
	switch event.EventType {
	case events.OrderCreateRequestedEvent:
		err = h.HandleCreateRequested(ctx, event)
	case events.OrderRetryRequestedEvent:
		err = h.HandleRetryRequested(ctx, event)
	case events.DeadLetterReplayRequestedEvent:
		err = h.HandleReplayRequested(ctx, event)
	default:
		return nil
	}

	if isPermanent(err) {
		h.logger.WarnContext(ctx, "dropping command", "event_type", event.EventType, "event_id", event.ID, "error", err)
		return nil
	}
	return err
}

// HandlerID returns the unique identifier for this event handler
func (h *CommandEventHandlers) HandlerID() string {
	return "orders-service-command-handler"
}

// HandleCreateRequested creates an order from the command payload
func (h *CommandEventHandlers) HandleCreateRequested(ctx context.Context, event *events.Event) error {
	var cmd application.CreateOrderCommand
	if err := event.UnmarshalPayload(&cmd); err != nil {
		return errors.Wrap(err, "failed to parse create order command")
	}
	if cmd.IdempotencyKey == "" {
		// a redelivered message must not create a second order
		cmd.IdempotencyKey = event.ID.String()
	}

	response, err := h.createOrder.Execute(ctx, &cmd)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "order create command handled", "order_id", response.OrderID, "created", response.Created)
	return nil
}

// HandleRetryRequested retries a failed order
func (h *CommandEventHandlers) HandleRetryRequested(ctx context.Context, event *events.Event) error {
	var cmd application.RetryOrderCommand
	if err := event.UnmarshalPayload(&cmd); err != nil {
		return errors.Wrap(err, "failed to parse retry order command")
	}
	if cmd.OrderID == "" && !event.OrderID.IsZero() {
		cmd.OrderID = event.OrderID.String()
	}

	response, err := h.retryOrder.Execute(ctx, &cmd)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "order retry command handled",
		"order_id", response.OrderID,
		"accepted", response.Accepted,
		"reason", response.Reason,
	)
	return nil
}

// HandleReplayRequested replays one dead letter
func (h *CommandEventHandlers) HandleReplayRequested(ctx context.Context, event *events.Event) error {
	var cmd application.ReplayDeadLetterCommand
	if err := event.UnmarshalPayload(&cmd); err != nil {
		return errors.Wrap(err, "failed to parse replay command")
	}

	result, err := h.replayDeadLetter.Execute(ctx, &cmd)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "dead letter replay command handled",
		"entry_id", result.EntryID,
		"outcome", result.Outcome,
	)
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, application.ErrValidation) ||
		errors.Is(err, events.ErrInvalidPayload) ||
		errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrDeadLetterNotFound)
}
