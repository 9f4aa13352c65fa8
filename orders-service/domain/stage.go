package domain

import (
	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

// Stage is the saga step an order is executing or last attempted
type Stage string

const (
	StageOrder     Stage = "order"
	StageInventory Stage = "inventory"
	StagePayment   Stage = "payment"
	StageShipping  Stage = "shipping"
	StageCompleted Stage = "completed"
)

// ParseStage validates a stage name
func ParseStage(s string) (Stage, error) {
	switch stage := Stage(s); stage {
	case StageOrder, StageInventory, StagePayment, StageShipping, StageCompleted:
		return stage, nil
	}
	return "", errors.Errorf("unknown stage %q", s)
}

// IsExecutable reports whether the stage is backed by a stage worker
func (s Stage) IsExecutable() bool {
	return s == StageInventory || s == StagePayment || s == StageShipping
}

// Next returns the stage that follows s on the success path
func (s Stage) Next() Stage {
	switch s {
	case StageOrder:
		return StageInventory
	case StageInventory:
		return StagePayment
	case StagePayment:
		return StageShipping
	default:
		return StageCompleted
	}
}

// SuccessEvent is the event appended when the stage succeeds. It also names the
// dedup reservation guarding an attempt of the stage.
func (s Stage) SuccessEvent() string {
	switch s {
	case StageOrder:
		return events.OrderCreatedEvent
	case StageInventory:
		return events.InventoryReservedEvent
	case StagePayment:
		return events.PaymentAuthorizedEvent
	case StageShipping:
		return events.OrderShippedEvent
	}
	return ""
}

// FailureEvent is the event appended when the stage worker rejects the request
func (s Stage) FailureEvent() string {
	switch s {
	case StageInventory:
		return events.InventoryFailedEvent
	case StagePayment:
		return events.PaymentFailedEvent
	case StageShipping:
		return events.ShippingFailedEvent
	}
	return ""
}

// Operation returns the stage worker operation for the stage
func (s Stage) Operation() Operation {
	switch s {
	case StageInventory:
		return OperationReserveInventory
	case StagePayment:
		return OperationAuthorizePayment
	case StageShipping:
		return OperationShipOrder
	}
	return ""
}

// Operation is a single call a stage worker can perform, forward or compensating
type Operation string

const (
	OperationReserveInventory Operation = "reserve_inventory"
	OperationAuthorizePayment Operation = "authorize_payment"
	OperationShipOrder        Operation = "ship_order"
	OperationReleaseInventory Operation = "release_inventory"
	OperationRefundPayment    Operation = "refund_payment"
)

// ParseOperation validates an operation name
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OperationReserveInventory, OperationAuthorizePayment, OperationShipOrder,
		OperationReleaseInventory, OperationRefundPayment:
		return op, nil
	}
	return "", errors.Errorf("unknown operation %q", s)
}

// Stage returns the forward stage an operation belongs to
func (o Operation) Stage() (Stage, bool) {
	switch o {
	case OperationReserveInventory:
		return StageInventory, true
	case OperationAuthorizePayment:
		return StagePayment, true
	case OperationShipOrder:
		return StageShipping, true
	}
	return "", false
}

// IsCompensation reports whether the operation undoes a previous stage
func (o Operation) IsCompensation() bool {
	return o == OperationReleaseInventory || o == OperationRefundPayment
}

// CompletionEvent is the event appended once a compensating operation succeeds
func (o Operation) CompletionEvent() string {
	switch o {
	case OperationReleaseInventory:
		return events.InventoryReleasedEvent
	case OperationRefundPayment:
		return events.PaymentRefundedEvent
	}
	return ""
}

// CompensationsFor lists the compensating operations for a domain failure at stage, most recent effect first
func CompensationsFor(failed Stage) []Operation {
	switch failed {
	case StagePayment:
		return []Operation{OperationReleaseInventory}
	case StageShipping:
		return []Operation{OperationRefundPayment, OperationReleaseInventory}
	}
	return nil
}
