package domain

import (
	"context"
	"time"

	"github.com/draftea/order-saga/shared/models"
)

// StageRequest is what a stage worker receives
type StageRequest struct {
	Operation     Operation    `json:"operation"`
	OrderID       models.ID    `json:"order_id"`
	CorrelationID models.ID    `json:"correlation_id"`
	CustomerRef   string       `json:"customer_ref"`
	TotalAmount   models.Money `json:"total_amount"`
	Items         []Item       `json:"items"`
}

// StageReply is a worker's answer. Accepted=false is a business rejection.
type StageReply struct {
	Accepted bool                   `json:"accepted"`
	Reason   string                 `json:"reason,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// StageWorker performs one external operation. An error means the worker could not be reached or
// did not answer; it is never a business decision.
type StageWorker interface {
	Invoke(ctx context.Context, req StageRequest) (StageReply, error)
}

// OutcomeKind classifies a stage attempt
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeDomainFailure OutcomeKind = "domain_failure"
	OutcomeUnavailable   OutcomeKind = "unavailable"
)

// StageOutcome is the classified result of one stage execution
type StageOutcome struct {
	Kind    OutcomeKind
	Payload map[string]interface{}
	Reason  string
	Cause   error
	Latency time.Duration
}

func Success(payload map[string]interface{}) StageOutcome {
	return StageOutcome{Kind: OutcomeSuccess, Payload: payload}
}

func DomainFailure(reason string) StageOutcome {
	return StageOutcome{Kind: OutcomeDomainFailure, Reason: reason}
}

func Unavailable(cause error) StageOutcome {
	return StageOutcome{Kind: OutcomeUnavailable, Cause: cause, Reason: cause.Error()}
}
