package domain

import "github.com/draftea/order-saga/shared/models"

// DownstreamInvocationFailed is the OrderFailed reason when a stage could not be invoked
const DownstreamInvocationFailed = "downstream invocation failed"

// RetryTrigger names what started a retry
type RetryTrigger string

const (
	RetryTriggerManual    RetryTrigger = "manual"
	RetryTriggerAutomatic RetryTrigger = "automatic"
	RetryTriggerReplay    RetryTrigger = "replay"
)

type OrderCreatedData struct {
	OrderID     models.ID    `json:"order_id"`
	CustomerRef string       `json:"customer_ref"`
	Items       []Item       `json:"items"`
	TotalAmount models.Money `json:"total_amount"`
}

type StageCompletedData struct {
	Stage     Stage                  `json:"stage"`
	Operation Operation              `json:"operation"`
	Result    map[string]interface{} `json:"result,omitempty"`
}

type StageFailedData struct {
	Stage     Stage     `json:"stage"`
	Operation Operation `json:"operation"`
	Reason    string    `json:"reason"`
}

type OrderFailedData struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
	Cause  string `json:"cause,omitempty"`
}

type OrderRetriedData struct {
	Stage              Stage        `json:"stage"`
	PriorCorrelationID models.ID    `json:"prior_correlation_id"`
	Trigger            RetryTrigger `json:"trigger"`
}

// CompensationStartedData lists every action of one compensation run, in execution order
type CompensationStartedData struct {
	Actions     []Operation `json:"actions"`
	FailedStage Stage       `json:"failed_stage"`
}

type CompensationCompletedData struct {
	Action Operation              `json:"action"`
	Result map[string]interface{} `json:"result,omitempty"`
}

type CompensationFailedData struct {
	Action      Operation `json:"action"`
	FailedStage Stage     `json:"failed_stage"`
	Reason      string    `json:"reason"`
}
