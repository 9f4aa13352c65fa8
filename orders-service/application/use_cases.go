package application

import (
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
)

// Stores groups the persistence ports the saga needs
type Stores struct {
	Orders      domain.OrderRepository
	EventLog    domain.EventLog
	Dedup       domain.DedupStore
	DeadLetters domain.DeadLetterRepository
}

// SagaConfig tunes the saga components
type SagaConfig struct {
	StageTimeout   time.Duration
	MaxRetries     int
	StuckThreshold time.Duration
	Retry          RetryManagerConfig
}

// UseCases is the saga wired over one set of stores and one stage worker
type UseCases struct {
	Orchestrator    *Orchestrator
	Compensator     *Compensator
	DeadLetterQueue *DeadLetterQueue
	RetryManager    *RetryManager

	CreateOrder      *CreateOrder
	GetOrder         *GetOrder
	RetryOrder       *RetryOrder
	Diagnose         *Diagnose
	RebuildOrder     *RebuildOrder
	ListDeadLetters  *ListDeadLetters
	ReplayDeadLetter *ReplayDeadLetter
}

// NewUseCases builds every saga component
func NewUseCases(stores Stores, worker domain.StageWorker, dispatcher Dispatcher, config SagaConfig, opts ...Option) *UseCases {
	executor := NewStageExecutor(worker, config.StageTimeout)
	queue := NewDeadLetterQueue(stores.DeadLetters, config.MaxRetries, opts...)
	compensator := NewCompensator(stores.EventLog, stores.Dedup, executor, queue, opts...)
	orchestrator := NewOrchestrator(stores.Orders, stores.EventLog, stores.Dedup, executor, compensator, queue, opts...)
	manager := NewRetryManager(orchestrator, compensator, queue, stores.Orders, config.Retry, opts...)

	return &UseCases{
		Orchestrator:    orchestrator,
		Compensator:     compensator,
		DeadLetterQueue: queue,
		RetryManager:    manager,

		CreateOrder:      NewCreateOrder(stores.Orders, orchestrator, dispatcher, opts...),
		GetOrder:         NewGetOrder(stores.Orders, stores.EventLog),
		RetryOrder:       NewRetryOrder(orchestrator, queue, stores.Orders, dispatcher, opts...),
		Diagnose:         NewDiagnose(stores.Orders, stores.EventLog, stores.DeadLetters, stores.Dedup, config.StuckThreshold, opts...),
		RebuildOrder:     NewRebuildOrder(stores.Orders, stores.EventLog, opts...),
		ListDeadLetters:  NewListDeadLetters(queue),
		ReplayDeadLetter: NewReplayDeadLetter(manager),
	}
}
