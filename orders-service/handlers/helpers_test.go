package handlers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/application"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/orders-service/infrastructure"
)

// switchableOutage makes authorize_payment unreachable until it is turned off
type switchableOutage struct {
	down atomic.Bool
}

func (s *switchableOutage) decide(req domain.StageRequest) infrastructure.Decision {
	if req.Operation == domain.OperationAuthorizePayment && s.down.Load() {
		return infrastructure.Decision{Unavailable: true}
	}
	return infrastructure.Decision{Accept: true}
}

func newTestUseCases(t *testing.T, outage *switchableOutage) *application.UseCases {
	t.Helper()
	return application.NewUseCases(
		application.Stores{
			Orders:      infrastructure.NewMemoryOrderRepository(),
			EventLog:    infrastructure.NewMemoryEventLog(),
			Dedup:       infrastructure.NewMemoryDedupStore(),
			DeadLetters: infrastructure.NewMemoryDeadLetterRepository(),
		},
		infrastructure.NewSimulatedWorker(outage.decide, 0),
		application.InlineDispatcher{},
		application.SagaConfig{
			StageTimeout: time.Second,
			MaxRetries:   3,
			Retry:        application.RetryManagerConfig{Cooldown: time.Minute},
		},
	)
}
