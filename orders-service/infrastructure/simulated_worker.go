package infrastructure

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/pkg/errors"
)

// ErrSimulatedOutage is returned by a simulated worker told to be unreachable
var ErrSimulatedOutage = errors.New("simulated worker outage")

// Decision is what a simulated worker answers
type Decision struct {
	Accept      bool
	Reason      string
	Unavailable bool
}

// DecisionFunc decides the outcome of one stage request
type DecisionFunc func(req domain.StageRequest) Decision

// AlwaysAccept accepts every request
func AlwaysAccept(domain.StageRequest) Decision {
	return Decision{Accept: true}
}

// RandomRejections rejects each operation with its configured probability. Operations
// without a rate are always accepted.
func RandomRejections(rates map[domain.Operation]float64, roll func() float64) DecisionFunc {
	if roll == nil {
		roll = rand.Float64
	}
	return func(req domain.StageRequest) Decision {
		rate, ok := rates[req.Operation]
		if !ok || roll() >= rate {
			return Decision{Accept: true}
		}
		return Decision{Reason: simulatedReason(req.Operation)}
	}
}

func simulatedReason(op domain.Operation) string {
	switch op {
	case domain.OperationReserveInventory:
		return "insufficient stock"
	case domain.OperationAuthorizePayment:
		return "payment declined"
	case domain.OperationShipOrder:
		return "carrier rejected shipment"
	}
	return string(op) + " rejected"
}

// SimulatedWorker answers stage requests in-process after an optional delay
type SimulatedWorker struct {
	decide  DecisionFunc
	latency time.Duration
}

// NewSimulatedWorker creates a new SimulatedWorker
func NewSimulatedWorker(decide DecisionFunc, latency time.Duration) *SimulatedWorker {
	if decide == nil {
		decide = AlwaysAccept
	}
	return &SimulatedWorker{decide: decide, latency: latency}
}

func (w *SimulatedWorker) Invoke(ctx context.Context, req domain.StageRequest) (domain.StageReply, error) {
	if w.latency > 0 {
		timer := time.NewTimer(w.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.StageReply{}, ctx.Err()
		}
	}

	decision := w.decide(req)
	if decision.Unavailable {
		return domain.StageReply{}, errors.Wrap(ErrSimulatedOutage, string(req.Operation))
	}
	if !decision.Accept {
		return domain.StageReply{Reason: decision.Reason}, nil
	}
	return domain.StageReply{
		Accepted: true,
		Payload: map[string]interface{}{
			"operation":      string(req.Operation),
			"correlation_id": req.CorrelationID.String(),
		},
	}, nil
}
