package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/orders-service/mocks"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSimulatedWorker_Invoke(t *testing.T) {
	rates := map[domain.Operation]float64{domain.OperationAuthorizePayment: 0.5}

	tests := []struct {
		name           string
		decide         DecisionFunc
		latency        time.Duration
		operation      domain.Operation
		expectedError  error
		validateResult func(t *testing.T, reply domain.StageReply)
	}{
		{
			name:      "default accepts",
			operation: domain.OperationReserveInventory,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.True(t, reply.Accepted)
				assert.Equal(t, "reserve_inventory", reply.Payload["operation"])
			},
		},
		{
			name:      "roll under the rate rejects",
			decide:    RandomRejections(rates, func() float64 { return 0.2 }),
			operation: domain.OperationAuthorizePayment,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.False(t, reply.Accepted)
				assert.Equal(t, "payment declined", reply.Reason)
			},
		},
		{
			name:      "roll over the rate accepts",
			decide:    RandomRejections(rates, func() float64 { return 0.7 }),
			operation: domain.OperationAuthorizePayment,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.True(t, reply.Accepted)
			},
		},
		{
			name:      "operation without a rate accepts",
			decide:    RandomRejections(rates, func() float64 { return 0 }),
			operation: domain.OperationShipOrder,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.True(t, reply.Accepted)
			},
		},
		{
			name: "outage",
			decide: func(domain.StageRequest) Decision {
				return Decision{Unavailable: true}
			},
			operation:     domain.OperationRefundPayment,
			expectedError: ErrSimulatedOutage,
		},
		{
			name:          "latency beyond the deadline",
			latency:       time.Second,
			operation:     domain.OperationShipOrder,
			expectedError: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			reply, err := NewSimulatedWorker(tt.decide, tt.latency).Invoke(ctx, domain.StageRequest{
				Operation:     tt.operation,
				OrderID:       models.GenerateUUID(),
				CorrelationID: models.GenerateUUID(),
			})

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.validateResult(t, reply)
		})
	}
}

func TestRateLimitedWorker_Invoke(t *testing.T) {
	next := mocks.NewMockStageWorker(t)
	next.EXPECT().Invoke(mock.Anything, mock.Anything).Return(domain.StageReply{Accepted: true}, nil).Once()

	worker := NewRateLimitedWorker(next, 0.001, 1)

	reply, err := worker.Invoke(context.Background(), domain.StageRequest{Operation: domain.OperationShipOrder})
	require.NoError(t, err)
	assert.True(t, reply.Accepted)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = worker.Invoke(ctx, domain.StageRequest{Operation: domain.OperationShipOrder})
	assert.Error(t, err)
}
