package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDispatcher(t *testing.T) {
	t.Run("rejects work beyond its slots", func(t *testing.T) {
		d := NewPoolDispatcher(1, nil)
		release := make(chan struct{})
		started := make(chan struct{})

		require.NoError(t, d.Dispatch(context.Background(), func(context.Context) {
			close(started)
			<-release
		}))
		<-started

		err := d.Dispatch(context.Background(), func(context.Context) {})
		assert.True(t, errors.Is(err, ErrDispatcherSaturated))
		assert.Equal(t, 1, d.InFlight())

		close(release)
		require.NoError(t, d.Shutdown(context.Background()))
		assert.Zero(t, d.InFlight())
	})

	t.Run("runs detached from the caller's cancellation", func(t *testing.T) {
		d := NewPoolDispatcher(2, nil)
		ctx, cancel := context.WithCancel(context.Background())
		seen := make(chan error, 1)

		require.NoError(t, d.Dispatch(ctx, func(runCtx context.Context) {
			cancel()
			seen <- runCtx.Err()
		}))

		assert.NoError(t, <-seen)
		require.NoError(t, d.Shutdown(context.Background()))
	})

	t.Run("refuses work after shutdown", func(t *testing.T) {
		d := NewPoolDispatcher(1, nil)
		require.NoError(t, d.Shutdown(context.Background()))

		err := d.Dispatch(context.Background(), func(context.Context) {})
		assert.True(t, errors.Is(err, ErrDispatcherClosed))
	})

	t.Run("shutdown gives up when the deadline passes", func(t *testing.T) {
		d := NewPoolDispatcher(1, nil)
		release := make(chan struct{})
		defer close(release)
		require.NoError(t, d.Dispatch(context.Background(), func(context.Context) { <-release }))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Error(t, d.Shutdown(ctx))
	})
}

func TestStageExecutor_Execute(t *testing.T) {
	order, err := domain.NewOrder(models.GenerateUUID(), "cust-1",
		[]domain.Item{{SKU: "sku-1", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}, "", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name           string
		step           step
		expectedKind   domain.OutcomeKind
		expectedReason string
	}{
		{
			name:         "accepted",
			step:         step{reply: domain.StageReply{Accepted: true, Payload: map[string]interface{}{"reservation_id": "r-1"}}},
			expectedKind: domain.OutcomeSuccess,
		},
		{
			name:           "rejected with reason",
			step:           reject("insufficient funds"),
			expectedKind:   domain.OutcomeDomainFailure,
			expectedReason: "insufficient funds",
		},
		{
			name:           "rejected without reason",
			step:           reject(""),
			expectedKind:   domain.OutcomeDomainFailure,
			expectedReason: "authorize_payment rejected",
		},
		{
			name:           "worker unreachable",
			step:           unavailable(),
			expectedKind:   domain.OutcomeUnavailable,
			expectedReason: "failed to invoke authorize_payment: connection refused",
		},
		{
			name:           "worker too slow",
			step:           slow(time.Second),
			expectedKind:   domain.OutcomeUnavailable,
			expectedReason: "authorize_payment did not answer within 50ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := newScriptedWorker().then(domain.OperationAuthorizePayment, tt.step)
			executor := NewStageExecutor(worker, 50*time.Millisecond)
			correlationID := models.GenerateUUID()

			outcome := executor.Execute(context.Background(), domain.OperationAuthorizePayment, order, correlationID)

			assert.Equal(t, tt.expectedKind, outcome.Kind)
			if tt.expectedReason != "" {
				assert.Contains(t, outcome.Reason, tt.expectedReason)
			}
			if tt.expectedKind == domain.OutcomeSuccess {
				assert.Equal(t, "r-1", outcome.Payload["reservation_id"])
			}
			requests := worker.requests()
			require.Len(t, requests, 1)
			assert.Equal(t, correlationID, requests[0].CorrelationID)
			assert.Equal(t, order.TotalAmount, requests[0].TotalAmount)
		})
	}
}
