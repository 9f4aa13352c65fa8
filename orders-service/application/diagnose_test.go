package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/orders-service/infrastructure"
	"github.com/draftea/order-saga/orders-service/mocks"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type droppingDispatcher struct{}

func (droppingDispatcher) Dispatch(context.Context, func(context.Context)) error {
	return nil
}

func TestDiagnose_Execute(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(t *testing.T, f *sagaFixture) models.ID
		validateResult func(t *testing.T, d *Diagnosis)
	}{
		{
			name: "completed order",
			setup: func(t *testing.T, f *sagaFixture) models.ID {
				return f.create(t)
			},
			validateResult: func(t *testing.T, d *Diagnosis) {
				assert.False(t, d.IsStuck)
				assert.Equal(t, "none", d.ExpectedNextStep)
				assert.Equal(t, "no action required", d.Recommendation)
				assert.Equal(t, "OrderShipped", d.LastEventType)
				assert.False(t, d.ProjectionDrift)
				assert.False(t, d.Degraded)
			},
		},
		{
			name: "failed order waiting for the sweep",
			setup: func(t *testing.T, f *sagaFixture) models.ID {
				f.worker.then(domain.OperationAuthorizePayment, unavailable())
				return f.create(t)
			},
			validateResult: func(t *testing.T, d *Diagnosis) {
				assert.False(t, d.IsStuck)
				assert.Equal(t, domain.OrderStatusFailed, d.Status)
				assert.Equal(t, "retry authorize_payment", d.ExpectedNextStep)
				assert.Equal(t, 1, d.OpenDeadLetters)
				assert.Contains(t, d.Recommendation, "automatic retry is pending")
			},
		},
		{
			name: "processing order without progress is stuck",
			setup: func(t *testing.T, f *sagaFixture) models.ID {
				f.createOrder = NewCreateOrder(f.orders, f.orchestrator, droppingDispatcher{}, WithClock(f.clock.Now))
				id := f.create(t)
				f.clock.Advance(6 * time.Minute)
				return id
			},
			validateResult: func(t *testing.T, d *Diagnosis) {
				assert.True(t, d.IsStuck)
				assert.Equal(t, 6*time.Minute, d.TimeSinceLastEvent)
				assert.Equal(t, "reserve_inventory", d.ExpectedNextStep)
				assert.False(t, d.InFlight)
				assert.Contains(t, d.Recommendation, "no progress at inventory")
			},
		},
		{
			name: "processing order within the threshold is not stuck",
			setup: func(t *testing.T, f *sagaFixture) models.ID {
				f.createOrder = NewCreateOrder(f.orders, f.orchestrator, droppingDispatcher{}, WithClock(f.clock.Now))
				id := f.create(t)
				f.clock.Advance(4 * time.Minute)
				return id
			},
			validateResult: func(t *testing.T, d *Diagnosis) {
				assert.False(t, d.IsStuck)
				assert.Equal(t, "saga in progress", d.Recommendation)
			},
		},
		{
			name: "unconfirmed reservation is reported in flight",
			setup: func(t *testing.T, f *sagaFixture) models.ID {
				f.createOrder = NewCreateOrder(f.orders, f.orchestrator, droppingDispatcher{}, WithClock(f.clock.Now))
				id := f.create(t)
				_, err := f.dedup.CheckAndReserve(context.Background(), domain.DedupKey{
					EventType:     "InventoryReserved",
					OrderID:       id,
					CorrelationID: id,
				})
				require.NoError(t, err)
				f.clock.Advance(10 * time.Minute)
				return id
			},
			validateResult: func(t *testing.T, d *Diagnosis) {
				assert.True(t, d.IsStuck)
				assert.True(t, d.InFlight)
				assert.Contains(t, d.Recommendation, "check the inventory worker")
			},
		},
		{
			name: "stored state drifting from the event log",
			setup: func(t *testing.T, f *sagaFixture) models.ID {
				id := f.create(t)
				order := f.order(t, id)
				order.Status = domain.OrderStatusFailed
				order.Stage = domain.StageShipping
				require.NoError(t, f.orders.Save(context.Background(), order))
				return id
			},
			validateResult: func(t *testing.T, d *Diagnosis) {
				assert.True(t, d.ProjectionDrift)
				assert.Contains(t, d.Recommendation, "rebuild the order")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSagaFixture(t)
			id := tt.setup(t, f)

			d, err := f.diagnose.Execute(context.Background(), &DiagnoseQuery{OrderID: id.String()})

			require.NoError(t, err)
			assert.Equal(t, id, d.OrderID)
			tt.validateResult(t, d)
		})
	}
}

func TestDiagnose_FailsOpenOnDiagnosticReads(t *testing.T) {
	ctx := context.Background()
	orders := infrastructure.NewMemoryOrderRepository()
	order, err := domain.NewOrder(models.GenerateUUID(), "cust-1",
		[]domain.Item{{SKU: "sku-1", Quantity: 1, UnitPrice: decimal.NewFromInt(9)}}, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, order.Start(time.Now()))
	require.NoError(t, orders.Save(ctx, order))

	eventLog := mocks.NewMockEventLog(t)
	eventLog.EXPECT().ReadEvents(mock.Anything, order.ID).Return(nil, errors.New("timeout")).Once()
	deadLetters := mocks.NewMockDeadLetterRepository(t)
	deadLetters.EXPECT().List(mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	dedup := mocks.NewMockDedupStore(t)
	sink := newRecordingSink()

	uc := NewDiagnose(orders, eventLog, deadLetters, dedup, time.Minute, WithSink(sink))
	d, err := uc.Execute(ctx, &DiagnoseQuery{OrderID: order.ID.String()})

	require.NoError(t, err)
	assert.True(t, d.Degraded)
	assert.Equal(t, []string{"event_log", "dead_letters"}, sink.degraded)
	assert.Equal(t, domain.OrderStatusProcessing, d.Status)
}

func TestDiagnose_OrderReadFailureIsAnError(t *testing.T) {
	orders := mocks.NewMockOrderRepository(t)
	orders.EXPECT().FindByID(mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	uc := NewDiagnose(orders, mocks.NewMockEventLog(t), mocks.NewMockDeadLetterRepository(t), mocks.NewMockDedupStore(t), 0)
	_, err := uc.Execute(context.Background(), &DiagnoseQuery{OrderID: models.GenerateUUID().String()})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find order")
}

func TestRebuildOrder_Execute(t *testing.T) {
	f := newSagaFixture(t)
	ctx := context.Background()
	f.worker.then(domain.OperationShipOrder, reject("embargoed"))
	id := f.create(t)

	order := f.order(t, id)
	order.Status = domain.OrderStatusProcessing
	order.Stage = domain.StageInventory
	require.NoError(t, f.orders.Save(ctx, order))

	resp, err := f.rebuild.Execute(ctx, &RebuildOrderCommand{OrderID: id.String()})
	require.NoError(t, err)

	assert.True(t, resp.Changed)
	assert.Equal(t, domain.Projection{Status: domain.OrderStatusFailed, Stage: domain.StageShipping}, resp.After)
	assert.True(t, f.order(t, id).FailedAt(domain.StageShipping))

	again, err := f.rebuild.Execute(ctx, &RebuildOrderCommand{OrderID: id.String()})
	require.NoError(t, err)
	assert.False(t, again.Changed)

	_, err = f.rebuild.Execute(ctx, &RebuildOrderCommand{OrderID: models.GenerateUUID().String()})
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}
