package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestTelemetrySink_RecordsMetrics(t *testing.T) {
	reader := metricSDK.NewManualReader()
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(metricSDK.NewMeterProvider(metricSDK.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(previous) })

	ctx := context.Background()
	sink := NewTelemetrySink(nil)
	entry := domain.NewDeadLetterEntry(models.GenerateUUID(), "PaymentFailed", domain.OperationAuthorizePayment,
		models.GenerateUUID(), "timeout", 3, time.Now())

	sink.StageCompleted(ctx, domain.OperationReserveInventory, domain.OutcomeSuccess, 20*time.Millisecond)
	sink.StageCompleted(ctx, domain.OperationAuthorizePayment, domain.OutcomeUnavailable, time.Second)
	sink.SagaFinished(ctx, domain.OrderStatusFailed, domain.StagePayment)
	sink.DeadLetterEnqueued(ctx, entry)
	sink.DeadLetterSettled(ctx, entry, domain.DeadLetterStatusResolved)
	sink.DegradedRead(ctx, "event_log", errors.New("connection reset"))
	sink.SweepFinished(ctx, 7, 0)
	sink.SweepFinished(ctx, 4, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	histograms := map[string]uint64{}
	gauges := map[string]float64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += dp.Value
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					gauges[m.Name] = dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms[m.Name] += dp.Count
				}
			}
		}
	}

	assert.Equal(t, int64(2), totals["saga_stage_attempts_total"])
	assert.Equal(t, uint64(2), histograms["saga_stage_duration_seconds"])
	assert.Equal(t, int64(1), totals["saga_runs_finished_total"])
	assert.Equal(t, int64(1), totals["saga_dead_letters_enqueued_total"])
	assert.Equal(t, int64(1), totals["saga_dead_letters_settled_total"])
	assert.Equal(t, int64(1), totals["saga_degraded_reads_total"])
	assert.Equal(t, int64(1), totals["saga_sweep_errors_total"])
	assert.Equal(t, 4.0, gauges["saga_dead_letters_eligible"], "the gauge holds the last sweep")
}
