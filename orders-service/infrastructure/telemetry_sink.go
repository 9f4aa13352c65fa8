package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// TelemetrySink records saga measurements as OTel metrics
type TelemetrySink struct {
	logger *slog.Logger
}

func NewTelemetrySink(logger *slog.Logger) *TelemetrySink {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelemetrySink{logger: logger}
}

func (s *TelemetrySink) StageCompleted(ctx context.Context, op domain.Operation, kind domain.OutcomeKind, latency time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", string(op)),
		attribute.String("outcome", string(kind)),
	}
	telemetry.RecordCounter(ctx, "saga_stage_attempts_total", "Stage and compensation attempts by outcome", 1, attrs...)
	telemetry.RecordHistogram(ctx, "saga_stage_duration_seconds", "Stage worker latency", latency.Seconds(), attrs...)
}

func (s *TelemetrySink) SagaFinished(ctx context.Context, status domain.OrderStatus, stage domain.Stage) {
	telemetry.RecordCounter(ctx, "saga_runs_finished_total", "Saga runs that reached a resting state", 1,
		attribute.String("status", string(status)),
		attribute.String("stage", string(stage)),
	)
}

func (s *TelemetrySink) DeadLetterEnqueued(ctx context.Context, entry *domain.DeadLetterEntry) {
	telemetry.RecordCounter(ctx, "saga_dead_letters_enqueued_total", "Dead letter entries created or refreshed", 1,
		attribute.String("operation", string(entry.Operation)),
		attribute.String("event_type", entry.EventType),
	)
}

func (s *TelemetrySink) DeadLetterSettled(ctx context.Context, entry *domain.DeadLetterEntry, status domain.DeadLetterStatus) {
	telemetry.RecordCounter(ctx, "saga_dead_letters_settled_total", "Dead letter entries moved to a terminal status", 1,
		attribute.String("operation", string(entry.Operation)),
		attribute.String("status", string(status)),
	)
}

func (s *TelemetrySink) SweepFinished(ctx context.Context, eligible, errored int) {
	telemetry.RecordGauge(ctx, "saga_dead_letters_eligible", "Dead letters eligible for automatic retry at the last sweep", float64(eligible))
	if errored > 0 {
		telemetry.RecordCounter(ctx, "saga_sweep_errors_total", "Dead letter retries that failed on storage", int64(errored))
	}
}

func (s *TelemetrySink) DegradedRead(ctx context.Context, source string, err error) {
	s.logger.WarnContext(ctx, "diagnostic read failed open", "source", source, "degraded", true, "error", err)
	telemetry.RecordCounter(ctx, "saga_degraded_reads_total", "Diagnostic reads that failed open", 1,
		attribute.String("source", source),
	)
}
