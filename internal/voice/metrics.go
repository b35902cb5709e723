package voice

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts pipeline activity through the global otel meter provider,
// exported to Prometheus by shared/observability.
type Metrics struct {
	chunks        metric.Int64Counter
	turns         metric.Int64Counter
	stageFailures metric.Int64Counter
}

// NewMetrics registers the pipeline instruments.
func NewMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter("talktolisten/backend/voice")

	chunks, _ := meter.Int64Counter("voice_chunks_total",
		metric.WithDescription("Audio chunks processed by the turn pipeline"))
	turns, _ := meter.Int64Counter("voice_turns_total",
		metric.WithDescription("Completed voice turns by outcome"))
	failures, _ := meter.Int64Counter("voice_stage_failures_total",
		metric.WithDescription("Pipeline stage failures by stage"))

	return &Metrics{chunks: chunks, turns: turns, stageFailures: failures}
}

func (m *Metrics) recordChunk(ctx context.Context) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, 1)
}

func (m *Metrics) recordTurn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) recordFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.stageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
