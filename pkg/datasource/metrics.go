package datasource

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/goliatone/go-viewstate/datasource"

type pipelineMetrics struct {
	selects      metric.Int64Counter
	cacheLookups metric.Int64Counter
	duration     metric.Float64Histogram
}

func newPipelineMetrics(provider metric.MeterProvider) *pipelineMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)
	m := &pipelineMetrics{}
	m.selects, _ = meter.Int64Counter("viewstate_datasource_selects_total",
		metric.WithDescription("Select calls by view and outcome"),
		metric.WithUnit("{select}"))
	m.cacheLookups, _ = meter.Int64Counter("viewstate_datasource_cache_lookups_total",
		metric.WithDescription("Cache lookups by view and result"),
		metric.WithUnit("{lookup}"))
	m.duration, _ = meter.Float64Histogram("viewstate_datasource_select_duration_seconds",
		metric.WithDescription("Select latency including count and post-processing"),
		metric.WithUnit("s"))
	return m
}

func (m *pipelineMetrics) recordSelect(ctx context.Context, view, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("view", view),
		attribute.String("outcome", outcome),
	)
	if m.selects != nil {
		m.selects.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("view", view)))
	}
}

func (m *pipelineMetrics) recordLookup(ctx context.Context, view string, hit bool) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("view", view),
		attribute.String("result", result),
	))
}
