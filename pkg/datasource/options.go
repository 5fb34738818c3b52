package datasource

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/goliatone/go-viewstate/pkg/filter"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache enables result caching.
func WithCache(cache Cache) Option {
	return func(p *Pipeline) {
		p.cache = cache
	}
}

// WithEvaluator sets the evaluator used for filter expressions on tabular
// results.
func WithEvaluator(evaluator filter.Evaluator) Option {
	return func(p *Pipeline) {
		if evaluator != nil {
			p.evaluator = evaluator
		}
	}
}

// WithLogger routes pipeline events to logger.
func WithLogger(logger Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMeterProvider records metrics on provider instead of the global one.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(p *Pipeline) {
		p.meterProvider = provider
	}
}

// WithClock overrides time.Now for durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
