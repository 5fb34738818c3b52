// Package telemetry bootstraps the OpenTelemetry meter provider used by
// data-source pipelines (metrics only).
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"

	"github.com/goliatone/go-viewstate/pkg/config"
)

const serviceVersion = "0.1.0"

// Config defines the exporter settings.
type Config struct {
	OTLPEndpoint   string
	OTLPInsecure   bool
	ServiceName    string
	MetricInterval time.Duration

	// Reader replaces the OTLP exporter; tests pass a ManualReader.
	Reader sdkmetric.Reader
}

// FromConfig maps the telemetry section of the runtime configuration.
func FromConfig(cfg config.TelemetryConfig) Config {
	return Config{
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   cfg.Insecure,
		ServiceName:    cfg.ServiceName,
		MetricInterval: 30 * time.Second,
	}
}

// Enabled reports whether metrics are collected at all.
func (c Config) Enabled() bool {
	return c.Reader != nil || strings.TrimSpace(c.OTLPEndpoint) != ""
}

// Provider owns the SDK meter provider, or nothing when disabled.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
}

// NewProvider builds the meter provider. A disabled config yields a Provider
// that hands out the global (no-op by default) meter provider.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		return &Provider{}, nil
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	reader := cfg.Reader
	if reader == nil {
		reader, err = newPeriodicReader(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(histogramViews()...),
	)
	return &Provider{meterProvider: mp}, nil
}

// MeterProvider is what pipelines take through datasource.WithMeterProvider.
func (p *Provider) MeterProvider() metric.MeterProvider {
	if p == nil || p.meterProvider == nil {
		return otel.GetMeterProvider()
	}
	return p.meterProvider
}

// Meter returns a meter with the given name.
func (p *Provider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return p.MeterProvider().Meter(name, opts...)
}

// Shutdown flushes and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter: %w", err)
	}
	return nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "viewstate"
	}
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
	)
}

func newPeriodicReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(stripScheme(cfg.OTLPEndpoint)),
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

// histogramViews sets select latency buckets from 1ms to 10s.
func histogramViews() []sdkmetric.View {
	return []sdkmetric.View{
		sdkmetric.NewView(
			sdkmetric.Instrument{
				Name: "viewstate_datasource_select_duration_seconds",
				Kind: sdkmetric.InstrumentKindHistogram,
			},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
			},
		),
	}
}

func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return endpoint
}
