// Package telemetry provides Prometheus-exported OpenTelemetry metrics for
// the play engine.
//
// Usage:
//
//	p, shutdown, err := telemetry.Init(ctx, &telemetry.Config{
//	    ServiceName:    "play-engine",
//	    ServiceVersion: "1.0.0",
//	    Environment:    "production",
//	    Enabled:        true,
//	})
//	defer shutdown(context.Background())
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // "development", "staging", "production"
	Enabled        bool
}

// Provider holds the meter and the instruments the engine records on.
type Provider struct {
	meter         metric.Meter
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry

	PlayVerdicts   metric.Int64Counter
	RewardOutcomes metric.Int64Counter
	BudgetReserves metric.Int64Counter
	BytesDelivered metric.Int64Counter
}

// ShutdownFunc flushes and shuts down the telemetry provider.
type ShutdownFunc func(context.Context) error

// Init initialises the metric provider. When disabled, a noop provider is
// returned and nothing is exported.
func Init(ctx context.Context, cfg *Config) (*Provider, ShutdownFunc, error) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if !cfg.Enabled {
		p := &Provider{meter: noop.NewMeterProvider().Meter(cfg.ServiceName)}
		if err := p.initInstruments(); err != nil {
			return nil, nil, err
		}
		return p, func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
			attribute.String("service.namespace", "tunelease"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build otel resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	p := &Provider{
		meter:         mp.Meter(cfg.ServiceName),
		meterProvider: mp,
		registry:      registry,
	}
	if err := p.initInstruments(); err != nil {
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return mp.Shutdown(ctx)
	}
	return p, shutdown, nil
}

func (p *Provider) initInstruments() error {
	var err error

	p.PlayVerdicts, err = p.meter.Int64Counter("play_verdicts_total",
		metric.WithDescription("Terminal play-session verdicts by kind"))
	if err != nil {
		return err
	}

	p.RewardOutcomes, err = p.meter.Int64Counter("reward_outcomes_total",
		metric.WithDescription("Reward codes written to play records"))
	if err != nil {
		return err
	}

	p.BudgetReserves, err = p.meter.Int64Counter("budget_reserves_total",
		metric.WithDescription("Monthly budget reservation attempts by outcome"))
	if err != nil {
		return err
	}

	p.BytesDelivered, err = p.meter.Int64Counter("stream_bytes_delivered_total",
		metric.WithDescription("Audio bytes delivered to streaming clients"))
	if err != nil {
		return err
	}

	return nil
}

// CountVerdict records a terminal verdict.
func (p *Provider) CountVerdict(ctx context.Context, verdict string) {
	p.PlayVerdicts.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

// CountReward records a reward code outcome.
func (p *Provider) CountReward(ctx context.Context, code string) {
	p.RewardOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// CountReserve records a budget reservation outcome.
func (p *Provider) CountReserve(ctx context.Context, outcome string) {
	p.BudgetReserves.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Handler returns the /metrics HTTP handler. Returns a 404 handler when
// telemetry is disabled.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
