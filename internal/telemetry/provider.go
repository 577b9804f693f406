package telemetry

import (
	"context"
	"errors"
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Providers owns the SDK side of the observability pipeline. LoggerProvider is
// nil when log export is disabled.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Propagator     propagation.TextMapPropagator
	Registry       *prometheus.Registry
}

// Setup builds the tracer, meter and logger providers described by cfg. Every
// exporter runs behind a batching processor or periodic reader, so exports never
// block the caller; their failures go to the otel error handler.
func Setup(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Providers, error) {
	otel.SetErrorHandler(NewErrorHandler(logger))

	res, err := newResource(ctx, cfg.Service)
	if err != nil {
		return nil, fmt.Errorf("unable to create resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg.Traces, res)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mp, err := newMeterProvider(ctx, cfg.Metrics, res, registry)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	lp, err := newLoggerProvider(ctx, cfg.Logs, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	logger.Info(
		"Telemetry pipeline initialised",
		zap.String("traces.exporter", cfg.Traces.Exporter),
		zap.String("metrics.exporter", cfg.Metrics.Exporter),
		zap.String("logs.exporter", cfg.Logs.Exporter),
	)
	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Propagator:     NewPropagator(),
		Registry:       registry,
	}, nil
}

// Shutdown flushes and stops every provider. It keeps going past failures and
// returns them joined.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to shut down tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to shut down meter provider: %w", err))
		}
	}
	if p.LoggerProvider != nil {
		if err := p.LoggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to shut down logger provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newResource(ctx context.Context, service config.ServiceConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(service.Name),
			semconv.ServiceVersion(service.Version),
		),
	)
}

func newTracerProvider(
	ctx context.Context,
	cfg config.ExporterConfig,
	res *resource.Resource,
) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	}
	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create trace exporter: %w", err)
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(
	ctx context.Context,
	cfg config.MetricsConfig,
	res *resource.Resource,
	registry prometheus.Registerer,
) (*sdkmetric.MeterProvider, error) {
	promReader, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithoutUnits(),
		otelprom.WithoutCounterSuffixes(),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create prometheus reader: %w", err)
	}
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promReader),
	}

	exporter, err := newMetricExporter(ctx, cfg.ExporterConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create metric exporter: %w", err)
	}
	if exporter != nil {
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval)),
		))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(
	ctx context.Context,
	cfg config.ExporterConfig,
	res *resource.Resource,
) (*sdklog.LoggerProvider, error) {
	exporter, err := newLogExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create log exporter: %w", err)
	}
	if exporter == nil {
		return nil, nil
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}
