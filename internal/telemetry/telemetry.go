package telemetry

import (
	"context"
	"fmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"sync"
)

const InstrumentationName = "github.com/Gallegarmy/monitorizacion-champagne"

// Telemetry holds the long-lived handles needed to create spans and record
// metrics. It is built once at startup and handed to whatever needs it.
// Instruments are process-wide singletons keyed by name.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
	tracer         trace.Tracer
	meter          metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

func New(
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	propagator propagation.TextMapPropagator,
) *Telemetry {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	if propagator == nil {
		propagator = NewPropagator()
	}
	return &Telemetry{
		tracerProvider: tp,
		propagator:     propagator,
		tracer:         tp.Tracer(InstrumentationName),
		meter:          mp.Meter(InstrumentationName),
		counters:       make(map[string]metric.Int64Counter),
		histograms:     make(map[string]metric.Float64Histogram),
	}
}

func NewPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

func (t *Telemetry) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// StartSpan begins a span nested under the span carried by ctx. The returned
// context carries the new span and must be passed to nested work; the caller
// ends the span.
func (t *Telemetry) StartSpan(
	ctx context.Context,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

func (t *Telemetry) Counter(name string) metric.Int64Counter {
	t.mu.RLock()
	counter, found := t.counters[name]
	t.mu.RUnlock()
	if found {
		return counter
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if counter, found = t.counters[name]; found {
		return counter
	}
	def := catalog[name]
	counter, err := t.meter.Int64Counter(
		name,
		metric.WithDescription(def.description),
		metric.WithUnit(def.unit),
	)
	if err != nil {
		otel.Handle(fmt.Errorf("unable to create counter %s: %w", name, err))
		counter = metricnoop.Int64Counter{}
	}
	t.counters[name] = counter
	return counter
}

func (t *Telemetry) Histogram(name string) metric.Float64Histogram {
	t.mu.RLock()
	histogram, found := t.histograms[name]
	t.mu.RUnlock()
	if found {
		return histogram
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if histogram, found = t.histograms[name]; found {
		return histogram
	}
	def := catalog[name]
	histogram, err := t.meter.Float64Histogram(
		name,
		metric.WithDescription(def.description),
		metric.WithUnit(def.unit),
	)
	if err != nil {
		otel.Handle(fmt.Errorf("unable to create histogram %s: %w", name, err))
		histogram = metricnoop.Float64Histogram{}
	}
	t.histograms[name] = histogram
	return histogram
}
