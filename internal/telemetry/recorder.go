package telemetry

import (
	"context"
	"go.opentelemetry.io/otel/metric"
	"time"
)

// Recorder records the RED metrics of a route plus the internal task counter.
type Recorder struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	tasks    metric.Int64Counter
}

// NewRecorder seeds the counters of every route in routes, and the task
// counter, with zero so a scrape lists them before their first increment.
func NewRecorder(t *Telemetry, routes ...string) *Recorder {
	r := &Recorder{
		requests: t.Counter(RequestsTotalName),
		errors:   t.Counter(ErrorsTotalName),
		duration: t.Histogram(RequestDurationName),
		tasks:    t.Counter(TasksExecutedName),
	}
	ctx := context.Background()
	r.tasks.Add(ctx, 0)
	for _, route := range routes {
		attrs := metric.WithAttributes(AttrRoute.String(route))
		r.requests.Add(ctx, 0, attrs)
		r.errors.Add(ctx, 0, attrs)
	}
	return r
}

// Record adds one duration observation and one request to route, plus one
// error when failed is set.
func (r *Recorder) Record(ctx context.Context, route string, elapsed time.Duration, failed bool) {
	attrs := metric.WithAttributes(AttrRoute.String(route))
	r.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	r.requests.Add(ctx, 1, attrs)
	if failed {
		r.errors.Add(ctx, 1, attrs)
	}
}

func (r *Recorder) TaskExecuted(ctx context.Context) {
	r.tasks.Add(ctx, 1)
}
