package telemetrytest

import (
	"context"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"testing"
)

func FindMetric(t testing.TB, reader sdkmetric.Reader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("unable to collect metrics: %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// CounterValue adds up the data points of an int64 counter whose attributes
// contain every one of attrs.
func CounterValue(t testing.TB, reader sdkmetric.Reader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	m, found := FindMetric(t, reader, name)
	if !found {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, not an int64 sum", name, m.Data)
	}
	var total int64
	for _, point := range sum.DataPoints {
		if hasAttributes(point.Attributes, attrs) {
			total += point.Value
		}
	}
	return total
}

// HistogramStats returns the observation count and sum of a float64 histogram
// across the data points whose attributes contain every one of attrs.
func HistogramStats(t testing.TB, reader sdkmetric.Reader, name string, attrs ...attribute.KeyValue) (uint64, float64) {
	t.Helper()
	m, found := FindMetric(t, reader, name)
	if !found {
		return 0, 0
	}
	histogram, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric %s is %T, not a float64 histogram", name, m.Data)
	}
	var count uint64
	var sum float64
	for _, point := range histogram.DataPoints {
		if hasAttributes(point.Attributes, attrs) {
			count += point.Count
			sum += point.Sum
		}
	}
	return count, sum
}

func hasAttributes(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, attr := range attrs {
		value, found := set.Value(attr.Key)
		if !found || value != attr.Value {
			return false
		}
	}
	return true
}
