// Package telemetrytest provides an in-process OTLP collector for tests.
package telemetrytest

import (
	"context"
	"encoding/hex"
	"fmt"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	logsv1 "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcev1 "go.opentelemetry.io/proto/otlp/resource/v1"
	tracev1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
	"net"
	"sync"
	"testing"
)

const unknownServiceName = "Never Assigned"

type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	ServiceName  string
	Name         string
	Attributes   map[string]string
	Events       []SpanEvent
}

type SpanEvent struct {
	Name       string
	Attributes map[string]string
}

type LogRecord struct {
	ServiceName string
	Severity    string
	Message     string
	TraceID     string
	SpanID      string
	Attributes  map[string]string
}

// Collector accepts OTLP/gRPC trace and log exports and keeps everything it
// receives.
type Collector struct {
	endpoint string
	mu       sync.Mutex
	spans    []Span
	logs     []LogRecord
}

type traceReceiver struct {
	protoTrace.UnimplementedTraceServiceServer
	collector *Collector
}

type logReceiver struct {
	protoLogs.UnimplementedLogsServiceServer
	collector *Collector
}

// StartCollector serves a Collector on a loopback port until the test ends.
func StartCollector(t testing.TB) *Collector {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to listen for OTLP collector: %v", err)
	}

	collector := &Collector{endpoint: listener.Addr().String()}
	srv := grpc.NewServer()
	protoTrace.RegisterTraceServiceServer(srv, &traceReceiver{collector: collector})
	protoLogs.RegisterLogsServiceServer(srv, &logReceiver{collector: collector})
	go func() {
		_ = srv.Serve(listener)
	}()
	t.Cleanup(srv.Stop)
	return collector
}

func (c *Collector) Endpoint() string {
	return c.endpoint
}

func (c *Collector) Spans() []Span {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Span(nil), c.spans...)
}

func (c *Collector) SpanNames() []string {
	spans := c.Spans()
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name
	}
	return names
}

func (c *Collector) Logs() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogRecord(nil), c.logs...)
}

func (tr *traceReceiver) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	var received []Span
	for _, resourceSpan := range req.ResourceSpans {
		received = append(received, getTypedSpans(resourceSpan, getServiceName(resourceSpan.Resource))...)
	}

	tr.collector.mu.Lock()
	tr.collector.spans = append(tr.collector.spans, received...)
	tr.collector.mu.Unlock()
	return &protoTrace.ExportTraceServiceResponse{}, nil
}

func (lr *logReceiver) Export(
	ctx context.Context,
	req *protoLogs.ExportLogsServiceRequest,
) (*protoLogs.ExportLogsServiceResponse, error) {
	var received []LogRecord
	for _, resourceLogs := range req.ResourceLogs {
		serviceName := getServiceName(resourceLogs.Resource)
		for _, scopeLogs := range resourceLogs.ScopeLogs {
			for _, record := range scopeLogs.LogRecords {
				received = append(received, getTypedLog(record, serviceName))
			}
		}
	}

	lr.collector.mu.Lock()
	lr.collector.logs = append(lr.collector.logs, received...)
	lr.collector.mu.Unlock()
	return &protoLogs.ExportLogsServiceResponse{}, nil
}

func getServiceName(res *resourcev1.Resource) string {
	if res == nil {
		return unknownServiceName
	}
	for _, attr := range res.Attributes {
		if attr.Key == "service.name" {
			return attr.Value.GetStringValue()
		}
	}
	return unknownServiceName
}

func getTypedSpans(resourceSpan *tracev1.ResourceSpans, serviceName string) []Span {
	var typedSpans []Span
	for _, scopeSpans := range resourceSpan.ScopeSpans {
		for _, span := range scopeSpans.Spans {
			typedSpans = append(typedSpans, getTypedSpan(span, serviceName))
		}
	}
	return typedSpans
}

func getTypedSpan(span *tracev1.Span, serviceName string) Span {
	events := make([]SpanEvent, len(span.Events))
	for i, event := range span.Events {
		events[i] = SpanEvent{
			Name:       event.Name,
			Attributes: getAttributes(event.Attributes),
		}
	}
	return Span{
		TraceID:      hex.EncodeToString(span.TraceId),
		SpanID:       hex.EncodeToString(span.SpanId),
		ParentSpanID: hex.EncodeToString(span.ParentSpanId),
		ServiceName:  serviceName,
		Name:         span.Name,
		Attributes:   getAttributes(span.Attributes),
		Events:       events,
	}
}

func getTypedLog(record *logsv1.LogRecord, serviceName string) LogRecord {
	return LogRecord{
		ServiceName: serviceName,
		Severity:    getSeverity(record.SeverityNumber),
		Message:     getValue(record.Body),
		TraceID:     hex.EncodeToString(record.TraceId),
		SpanID:      hex.EncodeToString(record.SpanId),
		Attributes:  getAttributes(record.Attributes),
	}
}

func getSeverity(severityNumber logsv1.SeverityNumber) string {
	switch {
	case severityNumber == logsv1.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED:
		return "info"
	case severityNumber < logsv1.SeverityNumber_SEVERITY_NUMBER_INFO:
		return "debug"
	case severityNumber < logsv1.SeverityNumber_SEVERITY_NUMBER_WARN:
		return "info"
	case severityNumber < logsv1.SeverityNumber_SEVERITY_NUMBER_ERROR:
		return "warn"
	default:
		return "error"
	}
}

func getAttributes(attributes []*commonv1.KeyValue) map[string]string {
	result := make(map[string]string, len(attributes))
	for _, attribute := range attributes {
		result[attribute.Key] = getValue(attribute.Value)
	}
	return result
}

func getValue(value *commonv1.AnyValue) string {
	if value == nil {
		return ""
	}
	switch v := value.GetValue().(type) {
	case *commonv1.AnyValue_StringValue:
		return v.StringValue
	case *commonv1.AnyValue_IntValue:
		return fmt.Sprintf("%d", v.IntValue)
	case *commonv1.AnyValue_BoolValue:
		return fmt.Sprintf("%t", v.BoolValue)
	case *commonv1.AnyValue_DoubleValue:
		return fmt.Sprintf("%g", v.DoubleValue)
	default:
		return value.String()
	}
}
