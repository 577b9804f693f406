package telemetry

import (
	"context"
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
	"os"
)

const gzipCompressor = gzip.Name

// OTLP clients connect lazily, so none of these constructors block on an
// unreachable collector.

func newSpanExporter(ctx context.Context, cfg config.ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case config.ExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithCompressor(gzipCompressor),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(clientTLS()))
		}
		return otlptracegrpc.New(ctx, opts...)
	case config.ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case config.ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	case config.ExporterNone:
		return nil, nil
	}
	return nil, fmt.Errorf("traces exporter %q: %w", cfg.Exporter, config.ErrUnknownExporter)
}

func newMetricExporter(ctx context.Context, cfg config.ExporterConfig) (sdkmetric.Exporter, error) {
	switch cfg.Exporter {
	case config.ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithCompressor(gzipCompressor),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		} else {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(clientTLS()))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case config.ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case config.ExporterStdout:
		return stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
	case config.ExporterNone:
		return nil, nil
	}
	return nil, fmt.Errorf("metrics exporter %q: %w", cfg.Exporter, config.ErrUnknownExporter)
}

func newLogExporter(ctx context.Context, cfg config.ExporterConfig) (sdklog.Exporter, error) {
	switch cfg.Exporter {
	case config.ExporterOTLPGRPC:
		opts := []otlploggrpc.Option{
			otlploggrpc.WithEndpoint(cfg.Endpoint),
			otlploggrpc.WithCompressor(gzipCompressor),
		}
		if cfg.Insecure {
			opts = append(opts, otlploggrpc.WithInsecure())
		} else {
			opts = append(opts, otlploggrpc.WithTLSCredentials(clientTLS()))
		}
		return otlploggrpc.New(ctx, opts...)
	case config.ExporterOTLPHTTP:
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		return otlploghttp.New(ctx, opts...)
	case config.ExporterNone:
		return nil, nil
	}
	return nil, fmt.Errorf("logs exporter %q: %w", cfg.Exporter, config.ErrUnknownExporter)
}

func clientTLS() credentials.TransportCredentials {
	return credentials.NewClientTLSFromCert(nil, "")
}
