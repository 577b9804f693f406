package handler

import (
	"context"
	"errors"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/logging"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"net/http"
	"strconv"
	"time"
)

const (
	RouteProcess      = "/process"
	RouteCompute      = "/compute"
	RouteError        = "/error"
	RouteExternalCall = "/external-call"
	RouteMetrics      = "/metrics"
	RouteHealth       = "/healthz"
)

// InstrumentedRoutes are the routes that record request metrics.
var InstrumentedRoutes = []string{RouteProcess, RouteCompute, RouteError, RouteExternalCall}

const (
	processSpanName      = "process-endpoint"
	computeSpanName      = "compute-endpoint"
	externalCallSpanName = "external-call"
	processTaskCount     = 5
	defaultComputeCount  = 10
)

var ErrInvalidCount = errors.New("count must be a non-negative integer")

func externalResultToDTO(result work.ExternalResult) ExternalResultDTO {
	return ExternalResultDTO{
		LatencySeconds: result.Latency.Seconds(),
		Result:         result.Result,
	}
}

func parseCount(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return defaultComputeCount, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0, ErrInvalidCount
	}
	return count, nil
}

func markSpanFailed(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// abandonRequest closes out a request whose client went away mid-work. The
// request still counts, as an error, and nothing more is written.
func abandonRequest(
	ctx context.Context,
	span trace.Span,
	rec *telemetry.Recorder,
	route string,
	start time.Time,
	err error,
	logger *zap.Logger,
) {
	markSpanFailed(span, err)
	rec.Record(context.WithoutCancel(ctx), route, time.Since(start), true)
	logging.WithTrace(ctx, logger).Warn(
		"Request abandoned before completion",
		zap.String("route", route),
		zap.Error(err),
	)
}
