package handler

import (
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// ErrorHandler creates a handler that always fails, to exercise error telemetry.
// @Summary Error
// @Description Returns the simulated failure after recording it on metrics, span and logs.
// @Tags simulation
// @Produce json
// @Failure 500 {object} ErrorMessage "Simulated error for testing"
// @Router /error [get]
func ErrorHandler(
	rec *telemetry.Recorder,
	worker *work.Worker,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		err := work.SimulateFailure()
		rec.Record(ctx, RouteError, time.Since(start), true)
		markSpanFailed(trace.SpanFromContext(ctx), err)
		worker.GenerateLogs(ctx, -1, 0)

		HttpError(w, err.Error(), http.StatusInternalServerError, logger)
	}
}
