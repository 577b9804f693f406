package handler

import (
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// ComputeHandler creates a handler that runs a caller-chosen number of tasks.
// @Summary Compute
// @Description Runs count simulated tasks, each one to three task units long.
// @Tags simulation
// @Produce json
// @Param count query int false "Number of iterations" default(10)
// @Success 200 {object} ComputeResponseDTO "Compute finished"
// @Failure 422 {object} ErrorMessage "Invalid count"
// @Router /compute [get]
func ComputeHandler(
	tel *telemetry.Telemetry,
	rec *telemetry.Recorder,
	worker *work.Worker,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := parseCount(r)
		if err != nil {
			logger.Info("Rejected compute request", zap.String("count", r.URL.Query().Get("count")))
			HttpError(w, err.Error(), http.StatusUnprocessableEntity, logger)
			return
		}

		start := time.Now()
		ctx, span := tel.StartSpan(
			r.Context(),
			computeSpanName,
			trace.WithAttributes(telemetry.AttrComputeCount.Int(count)),
		)
		defer span.End()

		for i := 0; i < count; i++ {
			_, err := worker.PerformTask(ctx, worker.RandomTaskIndex())
			if err != nil {
				abandonRequest(ctx, span, rec, RouteCompute, start, err, logger)
				return
			}
		}

		elapsed := time.Since(start)
		rec.Record(ctx, RouteCompute, elapsed, false)
		writeJSON(w, http.StatusOK, ComputeResponseDTO{
			Status:          "compute done",
			Iterations:      count,
			DurationSeconds: elapsed.Seconds(),
		}, logger)
	}
}
