package handler

import (
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// ExternalCallHandler creates a handler that simulates a call to a slow dependency.
// @Summary External call
// @Description Waits a random latency between 50ms and 200ms and returns it.
// @Tags simulation
// @Produce json
// @Success 200 {object} ExternalCallResponseDTO "Dependency answered"
// @Router /external-call [get]
func ExternalCallHandler(
	tel *telemetry.Telemetry,
	rec *telemetry.Recorder,
	worker *work.Worker,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tel.StartSpan(r.Context(), externalCallSpanName)
		defer span.End()

		result, err := worker.SimulateExternalCall(ctx)
		if err != nil {
			abandonRequest(ctx, span, rec, RouteExternalCall, start, err, logger)
			return
		}

		elapsed := time.Since(start)
		rec.Record(ctx, RouteExternalCall, elapsed, false)
		writeJSON(w, http.StatusOK, ExternalCallResponseDTO{
			Status:          "external result",
			Data:            externalResultToDTO(result),
			DurationSeconds: elapsed.Seconds(),
		}, logger)
	}
}
