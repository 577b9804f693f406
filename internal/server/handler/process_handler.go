package handler

import (
	"context"
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// ProcessHandler creates a handler that runs a fixed batch of internal tasks.
// @Summary Process
// @Description Runs five internal tasks of increasing length, each in its own span.
// @Tags simulation
// @Produce json
// @Success 200 {object} ProcessResponseDTO "Tasks completed"
// @Router /process [get]
func ProcessHandler(
	tel *telemetry.Telemetry,
	rec *telemetry.Recorder,
	worker *work.Worker,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tel.StartSpan(r.Context(), processSpanName)
		defer span.End()
		start := time.Now()

		for index := 0; index < processTaskCount; index++ {
			err := runProcessTask(ctx, tel, rec, worker, index)
			if err != nil {
				abandonRequest(ctx, span, rec, RouteProcess, start, err, logger)
				return
			}
		}

		elapsed := time.Since(start)
		rec.Record(ctx, RouteProcess, elapsed, false)
		writeJSON(w, http.StatusOK, ProcessResponseDTO{
			Status:          "completed",
			TasksExecuted:   processTaskCount,
			DurationSeconds: elapsed.Seconds(),
		}, logger)
	}
}

func runProcessTask(
	ctx context.Context,
	tel *telemetry.Telemetry,
	rec *telemetry.Recorder,
	worker *work.Worker,
	index int,
) error {
	ctx, span := tel.StartSpan(
		ctx,
		fmt.Sprintf("task-%d", index),
		trace.WithAttributes(telemetry.AttrTaskIndex.Int(index)),
	)
	defer span.End()

	duration, err := worker.PerformTask(ctx, index)
	if err != nil {
		markSpanFailed(span, err)
		return err
	}
	rec.TaskExecuted(ctx)
	worker.GenerateLogs(ctx, index, duration)
	return nil
}
