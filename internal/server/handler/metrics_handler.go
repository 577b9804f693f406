package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"net/http"
)

// MetricsHandler exposes the gathered metrics in the Prometheus text format.
// @Summary Metrics
// @Tags observability
// @Produce plain
// @Router /metrics [get]
func MetricsHandler(gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger.Named("promhttp")),
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func HealthHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponseDTO{Status: "ok"}, logger)
	}
}
