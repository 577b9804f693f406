package router

import (
	"github.com/Gallegarmy/monitorizacion-champagne/internal/server/handler"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/server/middleware"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
	"net/http"
)
import "github.com/gorilla/mux"

func CreateRouter(
	serviceName string,
	tel *telemetry.Telemetry,
	worker *work.Worker,
	metricsHandler http.Handler,
	logger *zap.Logger,
) http.Handler {
	rec := telemetry.NewRecorder(tel, handler.InstrumentedRoutes...)
	r := mux.NewRouter()
	r.Use(
		otelmux.Middleware(
			serviceName,
			otelmux.WithTracerProvider(tel.TracerProvider()),
			otelmux.WithPropagators(tel.Propagator()),
		),
		middleware.RequestID,
		middleware.AccessLog(logger),
	)

	r.Handle(handler.RouteProcess, handler.ProcessHandler(tel, rec, worker, logger)).Methods("GET")
	r.Handle(handler.RouteCompute, handler.ComputeHandler(tel, rec, worker, logger)).Methods("GET")
	r.Handle(handler.RouteError, handler.ErrorHandler(rec, worker, logger)).Methods("GET")
	r.Handle(handler.RouteExternalCall, handler.ExternalCallHandler(tel, rec, worker, logger)).Methods("GET")
	r.Handle(handler.RouteMetrics, metricsHandler).Methods("GET")
	r.Handle(handler.RouteHealth, handler.HealthHandler(logger)).Methods("GET")

	r.NotFoundHandler = handler.NotFoundHandler(logger)
	return r
}
