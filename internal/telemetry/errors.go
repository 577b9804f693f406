package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"time"
)

const diagnosticSampleWindow = time.Minute

// NewErrorHandler reports failures of the telemetry pipeline itself (an
// unreachable collector, a rejected export) on a dedicated "otel" logger. The
// sampler keys on the entry message, which carries the error text, so at most
// one entry per distinct error is written per window.
func NewErrorHandler(logger *zap.Logger) otel.ErrorHandler {
	diagnostics := logger.Named("otel").WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, diagnosticSampleWindow, 1, 0)
	}))
	return otel.ErrorHandlerFunc(func(err error) {
		diagnostics.Warn("Telemetry pipeline error: "+err.Error(), zap.Error(err))
	})
}
