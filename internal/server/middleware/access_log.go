package middleware

import (
	"github.com/Gallegarmy/monitorizacion-champagne/internal/logging"
	"go.uber.org/zap"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// AccessLog writes one entry per request once the handler returns. A handler
// that wrote nothing, such as one whose client went away, is logged as
// abandoned with no status code.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			requestID, _ := GetRequestIDFromContext(r.Context())
			fields := []zap.Field{
				zap.String("http.method", r.Method),
				zap.String("http.path", r.URL.Path),
				zap.Duration("http.duration", time.Since(start)),
				zap.String("http.request_id", requestID),
			}
			if recorder.status == 0 {
				fields = append(fields, zap.Bool("http.abandoned", true))
			} else {
				fields = append(fields, zap.Int("http.status_code", recorder.status))
			}
			logging.WithTrace(r.Context(), logger).Info("Request handled", fields...)
		})
	}
}
