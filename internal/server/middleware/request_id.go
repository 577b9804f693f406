package middleware

import (
	"context"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"net/http"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID echoes the caller's X-Request-ID, or generates one, and tags the
// active span with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		trace.SpanFromContext(r.Context()).SetAttributes(telemetry.AttrRequestID.String(id))
		next.ServeHTTP(w, r.WithContext(PutRequestIDInContext(r.Context(), id)))
	})
}

func PutRequestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
