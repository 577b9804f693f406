package handler

import (
	"encoding/json"
	"go.uber.org/zap"
	"net/http"
)

type ErrorMessage struct {
	Detail string `json:"detail"`
}

func HttpError(w http.ResponseWriter, message string, statusCode int, logger *zap.Logger) {
	writeJSON(w, statusCode, ErrorMessage{Detail: message}, logger)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		logger.Error("Failed to encode response body", zap.Error(err))
	}
}

// NotFoundHandler answers unknown routes with the same JSON error shape as the endpoints.
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		HttpError(w, "Not Found", http.StatusNotFound, logger)
	}
}
