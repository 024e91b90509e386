package middleware

import (
	"net/http"

	"github.com/google/uuid"

	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

const RequestIDHeader = "X-Request-Id"

// RequestID propagates the caller's X-Request-Id, or a fresh uuid, into the
// logger context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := logger.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
