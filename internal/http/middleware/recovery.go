package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error(r.Context(), "panic recovered in HTTP handler",
					zap.String("panic", fmt.Sprintf("%v", recovered)),
					zap.String("path", r.URL.Path))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
