package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	return hijacker.Hijack()
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		logger.Debug(ctx, "started HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		startTime := time.Now()

		next.ServeHTTP(recorder, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("took", time.Since(startTime)),
		}

		if recorder.status >= http.StatusInternalServerError {
			logger.Error(ctx, "finished HTTP request", fields...)
			return
		}
		logger.Info(ctx, "finished HTTP request", fields...)
	})
}
