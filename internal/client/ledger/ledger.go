// Package ledger talks to the remote ledger endpoints: price reads,
// transaction broadcast and liveness probes.
package ledger

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
)

const maxBodyBytes = 1 << 20

// EndpointSource yields the endpoint currently selected by the health monitor.
type EndpointSource interface {
	Current() models.Endpoint
}

func newBreaker[T any](name string, cfg config.CircuitBreakerConfig, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: isSuccessful,
	})
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func readBody(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, maxBodyBytes))
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
