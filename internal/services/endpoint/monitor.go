package endpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/metrics"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

type Prober interface {
	Probe(ctx context.Context, endpoint models.Endpoint) error
}

// Listener receives an endpoint whose status changed or that became current.
type Listener func(endpoint models.Endpoint, current bool)

// Monitor owns the liveness of a fixed set of endpoints and the selection
// of the current one. It only reports: an offline current endpoint stays
// selected until SwitchEndpoint is called.
type Monitor struct {
	mu        sync.RWMutex
	endpoints []models.Endpoint
	index     map[string]int
	current   int
	listeners []Listener

	refreshMu sync.Mutex
	prober    Prober
	interval  time.Duration
	timeout   time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewMonitor(
	endpoints []models.Endpoint,
	prober Prober,
	interval, timeout time.Duration,
	m *metrics.Metrics,
) (*Monitor, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("endpoint monitor: no endpoints configured")
	}

	monitor := &Monitor{
		endpoints: make([]models.Endpoint, 0, len(endpoints)),
		index:     make(map[string]int, len(endpoints)),
		prober:    prober,
		interval:  interval,
		timeout:   timeout,
		metrics:   m,
		now:       time.Now,
	}

	for _, endpoint := range endpoints {
		if _, ok := monitor.index[endpoint.URL]; ok {
			return nil, fmt.Errorf("endpoint monitor: duplicate endpoint %s", endpoint.URL)
		}
		endpoint.Status = models.EndpointStatusUnknown
		endpoint.CheckedAt = time.Time{}
		monitor.index[endpoint.URL] = len(monitor.endpoints)
		monitor.endpoints = append(monitor.endpoints, endpoint)
	}

	return monitor, nil
}

func (m *Monitor) Current() models.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.endpoints[m.current]
}

func (m *Monitor) Online() bool {
	return m.Current().Online()
}

func (m *Monitor) Endpoints() []models.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]models.Endpoint, len(m.endpoints))
	copy(snapshot, m.endpoints)

	return snapshot
}

func (m *Monitor) Subscribe(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
}

// SwitchEndpoint selects url as current and returns the resulting current
// endpoint. An url outside the configured set leaves the selection as is.
func (m *Monitor) SwitchEndpoint(url string) models.Endpoint {
	m.mu.Lock()
	position, ok := m.index[url]
	if !ok {
		current := m.endpoints[m.current]
		m.mu.Unlock()

		logger.Debug(context.Background(), "ignoring switch to unconfigured endpoint",
			zap.String("url", url),
			zap.String("current", current.URL))
		return current
	}

	changed := position != m.current
	m.current = position
	current := m.endpoints[position]
	listeners := m.listeners
	m.mu.Unlock()

	if changed {
		logger.Info(context.Background(), "current endpoint switched",
			zap.String("url", current.URL),
			zap.String("kind", string(current.Kind)),
			zap.Stringer("status", current.Status))
		notify(listeners, current, true)
	}

	return current
}

type probeResult struct {
	position int
	status   models.EndpointStatus
	err      error
}

// Refresh probes every endpoint concurrently and records the outcome. A
// failed probe marks the endpoint offline and is never returned.
func (m *Monitor) Refresh(ctx context.Context) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	endpoints := m.Endpoints()
	results := make([]probeResult, len(endpoints))

	group, groupCtx := errgroup.WithContext(ctx)
	for position, endpoint := range endpoints {
		group.Go(func() error {
			probeCtx, cancel := context.WithTimeout(groupCtx, m.timeout)
			defer cancel()

			result := probeResult{position: position, status: models.EndpointStatusOnline}
			if err := m.prober.Probe(probeCtx, endpoint); err != nil {
				result.status = models.EndpointStatusOffline
				result.err = err
			}
			results[position] = result
			return nil
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		return
	}

	m.apply(ctx, results)
}

type change struct {
	endpoint models.Endpoint
	current  bool
}

func (m *Monitor) apply(ctx context.Context, results []probeResult) {
	checkedAt := m.now().UTC()

	m.mu.Lock()
	var changes []change
	for _, result := range results {
		endpoint := &m.endpoints[result.position]
		previous := endpoint.Status
		endpoint.Status = result.status
		endpoint.CheckedAt = checkedAt

		isCurrent := result.position == m.current
		if previous != result.status {
			changes = append(changes, change{endpoint: *endpoint, current: isCurrent})
		}

		if m.metrics != nil {
			m.metrics.SetEndpointUp(endpoint.URL, string(endpoint.Kind), result.status == models.EndpointStatusOnline)
		}

		if result.err != nil {
			logger.Debug(ctx, "endpoint probe failed",
				zap.String("url", endpoint.URL),
				zap.Error(result.err))
		}
	}
	listeners := m.listeners
	m.mu.Unlock()

	for _, c := range changes {
		if c.current && c.endpoint.Status == models.EndpointStatusOffline {
			logger.Warn(ctx, "current endpoint is offline",
				zap.String("url", c.endpoint.URL),
				zap.String("kind", string(c.endpoint.Kind)))
		}
		notify(listeners, c.endpoint, c.current)
	}
}

// Run refreshes immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

func notify(listeners []Listener, endpoint models.Endpoint, current bool) {
	for _, listener := range listeners {
		listener(endpoint, current)
	}
}
