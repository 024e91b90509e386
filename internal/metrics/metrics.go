package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "order_executor"

type Metrics struct {
	TickDuration     prometheus.Histogram
	OrdersPending    prometheus.Gauge
	OrdersTriggered  prometheus.Counter
	OrdersExecuted   prometheus.Counter
	BroadcastErrors  prometheus.Counter
	OracleErrors     *prometheus.CounterVec
	OracleLatency    prometheus.Histogram
	EndpointUp       *prometheus.GaugeVec
	WarningsRaised   prometheus.Counter
	OrdersPlaced     prometheus.Counter
	OrdersCancelled  prometheus.Counter
	RateLimitedCalls prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one scheduler pass over the pending orders.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		OrdersPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_pending",
			Help:      "Pending orders seen at the start of the last tick.",
		}),
		OrdersTriggered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_triggered_total",
			Help:      "Evaluations whose trigger condition held.",
		}),
		OrdersExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_executed_total",
			Help:      "Orders whose transaction was accepted by the ledger.",
		}),
		BroadcastErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_errors_total",
			Help:      "Failed transaction submissions.",
		}),
		OracleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_errors_total",
			Help:      "Failed price reads by kind.",
		}, []string{"kind"}),
		OracleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Latency of price reads.",
			Buckets:   prometheus.DefBuckets,
		}),
		EndpointUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_up",
			Help:      "1 when the last probe of the endpoint succeeded.",
		}, []string{"url", "kind"}),
		WarningsRaised: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_raised_total",
			Help:      "Warnings raised after repeated execution failures.",
		}),
		OrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Accepted order placements.",
		}),
		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "User-initiated cancellations.",
		}),
		RateLimitedCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placements_rate_limited_total",
			Help:      "Placements rejected by the per-sender limiter.",
		}),
	}
}

// NewNop returns collectors registered nowhere, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) ObserveTick(started time.Time, pending int) {
	m.TickDuration.Observe(time.Since(started).Seconds())
	m.OrdersPending.Set(float64(pending))
}

func (m *Metrics) SetEndpointUp(url, kind string, up bool) {
	value := 0.0
	if up {
		value = 1
	}
	m.EndpointUp.WithLabelValues(url, kind).Set(value)
}
