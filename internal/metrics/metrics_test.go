package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveTick(time.Now(), 4)
	m.SetEndpointUp("https://lcd.example", "rest", true)
	m.SetEndpointUp("https://rpc.example", "rpc", false)
	m.OracleErrors.WithLabelValues("not_found").Inc()

	assert.Equal(t, 4.0, testutil.ToFloat64(m.OrdersPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EndpointUp.WithLabelValues("https://lcd.example", "rest")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EndpointUp.WithLabelValues("https://rpc.example", "rpc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleErrors.WithLabelValues("not_found")))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
