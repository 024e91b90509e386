package ledger

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	clientErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/client"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/health"
)

func TestProber_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/node_info":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	tests := []struct {
		name     string
		endpoint models.Endpoint
		online   bool
	}{
		{name: "rpc онлайн", endpoint: models.Endpoint{URL: server.URL + "/", Kind: models.EndpointKindRPC}, online: true},
		{name: "rest онлайн", endpoint: models.Endpoint{URL: server.URL, Kind: models.EndpointKindREST}, online: true},
		{name: "rpc отвечает 503", endpoint: models.Endpoint{URL: down.URL, Kind: models.EndpointKindRPC}},
		{name: "rest отвечает 503", endpoint: models.Endpoint{URL: down.URL, Kind: models.EndpointKindREST}},
		{name: "адрес недоступен", endpoint: models.Endpoint{URL: "http://127.0.0.1:1", Kind: models.EndpointKindREST}},
		{name: "неизвестный тип", endpoint: models.Endpoint{URL: server.URL, Kind: "ws"}},
	}

	prober := NewProber(time.Second)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := prober.Probe(context.Background(), test.endpoint)
			if test.online {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, clientErrors.ErrEndpointUnreachable)
		})
	}
}

func TestProber_GRPC(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	health.RegisterService(server, ready.Load)
	go func() {
		_ = server.Serve(listener)
	}()
	defer server.Stop()

	endpoint := models.Endpoint{URL: listener.Addr().String(), Kind: models.EndpointKindGRPC}
	prober := NewProber(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, prober.Probe(ctx, endpoint))

	ready.Store(false)
	assert.ErrorIs(t, prober.Probe(ctx, endpoint), clientErrors.ErrEndpointUnreachable)
}

func TestGRPCTarget(t *testing.T) {
	target, creds := grpcTarget("https://grpc.osmosis.zone:443")
	assert.Equal(t, "grpc.osmosis.zone:443", target)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	target, creds = grpcTarget("grpc.osmosis.zone:9090")
	assert.Equal(t, "grpc.osmosis.zone:9090", target)
	assert.Equal(t, "insecure", creds.Info().SecurityProtocol)
}
