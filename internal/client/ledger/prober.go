package ledger

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	clientErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/client"
)

const restStatusPath = "/node_info"

// Prober performs one liveness check per endpoint kind:
//   - rpc: HEAD on the url
//   - rest: GET {url}/node_info
//   - grpc: grpc.health.v1 Check must answer SERVING
//
// A nil error means online. Failures wrap ErrEndpointUnreachable.
type Prober struct {
	httpClient *http.Client
}

func NewProber(timeout time.Duration) *Prober {
	return &Prober{httpClient: newHTTPClient(timeout)}
}

func (p *Prober) Probe(ctx context.Context, endpoint models.Endpoint) error {
	var err error
	switch endpoint.Kind {
	case models.EndpointKindRPC:
		err = p.probeHTTP(ctx, http.MethodHead, endpoint.URL)
	case models.EndpointKindREST:
		err = p.probeHTTP(ctx, http.MethodGet, joinURL(endpoint.URL, restStatusPath))
	case models.EndpointKindGRPC:
		err = probeGRPC(ctx, endpoint.URL)
	default:
		err = fmt.Errorf("unknown endpoint kind %q", endpoint.Kind)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", clientErrors.ErrEndpointUnreachable, endpoint.URL, err)
	}

	return nil
}

func (p *Prober) probeHTTP(ctx context.Context, method, target string) error {
	request, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}

	response, err := p.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", response.StatusCode)
	}

	return nil
}

func probeGRPC(ctx context.Context, rawURL string) error {
	target, creds := grpcTarget(rawURL)

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return err
	}
	defer conn.Close()

	response, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s", response.GetStatus())
	}

	return nil
}

// grpcTarget strips an http(s) scheme; https selects TLS.
func grpcTarget(rawURL string) (string, credentials.TransportCredentials) {
	switch {
	case strings.HasPrefix(rawURL, "https://"):
		return strings.TrimPrefix(rawURL, "https://"), credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	case strings.HasPrefix(rawURL, "http://"):
		return strings.TrimPrefix(rawURL, "http://"), insecure.NewCredentials()
	default:
		return rawURL, insecure.NewCredentials()
	}
}
