package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
	clientErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/client"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/tracing"
)

const broadcastPath = "/cosmos/tx/v1beta1/txs"

// Signer turns messages into signed transaction bytes. Keys never leave it.
type Signer interface {
	Sign(ctx context.Context, sender string, messages []models.Message) ([]byte, error)
}

type broadcastRequest struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode"`
}

type broadcastResponse struct {
	TxResponse struct {
		TxHash string `json:"txhash"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	} `json:"tx_response"`
}

// Broadcaster signs and submits transactions through the selected REST
// endpoint. It never retries on its own: a retried broadcast could land
// twice.
type Broadcaster struct {
	endpoints  EndpointSource
	signer     Signer
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[string]
	timeout    time.Duration
	mode       string
}

func NewBroadcaster(
	endpoints EndpointSource,
	signer Signer,
	cfg config.BroadcastConfig,
	cbConfig config.CircuitBreakerConfig,
) *Broadcaster {
	return &Broadcaster{
		endpoints:  endpoints,
		signer:     signer,
		httpClient: newHTTPClient(cfg.Timeout),
		breaker: newBreaker[string]("broadcaster", cbConfig, func(err error) bool {
			// a rejected tx means the endpoint answered
			var broadcastErr *clientErrors.BroadcastError
			return err == nil || (errors.As(err, &broadcastErr) && broadcastErr.Code != 0)
		}),
		timeout: cfg.Timeout,
		mode:    cfg.Mode,
	}
}

func (b *Broadcaster) Submit(ctx context.Context, sender string, messages []models.Message) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Broadcaster.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("sender", sender),
		attribute.Int("messages", len(messages)),
	)

	txHash, err := b.submit(ctx, sender, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("tx.hash", txHash))
	return txHash, nil
}

func (b *Broadcaster) submit(ctx context.Context, sender string, messages []models.Message) (string, error) {
	endpoint := b.endpoints.Current()
	if endpoint.Kind != models.EndpointKindREST {
		return "", &clientErrors.BroadcastError{Endpoint: endpoint.URL, Err: clientErrors.ErrUnsupportedEndpoint}
	}
	if len(messages) == 0 {
		return "", &clientErrors.BroadcastError{Endpoint: endpoint.URL, Err: fmt.Errorf("no messages to broadcast")}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	txBytes, err := b.signer.Sign(ctx, sender, messages)
	if err != nil {
		return "", &clientErrors.BroadcastError{Endpoint: endpoint.URL, Err: fmt.Errorf("sign: %w", err)}
	}

	txHash, err := b.breaker.Execute(func() (string, error) {
		return b.broadcast(ctx, endpoint.URL, txBytes)
	})
	if err != nil {
		if isBreakerRejection(err) {
			return "", &clientErrors.BroadcastError{Endpoint: endpoint.URL, Err: err}
		}
		return "", err
	}

	return txHash, nil
}

func (b *Broadcaster) broadcast(ctx context.Context, baseURL string, txBytes []byte) (string, error) {
	payload, err := json.Marshal(broadcastRequest{
		TxBytes: base64.StdEncoding.EncodeToString(txBytes),
		Mode:    b.mode,
	})
	if err != nil {
		return "", &clientErrors.BroadcastError{Endpoint: baseURL, Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(baseURL, broadcastPath), bytes.NewReader(payload))
	if err != nil {
		return "", &clientErrors.BroadcastError{Endpoint: baseURL, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := b.httpClient.Do(request)
	if err != nil {
		return "", &clientErrors.BroadcastError{Endpoint: baseURL, Err: err}
	}
	defer response.Body.Close()

	body, err := readBody(response.Body)
	if err != nil {
		return "", &clientErrors.BroadcastError{Endpoint: baseURL, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if response.StatusCode != http.StatusOK {
		return "", &clientErrors.BroadcastError{
			Endpoint: baseURL,
			Err:      fmt.Errorf("HTTP %d: %s", response.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var result broadcastResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &clientErrors.BroadcastError{Endpoint: baseURL, Err: fmt.Errorf("parsing response: %w", err)}
	}

	if result.TxResponse.Code != 0 {
		return "", &clientErrors.BroadcastError{
			Endpoint: baseURL,
			Code:     result.TxResponse.Code,
			Log:      result.TxResponse.RawLog,
		}
	}
	if result.TxResponse.TxHash == "" {
		return "", &clientErrors.BroadcastError{Endpoint: baseURL, Err: fmt.Errorf("empty tx hash in response")}
	}

	return result.TxResponse.TxHash, nil
}
