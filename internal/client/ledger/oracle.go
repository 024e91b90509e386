package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
	clientErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/client"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/tracing"
)

const grpcCodeNotFound = 5

type spotPriceResponse struct {
	SpotPrice string `json:"spot_price"`
}

type gatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Oracle reads pool spot prices from the REST endpoint currently selected
// by the monitor. Every failure is an *OracleError.
type Oracle struct {
	endpoints  EndpointSource
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[decimal.Decimal]
	timeout    time.Duration
	now        func() time.Time
}

func NewOracle(endpoints EndpointSource, cfg config.OracleConfig, cbConfig config.CircuitBreakerConfig) *Oracle {
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Oracle{
		endpoints:  endpoints,
		httpClient: newHTTPClient(cfg.Timeout),
		limiter:    rate.NewLimiter(limit, burst),
		breaker: newBreaker[decimal.Decimal]("oracle", cbConfig, func(err error) bool {
			return err == nil || errors.Is(err, clientErrors.ErrOracleNotFound)
		}),
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

func (o *Oracle) Quote(ctx context.Context, poolID uint64, inputDenom, outputDenom string) (models.PriceQuote, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Oracle.Quote")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("pool.id", int64(poolID)),
		attribute.String("denom.input", inputDenom),
		attribute.String("denom.output", outputDenom),
	)

	endpoint := o.endpoints.Current()
	quote, err := o.quote(ctx, endpoint, poolID, inputDenom, outputDenom)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.PriceQuote{}, err
	}

	return quote, nil
}

func (o *Oracle) quote(
	ctx context.Context,
	endpoint models.Endpoint,
	poolID uint64,
	inputDenom, outputDenom string,
) (models.PriceQuote, error) {
	if endpoint.Kind != models.EndpointKindREST {
		return models.PriceQuote{}, clientErrors.NewUnreachable(endpoint.URL, clientErrors.ErrUnsupportedEndpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return models.PriceQuote{}, clientErrors.NewUnreachable(endpoint.URL, fmt.Errorf("rate limiter: %w", err))
	}

	price, err := o.breaker.Execute(func() (decimal.Decimal, error) {
		return o.fetch(ctx, endpoint.URL, poolID, inputDenom, outputDenom)
	})
	if err != nil {
		if isBreakerRejection(err) {
			return models.PriceQuote{}, clientErrors.NewUnreachable(endpoint.URL, err)
		}
		return models.PriceQuote{}, err
	}

	return models.PriceQuote{
		PoolID:      poolID,
		InputDenom:  inputDenom,
		OutputDenom: outputDenom,
		Price:       price,
		Endpoint:    endpoint.URL,
		ObservedAt:  o.now().UTC(),
	}, nil
}

func (o *Oracle) fetch(
	ctx context.Context,
	baseURL string,
	poolID uint64,
	inputDenom, outputDenom string,
) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("base_asset_denom", inputDenom)
	query.Set("quote_asset_denom", outputDenom)

	target := joinURL(baseURL, "/osmosis/poolmanager/v1beta1/pools/"+strconv.FormatUint(poolID, 10)+"/prices") +
		"?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return decimal.Decimal{}, clientErrors.NewUnreachable(baseURL, fmt.Errorf("creating request: %w", err))
	}
	request.Header.Set("Accept", "application/json")

	response, err := o.httpClient.Do(request)
	if err != nil {
		return decimal.Decimal{}, clientErrors.NewUnreachable(baseURL, err)
	}
	defer response.Body.Close()

	body, err := readBody(response.Body)
	if err != nil {
		return decimal.Decimal{}, clientErrors.NewUnreachable(baseURL, fmt.Errorf("reading response body: %w", err))
	}

	if response.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("HTTP %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
		if isNotFound(response.StatusCode, body) {
			return decimal.Decimal{}, clientErrors.NewNotFound(baseURL, statusErr)
		}
		return decimal.Decimal{}, clientErrors.NewUnreachable(baseURL, statusErr)
	}

	var payload spotPriceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Decimal{}, clientErrors.NewUnreachable(baseURL, fmt.Errorf("parsing response: %w", err))
	}

	price, err := decimal.NewFromString(payload.SpotPrice)
	if err != nil {
		return decimal.Decimal{}, clientErrors.NewUnreachable(baseURL, fmt.Errorf("parsing spot price %q: %w", payload.SpotPrice, err))
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, clientErrors.NewNotFound(baseURL, fmt.Errorf("non-positive spot price %s", price))
	}

	return price, nil
}

// isNotFound recognises the gateway's answers for an unknown pool or denom.
// Some nodes report them as 400/500 with a descriptive message.
func isNotFound(status int, body []byte) bool {
	if status == http.StatusNotFound {
		return true
	}
	if status != http.StatusBadRequest && status != http.StatusInternalServerError {
		return false
	}

	var gatewayErr gatewayError
	if err := json.Unmarshal(body, &gatewayErr); err == nil && gatewayErr.Code == grpcCodeNotFound {
		return true
	}

	return strings.Contains(strings.ToLower(string(body)), "not found")
}
