package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

type coinDTO struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

type placeOrderRequest struct {
	ID            string          `json:"id,omitempty"`
	Sender        string          `json:"sender"`
	PoolID        uint64          `json:"pool_id"`
	TokenIn       coinDTO         `json:"token_in"`
	TokenOutDenom string          `json:"token_out_denom"`
	Side          string          `json:"side"`
	TargetPrice   decimal.Decimal `json:"target_price"`
}

type orderResponse struct {
	ID            string          `json:"id"`
	Sender        string          `json:"sender"`
	PoolID        uint64          `json:"pool_id"`
	TokenIn       coinDTO         `json:"token_in"`
	TokenOutDenom string          `json:"token_out_denom"`
	Side          string          `json:"side"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toOrderResponse(order models.Order) orderResponse {
	return orderResponse{
		ID:            order.ID,
		Sender:        order.Sender,
		PoolID:        order.PoolID,
		TokenIn:       coinDTO{Denom: order.TokenIn.Denom, Amount: order.TokenIn.Amount},
		TokenOutDenom: order.TokenOutDenom,
		Side:          string(order.Side),
		TargetPrice:   order.TargetPrice,
		CreatedAt:     order.CreatedAt,
	}
}

type endpointResponse struct {
	URL       string     `json:"url"`
	Kind      string     `json:"kind"`
	Status    string     `json:"status"`
	Current   bool       `json:"current"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

func toEndpointResponse(endpoint models.Endpoint, current bool) endpointResponse {
	response := endpointResponse{
		URL:     endpoint.URL,
		Kind:    string(endpoint.Kind),
		Status:  endpoint.Status.String(),
		Current: current,
	}
	if !endpoint.CheckedAt.IsZero() {
		checkedAt := endpoint.CheckedAt
		response.CheckedAt = &checkedAt
	}

	return response
}

type switchEndpointRequest struct {
	URL string `json:"url"`
}

type projectionDTO struct {
	PoolID uint64          `json:"pool_id"`
	Token  string          `json:"token"`
	Delta  decimal.Decimal `json:"delta"`
}

type projectedValueResponse struct {
	PoolID uint64          `json:"pool_id"`
	Token  string          `json:"token"`
	Base   decimal.Decimal `json:"base"`
	Value  decimal.Decimal `json:"value"`
}

type poolDTO struct {
	ID                uint64          `json:"id"`
	TokenA            string          `json:"token_a"`
	TokenB            string          `json:"token_b"`
	LiquidityA        decimal.Decimal `json:"liquidity_a"`
	LiquidityB        decimal.Decimal `json:"liquidity_b"`
	TotalShares       decimal.Decimal `json:"total_shares"`
	SwapFeesNextEpoch decimal.Decimal `json:"swap_fees_next_epoch"`
	APR               decimal.Decimal `json:"apr"`
}

func (p poolDTO) toDomain() models.PoolInfo {
	return models.PoolInfo{
		ID:                p.ID,
		TokenA:            strings.TrimSpace(p.TokenA),
		TokenB:            strings.TrimSpace(p.TokenB),
		LiquidityA:        p.LiquidityA,
		LiquidityB:        p.LiquidityB,
		TotalShares:       p.TotalShares,
		SwapFeesNextEpoch: p.SwapFeesNextEpoch,
		APR:               p.APR,
	}
}

func toPoolDTO(pool models.PoolInfo) poolDTO {
	return poolDTO{
		ID:                pool.ID,
		TokenA:            pool.TokenA,
		TokenB:            pool.TokenB,
		LiquidityA:        pool.LiquidityA,
		LiquidityB:        pool.LiquidityB,
		TotalShares:       pool.TotalShares,
		SwapFeesNextEpoch: pool.SwapFeesNextEpoch,
		APR:               pool.APR,
	}
}

type projectAddRequest struct {
	Pool    poolDTO         `json:"pool"`
	AmountA decimal.Decimal `json:"amount_a"`
	AmountB decimal.Decimal `json:"amount_b"`
}

type projectRemoveRequest struct {
	Pool   poolDTO         `json:"pool"`
	Shares decimal.Decimal `json:"shares"`
}

// rewardsByToken maps a token to its fees per horizon in days.
type rewardsByToken map[string]map[int64]decimal.Decimal

type liquidityEstimateResponse struct {
	Shares        decimal.Decimal  `json:"shares"`
	Rewards       rewardsByToken   `json:"rewards"`
	APR           *decimal.Decimal `json:"apr,omitempty"`
	ProjectedPool poolDTO          `json:"projected_pool"`
}

type warningResponse struct {
	OrderID   string    `json:"order_id"`
	Sender    string    `json:"sender"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error"`
	RaisedAt  time.Time `json:"raised_at"`
}

func toWarningResponse(warning models.Warning) warningResponse {
	return warningResponse{
		OrderID:   warning.OrderID,
		Sender:    warning.Sender,
		Failures:  warning.Failures,
		LastError: warning.LastError,
		RaisedAt:  warning.RaisedAt,
	}
}

type executionResponse struct {
	OrderID    string          `json:"order_id"`
	Sender     string          `json:"sender"`
	PoolID     uint64          `json:"pool_id"`
	Side       string          `json:"side"`
	TxHash     string          `json:"tx_hash"`
	Price      decimal.Decimal `json:"price"`
	Endpoint   string          `json:"endpoint"`
	ExecutedAt time.Time       `json:"executed_at"`
}

func toExecutionResponse(execution models.Execution) executionResponse {
	return executionResponse{
		OrderID:    execution.OrderID,
		Sender:     execution.Sender,
		PoolID:     execution.PoolID,
		Side:       string(execution.Side),
		TxHash:     execution.TxHash,
		Price:      execution.Price,
		Endpoint:   execution.Endpoint,
		ExecutedAt: execution.ExecutedAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
