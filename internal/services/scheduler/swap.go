package scheduler

import (
	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

var minTokenOut = decimal.NewFromInt(1)

// SwapMessage builds the swap that executes order at price: the whole
// TokenIn amount through the order's pool, accepting at most slippage below
// the output implied by price.
func SwapMessage(order models.Order, price, slippage decimal.Decimal) models.MsgSwapExactAmountIn {
	return models.MsgSwapExactAmountIn{
		Sender:            order.Sender,
		Routes:            []models.SwapRoute{{PoolID: order.PoolID, TokenOutDenom: order.TokenOutDenom}},
		TokenIn:           order.TokenIn,
		TokenOutMinAmount: MinTokenOut(order, price, slippage),
	}
}

// MinTokenOut is the expected output reduced by slippage, truncated to an
// integer amount and never below one unit. A sell order's price is TokenIn
// in TokenOut units, a buy order's price is TokenOut in TokenIn units.
func MinTokenOut(order models.Order, price, slippage decimal.Decimal) decimal.Decimal {
	var expected decimal.Decimal
	if order.Side == models.SideBuy {
		if !price.IsPositive() {
			return minTokenOut
		}
		expected = order.TokenIn.Amount.DivRound(price, 18)
	} else {
		expected = order.TokenIn.Amount.Mul(price)
	}

	if slippage.IsNegative() {
		slippage = decimal.Zero
	}
	if slippage.GreaterThan(decimal.NewFromInt(1)) {
		slippage = decimal.NewFromInt(1)
	}

	minOut := expected.Mul(decimal.NewFromInt(1).Sub(slippage)).Truncate(0)
	if minOut.LessThan(minTokenOut) {
		return minTokenOut
	}

	return minOut
}
