package scheduler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

func TestMinTokenOut(t *testing.T) {
	tests := []struct {
		name     string
		side     models.Side
		amount   int64
		price    string
		slippage string
		expected string
	}{
		{name: "продажа", side: models.SideSell, amount: 1000, price: "2", slippage: "0.01", expected: "1980"},
		{name: "покупка", side: models.SideBuy, amount: 1000, price: "4", slippage: "0.01", expected: "247"},
		{name: "округление вниз", side: models.SideSell, amount: 3, price: "0.7", slippage: "0", expected: "2"},
		{name: "минимум одна единица", side: models.SideSell, amount: 1, price: "0.001", slippage: "0.05", expected: "1"},
		{name: "отрицательное проскальзывание", side: models.SideSell, amount: 100, price: "1", slippage: "-0.5", expected: "100"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			order := sellOrder("o1", "1")
			order.Side = test.side
			order.TokenIn.Amount = decimal.NewFromInt(test.amount)

			minOut := MinTokenOut(order, decimal.RequireFromString(test.price), decimal.RequireFromString(test.slippage))
			assert.Equal(t, test.expected, minOut.String())
		})
	}
}

func TestSwapMessage(t *testing.T) {
	order := sellOrder("o1", "2")

	message := SwapMessage(order, decimal.NewFromInt(2), decimal.Zero)

	assert.Equal(t, models.TypeURLSwapExactAmountIn, message.TypeURL())
	assert.Equal(t, order.Sender, message.Sender)
	assert.Equal(t, []models.SwapRoute{{PoolID: 1, TokenOutDenom: "uatom"}}, message.Routes)
	assert.True(t, order.TokenIn.Amount.Equal(message.TokenIn.Amount))
	assert.Equal(t, "2000", message.TokenOutMinAmount.String())
}
