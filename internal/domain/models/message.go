package models

import "github.com/shopspring/decimal"

const TypeURLSwapExactAmountIn = "/osmosis.poolmanager.v1beta1.MsgSwapExactAmountIn"

// Message is one operation inside a transaction handed to the signer.
type Message interface {
	TypeURL() string
}

type SwapRoute struct {
	PoolID        uint64
	TokenOutDenom string
}

type MsgSwapExactAmountIn struct {
	Sender            string
	Routes            []SwapRoute
	TokenIn           Coin
	TokenOutMinAmount decimal.Decimal
}

func (MsgSwapExactAmountIn) TypeURL() string {
	return TypeURLSwapExactAmountIn
}
