package models

import "github.com/shopspring/decimal"

// PoolInfo is the read-only listing shape of a two-asset pool.
type PoolInfo struct {
	ID                uint64
	TokenA            string
	TokenB            string
	LiquidityA        decimal.Decimal
	LiquidityB        decimal.Decimal
	TotalShares       decimal.Decimal
	SwapFeesNextEpoch decimal.Decimal
	APR               decimal.Decimal
}
