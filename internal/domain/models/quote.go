package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a single oracle observation. It is not persisted and says
// nothing about the price a moment later.
type PriceQuote struct {
	PoolID      uint64
	InputDenom  string
	OutputDenom string
	Price       decimal.Decimal
	Endpoint    string
	ObservedAt  time.Time
}
