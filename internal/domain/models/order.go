package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	serviceErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/service"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func ParseSide(value string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(value))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: %q", serviceErrors.ErrInvalidSide, value)
	}
}

type Coin struct {
	Denom  string
	Amount decimal.Decimal
}

// Order is immutable once stored; replacing one means remove then insert.
type Order struct {
	ID            string
	Sender        string
	PoolID        uint64
	TokenIn       Coin
	TokenOutDenom string
	Side          Side
	TargetPrice   decimal.Decimal
	CreatedAt     time.Time
}

// PriceDenoms returns the (base, quote) pair the trigger price is expressed
// in: the price of the asset being sold (sell) or bought (buy), in units of
// the other side of the pair.
func (o Order) PriceDenoms() (base, quote string) {
	if o.Side == SideBuy {
		return o.TokenOutDenom, o.TokenIn.Denom
	}
	return o.TokenIn.Denom, o.TokenOutDenom
}

// Triggered reports whether the order fires at price. Equality fires.
func (o Order) Triggered(price decimal.Decimal) bool {
	switch o.Side {
	case SideBuy:
		return price.LessThanOrEqual(o.TargetPrice)
	case SideSell:
		return price.GreaterThanOrEqual(o.TargetPrice)
	default:
		return false
	}
}

func (o Order) Validate() error {
	if strings.TrimSpace(o.Sender) == "" {
		return serviceErrors.ErrInvalidSender
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return serviceErrors.ErrInvalidSide
	}
	if !o.TargetPrice.IsPositive() {
		return serviceErrors.ErrInvalidPrice
	}
	if !o.TokenIn.Amount.IsPositive() {
		return serviceErrors.ErrInvalidAmount
	}
	if o.TokenIn.Denom == "" || o.TokenOutDenom == "" || o.TokenIn.Denom == o.TokenOutDenom {
		return serviceErrors.ErrInvalidDenom
	}

	return nil
}
