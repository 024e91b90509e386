package models

import "github.com/shopspring/decimal"

type ProjectionKey struct {
	PoolID uint64
	Token  string
}

type Projection struct {
	PoolID uint64
	Token  string
	Delta  decimal.Decimal
}

func (p Projection) Key() ProjectionKey {
	return ProjectionKey{PoolID: p.PoolID, Token: p.Token}
}
