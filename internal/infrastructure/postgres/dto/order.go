package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

type Order struct {
	ID            string    `db:"id"`
	Sender        string    `db:"sender"`
	PoolID        int64     `db:"pool_id"`
	TokenInDenom  string    `db:"token_in_denom"`
	TokenInAmount string    `db:"token_in_amount"`
	TokenOutDenom string    `db:"token_out_denom"`
	Side          string    `db:"side"`
	TargetPrice   string    `db:"target_price"`
	CreatedAt     time.Time `db:"created_at"`
}

func (o Order) ToDomain() (models.Order, error) {
	amount, err := decimal.NewFromString(o.TokenInAmount)
	if err != nil {
		return models.Order{}, fmt.Errorf("order %s: amount: %w", o.ID, err)
	}

	price, err := decimal.NewFromString(o.TargetPrice)
	if err != nil {
		return models.Order{}, fmt.Errorf("order %s: target price: %w", o.ID, err)
	}

	side, err := models.ParseSide(o.Side)
	if err != nil {
		return models.Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}

	return models.Order{
		ID:            o.ID,
		Sender:        o.Sender,
		PoolID:        uint64(o.PoolID),
		TokenIn:       models.Coin{Denom: o.TokenInDenom, Amount: amount},
		TokenOutDenom: o.TokenOutDenom,
		Side:          side,
		TargetPrice:   price,
		CreatedAt:     o.CreatedAt.UTC(),
	}, nil
}

func FromDomain(order models.Order) Order {
	return Order{
		ID:            order.ID,
		Sender:        order.Sender,
		PoolID:        int64(order.PoolID),
		TokenInDenom:  order.TokenIn.Denom,
		TokenInAmount: order.TokenIn.Amount.String(),
		TokenOutDenom: order.TokenOutDenom,
		Side:          string(order.Side),
		TargetPrice:   order.TargetPrice.String(),
		CreatedAt:     order.CreatedAt,
	}
}

type Execution struct {
	OrderID    string    `db:"order_id"`
	Sender     string    `db:"sender"`
	PoolID     int64     `db:"pool_id"`
	Side       string    `db:"side"`
	TxHash     string    `db:"tx_hash"`
	Price      string    `db:"price"`
	Endpoint   string    `db:"endpoint"`
	ExecutedAt time.Time `db:"executed_at"`
}

func ExecutionFromDomain(execution models.Execution) Execution {
	return Execution{
		OrderID:    execution.OrderID,
		Sender:     execution.Sender,
		PoolID:     int64(execution.PoolID),
		Side:       string(execution.Side),
		TxHash:     execution.TxHash,
		Price:      execution.Price.String(),
		Endpoint:   execution.Endpoint,
		ExecutedAt: execution.ExecutedAt,
	}
}
