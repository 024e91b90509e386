package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Execution struct {
	OrderID    string
	Sender     string
	PoolID     uint64
	Side       Side
	TxHash     string
	Price      decimal.Decimal
	Endpoint   string
	ExecutedAt time.Time
}

// Warning is raised after repeated silent execution failures of one order.
type Warning struct {
	OrderID   string
	Sender    string
	Failures  int
	LastError string
	RaisedAt  time.Time
}
