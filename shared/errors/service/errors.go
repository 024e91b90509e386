package service

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrInvalidPrice       = errors.New("target price must be positive")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidSide        = errors.New("side must be buy or sell")
	ErrInvalidDenom       = errors.New("denoms must be non-empty and distinct")
	ErrInvalidSender      = errors.New("sender address is required")
	ErrRateLimitExceeded  = errors.New("order rate limit exceeded")
)
