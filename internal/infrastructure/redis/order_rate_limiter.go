package redis

import (
	"context"
	"fmt"
	"time"
)

type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// OrderRateLimiter allows at most limit placements per sender in a fixed
// window shared by every executor using the same Redis.
type OrderRateLimiter struct {
	client Counter
	limit  int64
	window time.Duration
	prefix string
}

func NewOrderRateLimiter(
	client Counter,
	limit int64,
	window time.Duration,
	prefix string,
) *OrderRateLimiter {
	return &OrderRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

func (r *OrderRateLimiter) Allow(ctx context.Context, sender string) (bool, error) {
	const op = "OrderRateLimiter.Allow"

	key := r.prefix + sender

	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return count <= r.limit, nil
}
