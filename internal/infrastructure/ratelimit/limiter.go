package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SenderLimiter is the in-process placement limiter used when no Redis is
// configured: a token bucket per sender refilled at limit per window.
type SenderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewSenderLimiter(limit int64, window time.Duration) *SenderLimiter {
	if limit <= 0 {
		limit = 1
	}

	return &SenderLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    int(limit),
	}
}

func (l *SenderLimiter) Allow(_ context.Context, sender string) (bool, error) {
	return l.limiter(sender).Allow(), nil
}

func (l *SenderLimiter) limiter(sender string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[sender]
	if !ok {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters[sender] = limiter
	}

	return limiter
}
