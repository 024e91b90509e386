package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCounter) Expire(ctx context.Context, key string, expiration time.Duration) error {
	args := m.Called(ctx, key, expiration)
	return args.Error(0)
}

func TestOrderRateLimiter_Allow(t *testing.T) {
	const key = "rl:order:osmo1sender"

	tests := []struct {
		name        string
		setupMocks  func(*mockCounter)
		expected    bool
		expectedErr string
	}{
		{
			name: "первый запрос в окне",
			setupMocks: func(counter *mockCounter) {
				counter.On("Incr", mock.Anything, key).Return(int64(1), nil)
				counter.On("Expire", mock.Anything, key, time.Minute).Return(nil)
			},
			expected: true,
		},
		{
			name: "последний разрешённый запрос",
			setupMocks: func(counter *mockCounter) {
				counter.On("Incr", mock.Anything, key).Return(int64(2), nil)
			},
			expected: true,
		},
		{
			name: "лимит превышен",
			setupMocks: func(counter *mockCounter) {
				counter.On("Incr", mock.Anything, key).Return(int64(3), nil)
			},
			expected: false,
		},
		{
			name: "ошибка redis",
			setupMocks: func(counter *mockCounter) {
				counter.On("Incr", mock.Anything, key).Return(int64(0), errors.New("connection refused"))
			},
			expectedErr: "connection refused",
		},
		{
			name: "ошибка установки ttl",
			setupMocks: func(counter *mockCounter) {
				counter.On("Incr", mock.Anything, key).Return(int64(1), nil)
				counter.On("Expire", mock.Anything, key, time.Minute).Return(errors.New("timeout"))
			},
			expectedErr: "timeout",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			counter := new(mockCounter)
			test.setupMocks(counter)

			limiter := NewOrderRateLimiter(counter, 2, time.Minute, "rl:order:")
			allowed, err := limiter.Allow(context.Background(), "osmo1sender")

			if test.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.expectedErr)
				assert.Contains(t, err.Error(), "OrderRateLimiter.Allow")
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.expected, allowed)
			}

			counter.AssertExpectations(t)
		})
	}
}
