package order

import (
	"context"
	"testing"
	"time"

	fakeValue "github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/metrics"
	"github.com/nastyazhadan/limit-order-executor/internal/services/mocks"
	"github.com/nastyazhadan/limit-order-executor/internal/storage/memory"
	serviceErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/service"
	storageErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/storage"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

func randomParams() PlaceOrderParams {
	return PlaceOrderParams{
		Sender:        "osmo1" + fakeValue.LetterN(38),
		PoolID:        uint64(fakeValue.IntRange(1, 1500)),
		TokenIn:       models.Coin{Denom: "uosmo", Amount: decimal.NewFromInt(int64(fakeValue.IntRange(1, 1_000_000)))},
		TokenOutDenom: "uatom",
		Side:          models.SideSell,
		TargetPrice:   decimal.NewFromFloat(fakeValue.Float64Range(0.01, 100)).Round(6),
	}
}

func newTestService(journal Journal, limiter RateLimiter) (*Service, *memory.OrderStore) {
	logger.SetNopLogger()

	store := memory.NewOrderStore()
	return NewService(store, journal, limiter, metrics.NewNop()), store
}

func TestPlaceOrder(t *testing.T) {
	tests := []struct {
		name        string
		params      func() PlaceOrderParams
		setupMocks  func(*mocks.MockJournal, *mocks.MockRateLimiter)
		expectedErr error
		storeLen    int
	}{
		{
			name:   "успешное создание заказа",
			params: randomParams,
			setupMocks: func(journal *mocks.MockJournal, limiter *mocks.MockRateLimiter) {
				limiter.On("Allow", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)
				journal.On("SaveOrder", mock.Anything, mock.AnythingOfType("models.Order")).Return(nil)
			},
			storeLen: 1,
		},
		{
			name: "ошибка - нулевая цена",
			params: func() PlaceOrderParams {
				params := randomParams()
				params.TargetPrice = decimal.Zero
				return params
			},
			setupMocks:  func(*mocks.MockJournal, *mocks.MockRateLimiter) {},
			expectedErr: serviceErrors.ErrInvalidPrice,
		},
		{
			name: "ошибка - отрицательная сумма",
			params: func() PlaceOrderParams {
				params := randomParams()
				params.TokenIn.Amount = decimal.NewFromInt(-5)
				return params
			},
			setupMocks:  func(*mocks.MockJournal, *mocks.MockRateLimiter) {},
			expectedErr: serviceErrors.ErrInvalidAmount,
		},
		{
			name:   "ошибка - превышен лимит",
			params: randomParams,
			setupMocks: func(journal *mocks.MockJournal, limiter *mocks.MockRateLimiter) {
				limiter.On("Allow", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
			},
			expectedErr: serviceErrors.ErrRateLimitExceeded,
		},
		{
			name:   "ошибка журнала откатывает вставку",
			params: randomParams,
			setupMocks: func(journal *mocks.MockJournal, limiter *mocks.MockRateLimiter) {
				limiter.On("Allow", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)
				journal.On("SaveOrder", mock.Anything, mock.AnythingOfType("models.Order")).
					Return(storageErrors.ErrJournalUnavailable)
			},
			expectedErr: storageErrors.ErrJournalUnavailable,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			journal := new(mocks.MockJournal)
			limiter := new(mocks.MockRateLimiter)
			test.setupMocks(journal, limiter)

			service, store := newTestService(journal, limiter)
			order, err := service.PlaceOrder(context.Background(), test.params())

			if test.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, test.expectedErr)
				assert.Contains(t, err.Error(), "Service.PlaceOrder")
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, order.ID)
				assert.False(t, order.CreatedAt.IsZero())
			}

			assert.Equal(t, test.storeLen, store.Len())
			journal.AssertExpectations(t)
			limiter.AssertExpectations(t)
		})
	}
}

func TestPlaceOrder_Duplicate(t *testing.T) {
	service, store := newTestService(nil, nil)

	params := randomParams()
	params.ID = "o1"

	first, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	params.TargetPrice = decimal.NewFromInt(999)
	_, err = service.PlaceOrder(context.Background(), params)
	assert.ErrorIs(t, err, serviceErrors.ErrOrderAlreadyExists)

	assert.Equal(t, 1, store.Len())
	stored, err := store.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.True(t, first.TargetPrice.Equal(stored.TargetPrice))
}

func TestPlaceOrder_DuplicateDoesNotSpendRateLimit(t *testing.T) {
	limiter := new(mocks.MockRateLimiter)
	limiter.On("Allow", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Once()

	service, store := newTestService(nil, limiter)

	params := randomParams()
	params.ID = "o1"

	_, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	for range 3 {
		_, err = service.PlaceOrder(context.Background(), params)
		assert.ErrorIs(t, err, serviceErrors.ErrOrderAlreadyExists)
	}

	assert.Equal(t, 1, store.Len())
	limiter.AssertNumberOfCalls(t, "Allow", 1)
}

func TestCancelOrder(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("SaveOrder", mock.Anything, mock.Anything).Return(nil)
	journal.On("DeleteOrder", mock.Anything, "o1").Return(nil)

	service, store := newTestService(journal, nil)

	params := randomParams()
	params.ID = "o1"
	_, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	require.NoError(t, service.CancelOrder(context.Background(), "o1"))
	require.NoError(t, service.CancelOrder(context.Background(), "o1"))
	assert.Equal(t, 0, store.Len())

	_, err = service.GetOrder(context.Background(), "o1")
	assert.ErrorIs(t, err, serviceErrors.ErrOrderNotFound)
}

func TestCancelOrder_JournalFailureKeepsOrder(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("SaveOrder", mock.Anything, mock.Anything).Return(nil)
	journal.On("DeleteOrder", mock.Anything, "o1").Return(storageErrors.ErrJournalUnavailable)

	service, store := newTestService(journal, nil)

	params := randomParams()
	params.ID = "o1"
	_, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	err = service.CancelOrder(context.Background(), "o1")
	assert.ErrorIs(t, err, storageErrors.ErrJournalUnavailable)
	assert.Equal(t, 1, store.Len())
}

func executionOf(order models.Order, txHash string) models.Execution {
	return models.Execution{
		OrderID:    order.ID,
		Sender:     order.Sender,
		PoolID:     order.PoolID,
		Side:       order.Side,
		TxHash:     txHash,
		Price:      order.TargetPrice,
		Endpoint:   "https://lcd.example",
		ExecutedAt: order.CreatedAt.Add(time.Second),
	}
}

func TestComplete(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("SaveOrder", mock.Anything, mock.Anything).Return(nil)

	service, store := newTestService(journal, nil)

	params := randomParams()
	params.ID = "o1"
	order, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	execution := executionOf(order, "ABC123")
	journal.On("CompleteOrder", mock.Anything, execution).Return(nil).Once()

	require.NoError(t, service.Complete(context.Background(), execution))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, service.Settle(context.Background()))
	journal.AssertExpectations(t)
}

func TestComplete_JournalFailureDoesNotRestoreOrder(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("SaveOrder", mock.Anything, mock.Anything).Return(nil)

	service, store := newTestService(journal, nil)

	params := randomParams()
	params.ID = "o1"
	order, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	execution := executionOf(order, "ABC123")
	journal.On("CompleteOrder", mock.Anything, execution).
		Return(storageErrors.ErrJournalUnavailable).Once()
	// the pending row survived the failed completion
	journal.On("ListPending", mock.Anything).Return([]models.Order{order}, nil)

	err = service.Complete(context.Background(), execution)
	assert.ErrorIs(t, err, storageErrors.ErrJournalUnavailable)
	assert.Equal(t, 0, store.Len())

	restored, err := service.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
	assert.Equal(t, 0, store.Len())

	journal.On("CompleteOrder", mock.Anything, execution).Return(nil).Once()
	assert.Equal(t, 0, service.Settle(context.Background()))
	journal.AssertExpectations(t)
}

func TestComplete_LaterOrderWithSameIDIsRestored(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("SaveOrder", mock.Anything, mock.Anything).Return(nil)

	service, _ := newTestService(journal, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	params := randomParams()
	params.ID = "o1"
	order, err := service.PlaceOrder(context.Background(), params)
	require.NoError(t, err)

	execution := executionOf(order, "ABC123")
	journal.On("CompleteOrder", mock.Anything, execution).Return(storageErrors.ErrJournalUnavailable)
	require.Error(t, service.Complete(context.Background(), execution))

	reused := order
	reused.CreatedAt = execution.ExecutedAt.Add(time.Minute)
	journal.On("ListPending", mock.Anything).Return([]models.Order{reused}, nil)

	restored, err := service.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, service.Settle(context.Background()))
}

func TestComplete_RetriesEarlierUnsettled(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("SaveOrder", mock.Anything, mock.Anything).Return(nil)

	service, _ := newTestService(journal, nil)

	first, err := service.PlaceOrder(context.Background(), randomParams())
	require.NoError(t, err)
	second, err := service.PlaceOrder(context.Background(), randomParams())
	require.NoError(t, err)

	firstExecution := executionOf(first, "TX1")
	secondExecution := executionOf(second, "TX2")

	journal.On("CompleteOrder", mock.Anything, firstExecution).
		Return(storageErrors.ErrJournalUnavailable).Twice()
	require.Error(t, service.Complete(context.Background(), firstExecution))
	assert.Equal(t, 1, service.Settle(context.Background()))

	journal.On("CompleteOrder", mock.Anything, firstExecution).Return(nil).Once()
	journal.On("CompleteOrder", mock.Anything, secondExecution).Return(nil).Once()
	require.NoError(t, service.Complete(context.Background(), secondExecution))

	assert.Equal(t, 0, service.Settle(context.Background()))
	journal.AssertExpectations(t)
}

func TestListOrders(t *testing.T) {
	service, _ := newTestService(nil, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, sender := range []string{"alice", "bob", "alice"} {
		offset := time.Duration(i)
		service.now = func() time.Time { return base.Add(offset * time.Minute) }

		params := randomParams()
		params.Sender = sender
		_, err := service.PlaceOrder(context.Background(), params)
		require.NoError(t, err)
	}

	all := service.ListOrders(context.Background(), "")
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt))
	}

	alice := service.ListOrders(context.Background(), "alice")
	require.Len(t, alice, 2)
	for _, order := range alice {
		assert.Equal(t, "alice", order.Sender)
	}
}

func TestRestore(t *testing.T) {
	valid := models.Order{
		ID:            "o1",
		Sender:        "osmo1sender",
		PoolID:        1,
		TokenIn:       models.Coin{Denom: "uosmo", Amount: decimal.NewFromInt(10)},
		TokenOutDenom: "uatom",
		Side:          models.SideBuy,
		TargetPrice:   decimal.NewFromInt(2),
	}
	invalid := valid
	invalid.ID = "o2"
	invalid.TargetPrice = decimal.Zero

	journal := new(mocks.MockJournal)
	journal.On("ListPending", mock.Anything).Return([]models.Order{valid, invalid, valid}, nil)

	service, store := newTestService(journal, nil)

	restored, err := service.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, store.Len())
}

func TestRestore_JournalError(t *testing.T) {
	journal := new(mocks.MockJournal)
	journal.On("ListPending", mock.Anything).Return(nil, storageErrors.ErrJournalUnavailable)

	service, _ := newTestService(journal, nil)

	_, err := service.Restore(context.Background())
	assert.ErrorIs(t, err, storageErrors.ErrJournalUnavailable)
}
