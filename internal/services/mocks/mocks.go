package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, endpoint models.Endpoint) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Quote(ctx context.Context, poolID uint64, inputDenom, outputDenom string) (models.PriceQuote, error) {
	args := m.Called(ctx, poolID, inputDenom, outputDenom)
	return args.Get(0).(models.PriceQuote), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Submit(ctx context.Context, sender string, messages []models.Message) (string, error) {
	args := m.Called(ctx, sender, messages)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, execution models.Execution) error {
	args := m.Called(ctx, execution)
	return args.Error(0)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) SaveOrder(ctx context.Context, order models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockJournal) DeleteOrder(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockJournal) CompleteOrder(ctx context.Context, execution models.Execution) error {
	args := m.Called(ctx, execution)
	return args.Error(0)
}

func (m *MockJournal) ListPending(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	if orders := args.Get(0); orders != nil {
		return orders.([]models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, sender string) (bool, error) {
	args := m.Called(ctx, sender)
	return args.Bool(0), args.Error(1)
}
