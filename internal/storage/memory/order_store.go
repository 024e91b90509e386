package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/shared/errors/storage"
)

// OrderStore holds pending orders keyed by id. The lock is held only for the
// duration of a single map operation.
type OrderStore struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]models.Order, 64),
	}
}

func (s *OrderStore) Insert(ctx context.Context, order models.Order) error {
	const op = "storage.OrderStore.Insert"

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.orders[order.ID]; found {
		return fmt.Errorf("%s: %w", op, storage.ErrOrderAlreadyExists)
	}

	s.orders[order.ID] = order
	return nil
}

// Remove is idempotent: a missing id is not an error, because the scheduler
// and a user cancel may race on the same order.
func (s *OrderStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()

	return nil
}

// Complete drops an executed order. No execution history is kept.
func (s *OrderStore) Complete(ctx context.Context, execution models.Execution) error {
	return s.Remove(ctx, execution.OrderID)
}

func (s *OrderStore) Get(ctx context.Context, id string) (models.Order, error) {
	const op = "storage.OrderStore.Get"

	select {
	case <-ctx.Done():
		return models.Order{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s.mu.RLock()
	result, found := s.orders[id]
	s.mu.RUnlock()

	if !found {
		return models.Order{}, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}

	return result, nil
}

// List returns a point-in-time copy; later mutations do not affect it.
func (s *OrderStore) List(_ context.Context) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, order)
	}

	return out
}

func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}
