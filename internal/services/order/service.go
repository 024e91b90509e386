package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/metrics"
	serviceErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/service"
	storageErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/storage"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

type Store interface {
	Insert(ctx context.Context, order models.Order) error
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Order, error)
	List(ctx context.Context) []models.Order
}

type Journal interface {
	SaveOrder(ctx context.Context, order models.Order) error
	DeleteOrder(ctx context.Context, id string) error
	CompleteOrder(ctx context.Context, execution models.Execution) error
	ListPending(ctx context.Context) ([]models.Order, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, sender string) (bool, error)
}

type PlaceOrderParams struct {
	ID            string
	Sender        string
	PoolID        uint64
	TokenIn       models.Coin
	TokenOutDenom string
	Side          models.Side
	TargetPrice   decimal.Decimal
}

type Service struct {
	store   Store
	journal Journal
	limiter RateLimiter
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.Mutex
	unsettled map[string]models.Execution
}

func NewService(store Store, journal Journal, limiter RateLimiter, m *metrics.Metrics) *Service {
	if journal == nil {
		journal = nopJournal{}
	}

	return &Service{
		store:   store,
		journal: journal,
		limiter: limiter,
		metrics:   m,
		now:       time.Now,
		unsettled: make(map[string]models.Execution),
	}
}

func (s *Service) PlaceOrder(ctx context.Context, params PlaceOrderParams) (models.Order, error) {
	const op = "Service.PlaceOrder"

	order := models.Order{
		ID:            strings.TrimSpace(params.ID),
		Sender:        strings.TrimSpace(params.Sender),
		PoolID:        params.PoolID,
		TokenIn:       params.TokenIn,
		TokenOutDenom: params.TokenOutDenom,
		Side:          params.Side,
		TargetPrice:   params.TargetPrice,
		CreatedAt:     s.now().UTC(),
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	if err := order.Validate(); err != nil {
		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.store.Get(ctx, order.ID); err == nil {
		return models.Order{}, fmt.Errorf("%s: %w", op, serviceErrors.ErrOrderAlreadyExists)
	}

	if err := s.checkRateLimit(ctx, order.Sender); err != nil {
		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Insert(ctx, order); err != nil {
		if errors.Is(err, storageErrors.ErrOrderAlreadyExists) {
			return models.Order{}, fmt.Errorf("%s: %w", op, serviceErrors.ErrOrderAlreadyExists)
		}

		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.journal.SaveOrder(ctx, order); err != nil {
		_ = s.store.Remove(ctx, order.ID)

		if errors.Is(err, storageErrors.ErrOrderAlreadyExists) {
			return models.Order{}, fmt.Errorf("%s: %w", op, serviceErrors.ErrOrderAlreadyExists)
		}

		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.OrdersPlaced.Inc()
	logger.Info(logger.ContextWithOrderID(ctx, order.ID), "order placed",
		zap.String("sender", order.Sender),
		zap.Uint64("pool_id", order.PoolID),
		zap.String("side", string(order.Side)),
		zap.String("target_price", order.TargetPrice.String()))

	return order, nil
}

// CancelOrder is idempotent: cancelling an absent order succeeds. An order
// whose submission is already in flight may still execute.
func (s *Service) CancelOrder(ctx context.Context, id string) error {
	const op = "Service.CancelOrder"

	if err := s.journal.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.store.Get(ctx, id); err == nil {
		s.metrics.OrdersCancelled.Inc()
	}

	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info(logger.ContextWithOrderID(ctx, id), "order cancelled")

	return nil
}

// ListOrders returns pending orders oldest first, only those of sender when
// it is not empty.
func (s *Service) ListOrders(ctx context.Context, sender string) []models.Order {
	orders := s.store.List(ctx)

	filtered := orders[:0]
	for _, order := range orders {
		if sender == "" || order.Sender == sender {
			filtered = append(filtered, order)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID < filtered[j].ID
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	return filtered
}

func (s *Service) GetOrder(ctx context.Context, id string) (models.Order, error) {
	const op = "Service.GetOrder"

	order, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storageErrors.ErrOrderNotFound) {
			return models.Order{}, fmt.Errorf("%s: %w", op, serviceErrors.ErrOrderNotFound)
		}

		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

func (s *Service) List(ctx context.Context) []models.Order {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	return s.store.Get(ctx, id)
}

// Complete drops an executed order and records the execution in the
// journal. When the journal fails the execution stays unsettled: Restore
// will not bring the order back and Settle retries the record.
func (s *Service) Complete(ctx context.Context, execution models.Execution) error {
	const op = "Service.Complete"

	if err := s.store.Remove(ctx, execution.OrderID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.unsettled[execution.OrderID] = execution
	backlog := len(s.unsettled) - 1
	s.mu.Unlock()

	if err := s.settle(ctx, execution); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if backlog > 0 {
		s.Settle(ctx)
	}

	return nil
}

// Settle retries journal records of unsettled executions and returns how
// many are still unsettled.
func (s *Service) Settle(ctx context.Context) int {
	s.mu.Lock()
	pending := make([]models.Execution, 0, len(s.unsettled))
	for _, execution := range s.unsettled {
		pending = append(pending, execution)
	}
	s.mu.Unlock()

	for _, execution := range pending {
		if err := s.settle(ctx, execution); err != nil {
			logger.Warn(logger.ContextWithOrderID(ctx, execution.OrderID), "execution still unsettled",
				zap.String("tx_hash", execution.TxHash),
				zap.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.unsettled)
}

func (s *Service) settle(ctx context.Context, execution models.Execution) error {
	if err := s.journal.CompleteOrder(ctx, execution); err != nil {
		return err
	}

	s.mu.Lock()
	if current, ok := s.unsettled[execution.OrderID]; ok && current.TxHash == execution.TxHash {
		delete(s.unsettled, execution.OrderID)
	}
	s.mu.Unlock()

	return nil
}

func (s *Service) executedSince(order models.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	execution, ok := s.unsettled[order.ID]
	return ok && !execution.ExecutedAt.Before(order.CreatedAt)
}

// Restore loads journaled pending orders into the store and returns how
// many were added.
func (s *Service) Restore(ctx context.Context) (int, error) {
	const op = "Service.Restore"

	pending, err := s.journal.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	restored := 0
	for _, order := range pending {
		if err := order.Validate(); err != nil {
			logger.Warn(ctx, "skipping invalid journaled order",
				zap.String("order_id", order.ID),
				zap.Error(err))
			continue
		}

		if s.executedSince(order) {
			logger.Debug(logger.ContextWithOrderID(ctx, order.ID), "skipping executed order awaiting journal record")
			continue
		}

		if err := s.store.Insert(ctx, order); err != nil {
			if errors.Is(err, storageErrors.ErrOrderAlreadyExists) {
				continue
			}
			return restored, fmt.Errorf("%s: %w", op, err)
		}
		restored++
	}

	return restored, nil
}

func (s *Service) checkRateLimit(ctx context.Context, sender string) error {
	if s.limiter == nil {
		return nil
	}

	allowed, err := s.limiter.Allow(ctx, sender)
	if err != nil {
		return err
	}
	if !allowed {
		s.metrics.RateLimitedCalls.Inc()
		return serviceErrors.ErrRateLimitExceeded
	}

	return nil
}

type nopJournal struct{}

func (nopJournal) SaveOrder(context.Context, models.Order) error { return nil }

func (nopJournal) DeleteOrder(context.Context, string) error { return nil }

func (nopJournal) CompleteOrder(context.Context, models.Execution) error { return nil }

func (nopJournal) ListPending(context.Context) ([]models.Order, error) { return nil, nil }
