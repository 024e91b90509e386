package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/metrics"
	clientErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/client"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/tracing"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

type Store interface {
	List(ctx context.Context) []models.Order
	Get(ctx context.Context, id string) (models.Order, error)
	Complete(ctx context.Context, execution models.Execution) error
}

type Oracle interface {
	Quote(ctx context.Context, poolID uint64, inputDenom, outputDenom string) (models.PriceQuote, error)
}

type Broadcaster interface {
	Submit(ctx context.Context, sender string, messages []models.Message) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, execution models.Execution) error
}

type WarningSink interface {
	Add(warning models.Warning)
}

type Config struct {
	Interval          time.Duration
	TickTimeout       time.Duration
	MaxConcurrency    int
	WarnAfterFailures int
	Slippage          decimal.Decimal
}

type Deps struct {
	Store       Store
	Oracle      Oracle
	Broadcaster Broadcaster
	Publishers  []Publisher
	Warnings    []WarningSink
	Metrics     *metrics.Metrics
}

// Report summarises one tick. Evaluated counts orders whose price was
// requested, Skipped counts orders left for a later tick.
type Report struct {
	Evaluated    int
	Triggered    int
	Executed     int
	Failed       int
	Skipped      int
	OracleErrors int
	TimedOut     bool
}

type outcome struct {
	evaluated   bool
	triggered   bool
	executed    bool
	failed      bool
	skipped     bool
	oracleError bool
}

func (r *Report) add(o outcome) {
	if o.evaluated {
		r.Evaluated++
	}
	if o.triggered {
		r.Triggered++
	}
	if o.executed {
		r.Executed++
	}
	if o.failed {
		r.Failed++
	}
	if o.skipped {
		r.Skipped++
	}
	if o.oracleError {
		r.OracleErrors++
	}
}

// Scheduler evaluates every pending order once per tick and submits the
// triggered ones. Ticks never overlap, and an order with an attempt still
// in flight is not evaluated again until that attempt finishes.
type Scheduler struct {
	deps Deps
	cfg  Config

	mu       sync.Mutex
	inFlight map[string]struct{}
	failures map[string]int

	ticks   atomic.Uint64
	running atomic.Bool
	now     func() time.Time
}

func New(deps Deps, cfg Config) *Scheduler {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.WarnAfterFailures <= 0 {
		cfg.WarnAfterFailures = 3
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = cfg.Interval
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	return &Scheduler{
		deps:     deps,
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
		failures: make(map[string]int),
		now:      time.Now,
	}
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Run ticks on the configured interval until ctx is done. A tick runs
// inside the loop, so a slow tick delays the next one instead of
// overlapping it.
func (s *Scheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	logger.Info(ctx, "scheduler started", zap.Duration("interval", s.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass. It returns when every launched attempt
// finished or the tick timeout elapsed; attempts still running after the
// timeout keep their in-flight mark and finish on their own.
func (s *Scheduler) Tick(ctx context.Context) Report {
	tick := s.ticks.Add(1)
	ctx = logger.ContextWithTick(ctx, tick)

	ctx, span := tracing.Tracer().Start(ctx, "Scheduler.Tick")
	defer span.End()

	started := s.now()
	orders := s.deps.Store.List(ctx)
	s.pruneFailures(orders)

	tickCtx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout)
	defer cancel()

	var report Report
	results := make(chan outcome, len(orders))
	semaphore := make(chan struct{}, s.cfg.MaxConcurrency)

	var group errgroup.Group
	for _, order := range orders {
		if !s.acquire(order.ID) {
			report.Skipped++
			continue
		}

		group.Go(func() error {
			defer s.release(order.ID)

			select {
			case <-tickCtx.Done():
				results <- outcome{skipped: true}
				return nil
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results <- s.process(ctx, order)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	report = s.collect(tickCtx, results, done, report)

	s.deps.Metrics.ObserveTick(started, len(orders))
	span.SetAttributes(
		attribute.Int("orders", len(orders)),
		attribute.Int("executed", report.Executed),
		attribute.Bool("timed_out", report.TimedOut),
	)

	fields := []zap.Field{
		zap.Int("orders", len(orders)),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("triggered", report.Triggered),
		zap.Int("executed", report.Executed),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("oracle_errors", report.OracleErrors),
		zap.Duration("took", s.now().Sub(started)),
	}
	if report.TimedOut {
		logger.Warn(ctx, "tick timed out, attempts left running", fields...)
	} else {
		logger.Debug(ctx, "tick finished", fields...)
	}

	return report
}

func (s *Scheduler) collect(tickCtx context.Context, results <-chan outcome, done <-chan struct{}, report Report) Report {
	drain := func() Report {
		for {
			select {
			case result := <-results:
				report.add(result)
			default:
				return report
			}
		}
	}

	for {
		select {
		case result := <-results:
			report.add(result)
		case <-done:
			return drain()
		case <-tickCtx.Done():
			select {
			case <-done:
			default:
				report.TimedOut = true
			}
			return drain()
		}
	}
}

func (s *Scheduler) process(ctx context.Context, order models.Order) outcome {
	ctx = logger.ContextWithOrderID(ctx, order.ID)
	result := outcome{evaluated: true}

	base, quote := order.PriceDenoms()
	requested := s.now()
	priceQuote, err := s.deps.Oracle.Quote(ctx, order.PoolID, base, quote)
	s.deps.Metrics.OracleLatency.Observe(s.now().Sub(requested).Seconds())
	if err != nil {
		result.oracleError = true
		s.deps.Metrics.OracleErrors.WithLabelValues(oracleErrorKind(err)).Inc()
		logger.Debug(ctx, "price unavailable, order skipped this tick", zap.Error(err))
		return result
	}

	if !order.Triggered(priceQuote.Price) {
		return result
	}
	result.triggered = true
	s.deps.Metrics.OrdersTriggered.Inc()
	ctx = logger.ContextWithEndpoint(ctx, priceQuote.Endpoint)

	// a cancel may have landed while the price was read
	if _, err := s.deps.Store.Get(ctx, order.ID); err != nil {
		result.skipped = true
		logger.Info(ctx, "triggered order no longer pending", zap.Error(err))
		return result
	}

	message := SwapMessage(order, priceQuote.Price, s.cfg.Slippage)
	txHash, err := s.deps.Broadcaster.Submit(ctx, order.Sender, []models.Message{message})
	if err != nil {
		result.failed = true
		s.deps.Metrics.BroadcastErrors.Inc()
		s.recordFailure(ctx, order, err)
		return result
	}

	s.clearFailures(order.ID)
	result.executed = true
	s.deps.Metrics.OrdersExecuted.Inc()

	execution := models.Execution{
		OrderID:    order.ID,
		Sender:     order.Sender,
		PoolID:     order.PoolID,
		Side:       order.Side,
		TxHash:     txHash,
		Price:      priceQuote.Price,
		Endpoint:   priceQuote.Endpoint,
		ExecutedAt: s.now().UTC(),
	}

	if err := s.deps.Store.Complete(ctx, execution); err != nil {
		logger.Error(ctx, "executed order not recorded in journal", zap.Error(err))
	}

	logger.Info(ctx, "order executed",
		zap.String("tx_hash", txHash),
		zap.String("price", priceQuote.Price.String()),
		zap.String("min_out", message.TokenOutMinAmount.String()))

	s.publish(ctx, execution)

	return result
}

func (s *Scheduler) publish(ctx context.Context, execution models.Execution) {
	for _, publisher := range s.deps.Publishers {
		if err := publisher.Publish(ctx, execution); err != nil {
			logger.Error(ctx, "failed to publish execution", zap.Error(err))
		}
	}
}

func (s *Scheduler) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}

	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, id)
}

func (s *Scheduler) recordFailure(ctx context.Context, order models.Order, err error) {
	s.mu.Lock()
	s.failures[order.ID]++
	failures := s.failures[order.ID]
	s.mu.Unlock()

	logger.Debug(ctx, "order submission failed, retrying next tick",
		zap.Int("failures", failures),
		zap.Error(err))

	if failures%s.cfg.WarnAfterFailures != 0 {
		return
	}

	warning := models.Warning{
		OrderID:   order.ID,
		Sender:    order.Sender,
		Failures:  failures,
		LastError: err.Error(),
		RaisedAt:  s.now().UTC(),
	}

	s.deps.Metrics.WarningsRaised.Inc()
	logger.Warn(ctx, "order keeps failing to execute",
		zap.Int("failures", failures),
		zap.Error(err))

	for _, sink := range s.deps.Warnings {
		sink.Add(warning)
	}
}

func (s *Scheduler) clearFailures(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, id)
}

// Failures returns the consecutive failed submissions of an order.
func (s *Scheduler) Failures(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failures[id]
}

func (s *Scheduler) pruneFailures(pending []models.Order) {
	present := make(map[string]struct{}, len(pending))
	for _, order := range pending {
		present[order.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.failures {
		if _, ok := present[id]; !ok {
			delete(s.failures, id)
		}
	}
}

func oracleErrorKind(err error) string {
	switch {
	case errors.Is(err, clientErrors.ErrOracleNotFound):
		return "not_found"
	case errors.Is(err, clientErrors.ErrOracleUnreachable):
		return "unreachable"
	default:
		return "other"
	}
}
