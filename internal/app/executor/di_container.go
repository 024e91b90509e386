package executor

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/client/ledger"
	"github.com/nastyazhadan/limit-order-executor/internal/client/signer"
	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/http/api"
	"github.com/nastyazhadan/limit-order-executor/internal/infrastructure/kafka"
	"github.com/nastyazhadan/limit-order-executor/internal/infrastructure/postgres"
	"github.com/nastyazhadan/limit-order-executor/internal/infrastructure/ratelimit"
	repoRedis "github.com/nastyazhadan/limit-order-executor/internal/infrastructure/redis"
	"github.com/nastyazhadan/limit-order-executor/internal/metrics"
	"github.com/nastyazhadan/limit-order-executor/internal/services/endpoint"
	svcOrder "github.com/nastyazhadan/limit-order-executor/internal/services/order"
	"github.com/nastyazhadan/limit-order-executor/internal/services/rewards"
	"github.com/nastyazhadan/limit-order-executor/internal/services/scheduler"
	"github.com/nastyazhadan/limit-order-executor/internal/storage/memory"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/closer"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/redis"
)

const (
	warningCapacity      = 256
	placeOrderRatePrefix = "ratelimit:place_order:"
)

// DiContainer builds every component lazily on first use. Postgres, Redis
// and Kafka handles are optional; nil means the feature is disabled.
type DiContainer struct {
	config   *config.Config
	dbPool   *pgxpool.Pool
	redis    *redis.Client
	producer sarama.SyncProducer
	registry *prometheus.Registry

	metrics      *metrics.Metrics
	orderStore   *memory.OrderStore
	warningStore *memory.WarningStore
	orderService *svcOrder.Service
	monitor      *endpoint.Monitor
	oracle       *ledger.Oracle
	broadcaster  *ledger.Broadcaster
	scheduler    *scheduler.Scheduler
	projector    *rewards.Projector
	hub          *api.Hub
	publisher    *kafka.ExecutionPublisher
	journal      *postgres.OrderJournal
}

func NewDIContainer(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	redisClient *redis.Client,
	producer sarama.SyncProducer,
	registry *prometheus.Registry,
) *DiContainer {
	if cfg == nil {
		panic("config is nil")
	}

	if registry == nil {
		panic("registry is nil")
	}

	return &DiContainer{
		config:   cfg,
		dbPool:   dbPool,
		redis:    redisClient,
		producer: producer,
		registry: registry,
	}
}

func (d *DiContainer) Metrics() *metrics.Metrics {
	if d.metrics == nil {
		d.metrics = metrics.New(d.registry)
	}

	return d.metrics
}

func (d *DiContainer) OrderStore() *memory.OrderStore {
	if d.orderStore == nil {
		d.orderStore = memory.NewOrderStore()
	}

	return d.orderStore
}

func (d *DiContainer) WarningStore() *memory.WarningStore {
	if d.warningStore == nil {
		d.warningStore = memory.NewWarningStore(warningCapacity)
	}

	return d.warningStore
}

func (d *DiContainer) Journal() *postgres.OrderJournal {
	if d.journal == nil && d.dbPool != nil {
		d.journal = postgres.NewOrderJournal(d.dbPool)
	}

	return d.journal
}

func (d *DiContainer) RateLimiter() svcOrder.RateLimiter {
	limits := d.config.RateLimiter

	if d.redis != nil {
		return repoRedis.NewOrderRateLimiter(d.redis, limits.PlaceOrder, limits.Window, placeOrderRatePrefix)
	}

	return ratelimit.NewSenderLimiter(limits.PlaceOrder, limits.Window)
}

func (d *DiContainer) OrderService(_ context.Context) *svcOrder.Service {
	if d.orderService == nil {
		var journal svcOrder.Journal
		if j := d.Journal(); j != nil {
			journal = j
		}

		d.orderService = svcOrder.NewService(d.OrderStore(), journal, d.RateLimiter(), d.Metrics())

		service := d.orderService
		closer.AddNamed("unsettled executions", func(ctx context.Context) error {
			if left := service.Settle(ctx); left > 0 {
				return fmt.Errorf("%d executions not recorded in journal", left)
			}
			return nil
		})
	}

	return d.orderService
}

func (d *DiContainer) Hub() *api.Hub {
	if d.hub == nil {
		d.hub = api.NewHub(d.config.HTTP.AllowedOrigins)
	}

	return d.hub
}

func (d *DiContainer) EndpointMonitor(_ context.Context) (*endpoint.Monitor, error) {
	if d.monitor == nil {
		endpoints := make([]models.Endpoint, 0, len(d.config.Endpoints))
		for _, configured := range d.config.Endpoints {
			kind, err := models.ParseEndpointKind(configured.Kind)
			if err != nil {
				return nil, fmt.Errorf("endpoint %s: %w", configured.URL, err)
			}
			endpoints = append(endpoints, models.Endpoint{URL: configured.URL, Kind: kind})
		}

		monitor, err := endpoint.NewMonitor(
			endpoints,
			ledger.NewProber(d.config.Health.ProbeTimeout),
			d.config.Health.ProbeInterval,
			d.config.Health.ProbeTimeout,
			d.Metrics(),
		)
		if err != nil {
			return nil, err
		}

		monitor.Subscribe(d.Hub().EndpointChanged)
		d.monitor = monitor
	}

	return d.monitor, nil
}

func (d *DiContainer) Oracle(ctx context.Context) (*ledger.Oracle, error) {
	if d.oracle == nil {
		monitor, err := d.EndpointMonitor(ctx)
		if err != nil {
			return nil, err
		}

		d.oracle = ledger.NewOracle(monitor, d.config.Oracle, d.config.CircuitBreaker)
	}

	return d.oracle, nil
}

func (d *DiContainer) Broadcaster(ctx context.Context) (*ledger.Broadcaster, error) {
	if d.broadcaster == nil {
		monitor, err := d.EndpointMonitor(ctx)
		if err != nil {
			return nil, err
		}

		d.broadcaster = ledger.NewBroadcaster(
			monitor,
			signer.New(d.config.Signer.URL, d.config.Signer.Timeout),
			d.config.Broadcast,
			d.config.CircuitBreaker,
		)
	}

	return d.broadcaster, nil
}

func (d *DiContainer) ExecutionPublisher() *kafka.ExecutionPublisher {
	if d.publisher == nil && d.producer != nil {
		d.publisher = kafka.NewExecutionPublisher(d.producer, d.config.Kafka.Topic)
	}

	return d.publisher
}

func (d *DiContainer) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	if d.scheduler != nil {
		return d.scheduler, nil
	}

	slippage, err := decimal.NewFromString(d.config.Executor.SlippageTolerance)
	if err != nil {
		return nil, fmt.Errorf("executor.slippage_tolerance: %w", err)
	}

	oracle, err := d.Oracle(ctx)
	if err != nil {
		return nil, err
	}

	broadcaster, err := d.Broadcaster(ctx)
	if err != nil {
		return nil, err
	}

	publishers := []scheduler.Publisher{d.Hub()}
	if publisher := d.ExecutionPublisher(); publisher != nil {
		publishers = append(publishers, publisher)
	}

	d.scheduler = scheduler.New(scheduler.Deps{
		Store:       d.OrderService(ctx),
		Oracle:      oracle,
		Broadcaster: broadcaster,
		Publishers:  publishers,
		Warnings:    []scheduler.WarningSink{d.WarningStore(), d.Hub()},
		Metrics:     d.Metrics(),
	}, scheduler.Config{
		Interval:          d.config.Executor.TickInterval,
		TickTimeout:       d.config.Executor.TickTimeout,
		MaxConcurrency:    d.config.Executor.MaxConcurrency,
		WarnAfterFailures: d.config.Executor.WarnAfterFailures,
		Slippage:          slippage,
	})

	return d.scheduler, nil
}

func (d *DiContainer) Projector() *rewards.Projector {
	if d.projector == nil {
		d.projector = rewards.NewProjector()
	}

	return d.projector
}
