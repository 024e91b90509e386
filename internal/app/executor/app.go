package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/nastyazhadan/limit-order-executor/internal/http/api"
	"github.com/nastyazhadan/limit-order-executor/internal/infrastructure/kafka"
	"github.com/nastyazhadan/limit-order-executor/internal/services/endpoint"
	"github.com/nastyazhadan/limit-order-executor/internal/services/scheduler"
	"github.com/nastyazhadan/limit-order-executor/migrations"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/closer"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/db"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/health"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/redis"
	"github.com/nastyazhadan/limit-order-executor/shared/infra/tracing"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

const (
	restoreTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type App struct {
	diContainer *DiContainer

	monitor   *endpoint.Monitor
	scheduler *scheduler.Scheduler

	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener

	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	producer    sarama.SyncProducer
	registry    *prometheus.Registry

	config *config.Config
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
	}

	if err := app.setupDeps(ctx); err != nil {
		return nil, err
	}

	return app, nil
}

// Start restores journaled orders and runs the background loops and both
// servers until ctx is done or one of them fails.
func (a *App) Start(ctx context.Context) error {
	if err := a.restoreOrders(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return a.monitor.Run(groupCtx) })
	group.Go(func() error { return a.scheduler.Run(groupCtx) })
	group.Go(func() error { return a.diContainer.Hub().Run(groupCtx) })
	group.Go(a.runHTTPServer)
	group.Go(a.runGRPCServer)
	group.Go(func() error {
		<-groupCtx.Done()
		return a.stopServers()
	})

	return group.Wait()
}

// Stop releases every resource registered with the closer, in reverse
// order of acquisition.
func (a *App) Stop(ctx context.Context) error {
	return closer.CloseAll(ctx)
}

func (a *App) setupDeps(ctx context.Context) error {
	setups := []func(ctx context.Context) error{
		a.setupLogger,
		a.setupCloser,
		a.setupTracing,
		a.setupDB,
		a.setupRedis,
		a.setupKafka,
		a.setupDI,
		a.setupHTTPServer,
		a.setupGRPCServer,
	}

	for _, init := range setups {
		if err := init(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) setupLogger(_ context.Context) error {
	return logger.Init(logger.Options{
		Level:  a.config.Log.Level,
		Format: a.config.Log.Format,
	})
}

func (a *App) setupCloser(_ context.Context) error {
	closer.SetLogger(logger.Logger())

	closer.AddNamed("zap logger sync", func(ctx context.Context) error {
		_ = logger.Sync()
		return nil
	})

	return nil
}

func (a *App) setupTracing(ctx context.Context) error {
	shutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    a.config.Tracing.OTLPEndpoint,
		ServiceName: a.config.Tracing.ServiceName,
		SampleRate:  a.config.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracing.Init: %w", err)
	}

	closer.AddNamed("OTel tracer provider", shutdown)

	return nil
}

func (a *App) setupDB(ctx context.Context) error {
	if !a.config.Postgres.Enabled() {
		logger.Info(ctx, "postgres disabled, orders are kept in memory only")
		return nil
	}

	pool, err := db.Open(ctx, a.config.Postgres.DSN, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("db.Open: %w", err)
	}

	a.dbPool = pool

	closer.AddNamed("Postgres pool", func(ctx context.Context) error {
		a.dbPool.Close()
		return nil
	})

	return nil
}

func (a *App) setupRedis(ctx context.Context) error {
	if !a.config.Redis.Enabled() {
		logger.Info(ctx, "redis disabled, using in-process rate limiter")
		return nil
	}

	pool := redis.NewPool(redis.Config{
		Address:           a.config.Redis.Address(),
		MaxIdle:           a.config.Redis.MaxIdle,
		IdleTimeout:       a.config.Redis.IdleTimeout,
		ConnectionTimeout: a.config.Redis.ConnectionTimeout,
	})
	client := redis.NewClient(pool, logger.Logger(), a.config.Redis.ConnectionTimeout)

	closer.AddNamed("Redis pool", func(ctx context.Context) error {
		return client.Close()
	})

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("redis is not reachable at %s: %w", a.config.Redis.Address(), err)
	}

	a.redisClient = client

	return nil
}

func (a *App) setupKafka(ctx context.Context) error {
	if !a.config.Kafka.Enabled() {
		return nil
	}

	producer, err := kafka.NewSyncProducer(a.config.Kafka.Brokers)
	if err != nil {
		return fmt.Errorf("kafka.NewSyncProducer: %w", err)
	}

	a.producer = producer

	closer.AddNamed("Kafka producer", func(ctx context.Context) error {
		return a.producer.Close()
	})

	logger.Info(ctx, "publishing executions to kafka",
		zap.Strings("brokers", a.config.Kafka.Brokers),
		zap.String("topic", a.config.Kafka.Topic))

	return nil
}

func (a *App) setupDI(ctx context.Context) error {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.diContainer = NewDIContainer(a.config, a.dbPool, a.redisClient, a.producer, a.registry)

	monitor, err := a.diContainer.EndpointMonitor(ctx)
	if err != nil {
		return fmt.Errorf("EndpointMonitor: %w", err)
	}
	a.monitor = monitor

	sched, err := a.diContainer.Scheduler(ctx)
	if err != nil {
		return fmt.Errorf("Scheduler: %w", err)
	}
	a.scheduler = sched

	return nil
}

func (a *App) ready() bool {
	return a.scheduler.Running() && a.monitor.Online()
}

func (a *App) setupHTTPServer(ctx context.Context) error {
	server := api.NewServer(api.Deps{
		Orders:      a.diContainer.OrderService(ctx),
		Endpoints:   a.monitor,
		Projections: a.diContainer.Projector(),
		Warnings:    a.diContainer.WarningStore(),
		Hub:         a.diContainer.Hub(),
		Gatherer:    a.registry,
		Ready:       a.ready,
	}, api.Options{
		AllowedOrigins: a.config.HTTP.AllowedOrigins,
		JWTSecret:      a.config.Auth.JWTSecret,
	})

	a.httpServer = &http.Server{
		Addr:         a.config.HTTP.Address,
		Handler:      server.Handler(),
		ReadTimeout:  a.config.HTTP.ReadTimeout,
		WriteTimeout: a.config.HTTP.WriteTimeout,
	}

	return nil
}

func (a *App) setupGRPCServer(_ context.Context) error {
	listener, err := net.Listen("tcp", a.config.GRPCHealth.Address)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}

	a.grpcListener = listener

	closer.AddNamed("TCP listener", func(ctx context.Context) error {
		l := listener.Close()
		if l != nil && !errors.Is(l, net.ErrClosed) {
			return l
		}

		return nil
	})

	a.grpcServer = grpc.NewServer()
	reflection.Register(a.grpcServer)
	health.RegisterService(a.grpcServer, a.ready)

	return nil
}

func (a *App) restoreOrders(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()

	restored, err := a.diContainer.OrderService(ctx).Restore(ctx)
	if err != nil {
		return fmt.Errorf("Restore: %w", err)
	}

	if restored > 0 {
		logger.Info(ctx, "restored pending orders", zap.Int("count", restored))
	}

	return nil
}

func (a *App) runHTTPServer() error {
	logger.Info(context.Background(), fmt.Sprintf("Starting HTTP API on %s", a.config.HTTP.Address))

	err := a.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpServer.ListenAndServe: %w", err)
	}

	return nil
}

func (a *App) runGRPCServer() error {
	logger.Info(context.Background(), fmt.Sprintf("Starting gRPC health server on %s", a.config.GRPCHealth.Address))

	err := a.grpcServer.Serve(a.grpcListener)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpcServer.Serve: %w", err)
	}

	return nil
}

func (a *App) stopServers() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.grpcServer.GracefulStop()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpServer.Shutdown: %w", err)
	}

	return nil
}
