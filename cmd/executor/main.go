package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nastyazhadan/limit-order-executor/internal/app/executor"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

const stopTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(context.Background(), "failed to load config",
			zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := executor.New(ctx, cfg)
	if err != nil {
		logger.Fatal(context.Background(), "failed to set up executor",
			zap.Error(err))
	}

	if err := app.Start(ctx); err != nil {
		logger.Error(context.Background(), "executor failed",
			zap.Error(err))
	}

	logger.Info(context.Background(), "Shutting down executor...")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		logger.Error(context.Background(), "failed to stop executor",
			zap.Error(err))
	}

	logger.Info(context.Background(), "Executor stopped")
}
