package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

type Logger interface {
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
}

type resource struct {
	name  string
	close func(context.Context) error
}

// Closer releases registered resources in reverse registration order.
type Closer struct {
	mutex     sync.Mutex
	once      sync.Once
	done      chan struct{}
	resources []resource
	logger    Logger
}

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...zap.Field)  {}
func (noopLogger) Error(context.Context, string, ...zap.Field) {}

var globalCloser = NewWithLogger(noopLogger{})

func AddNamed(name string, function func(context.Context) error) {
	globalCloser.AddNamed(name, function)
}

func CloseAll(ctx context.Context) error {
	return globalCloser.CloseAll(ctx)
}

func SetLogger(logger Logger) {
	globalCloser.SetLogger(logger)
}

func Done() <-chan struct{} {
	return globalCloser.Done()
}

func New() *Closer {
	return NewWithLogger(logger.Logger())
}

func NewWithLogger(logger Logger) *Closer {
	return &Closer{
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (closer *Closer) SetLogger(logger Logger) {
	closer.mutex.Lock()
	defer closer.mutex.Unlock()

	closer.logger = logger
}

// Done is closed once CloseAll has finished.
func (closer *Closer) Done() <-chan struct{} {
	return closer.done
}

func (closer *Closer) AddNamed(name string, function func(context.Context) error) {
	closer.mutex.Lock()
	defer closer.mutex.Unlock()

	closer.resources = append(closer.resources, resource{name: name, close: function})
}

// CloseAll runs every close function once, newest first. A cancelled ctx
// stops the remaining ones. All errors are joined.
func (closer *Closer) CloseAll(ctx context.Context) error {
	var errs []error

	closer.once.Do(func() {
		defer close(closer.done)

		closer.mutex.Lock()
		resources := closer.resources
		closer.resources = nil
		log := closer.logger
		closer.mutex.Unlock()

		if len(resources) == 0 {
			return
		}

		log.Info(ctx, "graceful shutdown started", zap.Int("resources", len(resources)))

		for i := len(resources) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				log.Error(ctx, "shutdown deadline reached",
					zap.Int("left", i+1),
					zap.Error(err))
				errs = append(errs, err)
				break
			}

			start := time.Now()
			if err := safeRun(ctx, resources[i].close); err != nil {
				log.Error(ctx, "failed to close resource",
					zap.String("resource", resources[i].name),
					zap.Duration("took", time.Since(start)),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", resources[i].name, err))
				continue
			}

			log.Info(ctx, "resource closed",
				zap.String("resource", resources[i].name),
				zap.Duration("took", time.Since(start)))
		}
	})

	return errors.Join(errs...)
}

func safeRun(ctx context.Context, function func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in close function: %v", r)
		}
	}()

	return function(ctx)
}
