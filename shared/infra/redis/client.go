package redis

import (
	"context"
	"fmt"
	"time"

	redigo "github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

type Logger interface {
	Error(ctx context.Context, message string, fields ...zap.Field)
}

type Config struct {
	Address           string
	MaxIdle           int
	IdleTimeout       time.Duration
	ConnectionTimeout time.Duration
}

// Client runs single commands on connections borrowed from a redigo pool.
type Client struct {
	pool              *redigo.Pool
	logger            Logger
	connectionTimeout time.Duration
}

type redisFn func(conn redigo.Conn) error

func NewPool(config Config) *redigo.Pool {
	return &redigo.Pool{
		MaxIdle:     config.MaxIdle,
		IdleTimeout: config.IdleTimeout,
		DialContext: func(ctx context.Context) (redigo.Conn, error) {
			return redigo.DialContext(ctx, "tcp", config.Address,
				redigo.DialConnectTimeout(config.ConnectionTimeout))
		},
	}
}

func NewClient(pool *redigo.Pool, logger Logger, connectionTimeout time.Duration) *Client {
	return &Client{
		pool:              pool,
		logger:            logger,
		connectionTimeout: connectionTimeout,
	}
}

func (c *Client) withConn(ctx context.Context, fn redisFn) error {
	connCtx, cancel := context.WithTimeout(ctx, c.connectionTimeout)
	defer cancel()

	connection, err := c.pool.GetContext(connCtx)
	if err != nil {
		return fmt.Errorf("pool.GetContext: %w", err)
	}

	defer func() {
		if cErr := connection.Close(); cErr != nil {
			c.logger.Error(ctx, "failed to return redis connection", zap.Error(cErr))
		}
	}()

	return fn(connection)
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	var count int64
	err := c.withConn(ctx, func(conn redigo.Conn) error {
		value, err := redigo.Int64(redigo.DoContext(conn, ctx, "INCR", key))
		if err != nil {
			return err
		}

		count = value
		return nil
	})

	return count, err
}

func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.withConn(ctx, func(conn redigo.Conn) error {
		_, err := redigo.DoContext(conn, ctx, "PEXPIRE", key, expiration.Milliseconds())
		return err
	})
}

func (c *Client) Ping(ctx context.Context) error {
	return c.withConn(ctx, func(conn redigo.Conn) error {
		_, err := redigo.DoContext(conn, ctx, "PING")
		return err
	})
}

func (c *Client) Close() error {
	return c.pool.Close()
}
