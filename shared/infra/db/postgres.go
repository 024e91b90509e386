package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nastyazhadan/limit-order-executor/shared/infra/db/migrator"
)

const pingTimeout = 5 * time.Second

// Open connects a pgx pool to dsn and applies every pending migration from
// migrationsFS before returning it.
func Open(ctx context.Context, dsn string, migrationsFS fs.FS) (*pgxpool.Pool, error) {
	const op = "db.Open"

	pool, err := newPgxPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = migrate(ctx, dsn, migrationsFS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pool, nil
}

func migrate(ctx context.Context, dsn string, migrationsFS fs.FS) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer sqlDB.Close()

	if _, err = migrator.New(sqlDB, migrationsFS).Up(ctx); err != nil {
		return fmt.Errorf("migrator.Up: %w", err)
	}

	return nil
}

func newPgxPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}

	return pool, nil
}
