package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/infrastructure/postgres/dto"
	storageErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/storage"
)

const uniqueViolationCode = "23505"

// OrderJournal persists pending orders so a restarted executor picks them
// up again, and keeps a record of executed ones.
type OrderJournal struct {
	pool *pgxpool.Pool
}

func NewOrderJournal(pool *pgxpool.Pool) *OrderJournal {
	return &OrderJournal{
		pool: pool,
	}
}

func (j *OrderJournal) SaveOrder(ctx context.Context, order models.Order) error {
	const op = "OrderJournal.SaveOrder"

	row := dto.FromDomain(order)

	_, err := j.pool.Exec(ctx,
		`INSERT INTO pending_orders
		    (id, sender, pool_id, token_in_denom, token_in_amount, token_out_denom, side, target_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.ID,
		row.Sender,
		row.PoolID,
		row.TokenInDenom,
		row.TokenInAmount,
		row.TokenOutDenom,
		row.Side,
		row.TargetPrice,
		row.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storageErrors.ErrOrderAlreadyExists)
		}

		return fmt.Errorf("%s: exec: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}

	return nil
}

// DeleteOrder is idempotent.
func (j *OrderJournal) DeleteOrder(ctx context.Context, id string) error {
	const op = "OrderJournal.DeleteOrder"

	if _, err := j.pool.Exec(ctx, `DELETE FROM pending_orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: exec: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}

	return nil
}

func (j *OrderJournal) ListPending(ctx context.Context) ([]models.Order, error) {
	const op = "OrderJournal.ListPending"

	rows, err := j.pool.Query(ctx,
		`SELECT id, sender, pool_id, token_in_denom, token_in_amount::text AS token_in_amount,
		        token_out_denom, side, target_price::text AS target_price, created_at
		 FROM pending_orders p
		 WHERE NOT EXISTS (
		     SELECT 1 FROM executions e
		     WHERE e.order_id = p.id AND e.executed_at >= p.created_at
		 )
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[dto.Order])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	orders := make([]models.Order, 0, len(records))
	for _, record := range records {
		order, err := record.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// CompleteOrder records an execution and drops its pending row in one
// transaction. A pending row created after the execution belongs to a
// later order reusing the id and is kept.
func (j *OrderJournal) CompleteOrder(ctx context.Context, execution models.Execution) error {
	const op = "OrderJournal.CompleteOrder"

	row := dto.ExecutionFromDomain(execution)

	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO executions (order_id, sender, pool_id, side, tx_hash, price, endpoint, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (order_id, tx_hash) DO NOTHING`,
		row.OrderID,
		row.Sender,
		row.PoolID,
		row.Side,
		row.TxHash,
		row.Price,
		row.Endpoint,
		row.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: insert execution: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM pending_orders WHERE id = $1 AND created_at <= $2`,
		row.OrderID,
		row.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: delete pending: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, errors.Join(storageErrors.ErrJournalUnavailable, err))
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var postgresErr *pgconn.PgError

	if errors.As(err, &postgresErr) {
		return postgresErr.Code == uniqueViolationCode
	}

	return false
}
