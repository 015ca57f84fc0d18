package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/order"
)

// UnitOfWork runs a checkout in one read committed transaction. The
// conditional UPDATE on products is what keeps concurrent checkouts from
// overselling; the isolation level only has to hide uncommitted work.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

func (u *UnitOfWork) Begin(ctx context.Context) (order.Tx, error) {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Products() order.ProductStore { return txProducts{q: t.tx} }

func (t *pgTx) Orders() order.OrderWriter { return txOrders{q: t.tx} }

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if conflict(err) {
			return fmt.Errorf("repository: commit: %w", order.ErrConflict)
		}
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	// A failed statement leaves the request context possibly cancelled; the
	// rollback still has to reach the server.
	err := t.tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("repository: failed to rollback transaction: %w", err)
	}
	return nil
}

type txProducts struct {
	q querier
}

func (p txProducts) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	return getProduct(ctx, p.q, id)
}

func (p txProducts) DecrementStock(ctx context.Context, id string, qty int) (int64, error) {
	return decrementStock(ctx, p.q, id, qty)
}

type txOrders struct {
	q querier
}

func (o txOrders) Insert(ctx context.Context, ord *order.Order) error {
	return insertOrder(ctx, o.q, ord)
}
