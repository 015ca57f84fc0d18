// Package postgres stores the shop in PostgreSQL. Writes and checkout
// transactions go through pgx; list queries go through sqlx on lib/pq.
package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/vasiliy-maslov/shop-service/internal/order"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

func New(pool *pgxpool.Pool, db *sqlx.DB) *Store {
	return &Store{pool: pool, db: db}
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{q: s.pool, db: s.db}
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{pool: s.pool, db: s.db}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{q: s.pool}
}

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{db: s.db}
}

func (s *Store) UnitOfWork() order.UnitOfWork {
	return &UnitOfWork{pool: s.pool}
}

func (s *Store) Close() {
	_ = s.db.Close()
	s.pool.Close()
}

func validID(id string) bool {
	_, err := uuid.FromString(id)
	return err == nil
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

// conflict reports errors after which the whole transaction may be re-run.
func conflict(err error) bool {
	switch pgErrorCode(err) {
	case pgerrcode.DeadlockDetected, pgerrcode.SerializationFailure:
		return true
	default:
		return false
	}
}
