package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/config"
)

// Postgres holds the pgx pool used for writes and transactions and a sqlx
// handle on lib/pq used for list queries.
type Postgres struct {
	Pool *pgxpool.Pool
	SQL  *sqlx.DB
}

func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	pg, err := connectPostgres(ctx, cfg.URL(), cfg.MaxConns, cfg.MinConns, cfg.MaxConnLifetime)
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Connected to PostgreSQL")
	return pg, nil
}

// NewPostgresFromURL connects with default pool sizing. Integration tests
// use it with a DSN from the environment.
func NewPostgresFromURL(ctx context.Context, url string) (*Postgres, error) {
	return connectPostgres(ctx, url, 10, 2, 30*time.Minute)
}

func connectPostgres(ctx context.Context, url string, maxConns, minConns int32, lifetime time.Duration) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connstr: %w", err)
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = lifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	sqlDB, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect sqlx: %w", err)
	}
	sqlDB.SetMaxOpenConns(int(maxConns))
	sqlDB.SetConnMaxLifetime(lifetime)

	return &Postgres{Pool: pool, SQL: sqlDB}, nil
}

func (p *Postgres) Close() {
	if p.SQL != nil {
		_ = p.SQL.Close()
	}
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("Database connection closed")
	}
}
