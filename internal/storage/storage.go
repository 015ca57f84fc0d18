// Package storage opens the configured persistence backend.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/config"
	"github.com/vasiliy-maslov/shop-service/internal/db"
	"github.com/vasiliy-maslov/shop-service/internal/notification"
	"github.com/vasiliy-maslov/shop-service/internal/order"
	"github.com/vasiliy-maslov/shop-service/internal/storage/memory"
	"github.com/vasiliy-maslov/shop-service/internal/storage/mongodb"
	"github.com/vasiliy-maslov/shop-service/internal/storage/postgres"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type ProductRepository interface {
	catalog.Repository
	order.StockStore
}

type OrderRepository interface {
	order.Repository
	order.OrderWriter
}

// Backend is one opened store. Every backend provides all repositories and
// a unit of work for checkouts.
type Backend struct {
	Name          string
	Products      ProductRepository
	Orders        OrderRepository
	Users         user.Repository
	Notifications notification.Repository
	UnitOfWork    order.UnitOfWork

	close func()
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func NewMemory() *Backend {
	s := memory.NewStore()
	return &Backend{
		Name:          config.DriverMemory,
		Products:      s.Products(),
		Orders:        s.Orders(),
		Users:         s.Users(),
		Notifications: s.Notifications(),
		UnitOfWork:    s.UnitOfWork(),
		close:         s.Close,
	}
}

// NewPostgres wraps an open connection. The schema must already be migrated.
func NewPostgres(pg *db.Postgres) *Backend {
	s := postgres.New(pg.Pool, pg.SQL)
	return &Backend{
		Name:          config.DriverPostgres,
		Products:      s.Products(),
		Orders:        s.Orders(),
		Users:         s.Users(),
		Notifications: s.Notifications(),
		UnitOfWork:    s.UnitOfWork(),
		close:         s.Close,
	}
}

// NewMongo wraps a connected store after creating its indexes.
func NewMongo(ctx context.Context, s *mongodb.Store) (*Backend, error) {
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return &Backend{
		Name:          config.DriverMongo,
		Products:      s.Products(),
		Orders:        s.Orders(),
		Users:         s.Users(),
		Notifications: s.Notifications(),
		UnitOfWork:    s.UnitOfWork(),
		close:         s.Close,
	}, nil
}

// Open connects to the backend named by cfg.Store.Driver. For PostgreSQL it
// applies pending migrations first.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return NewMemory(), nil

	case config.DriverPostgres:
		if err := db.Migrate(cfg.Postgres.URL(), cfg.Postgres.MigrationsPath, db.Up); err != nil {
			return nil, err
		}
		pg, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pg), nil

	case config.DriverMongo:
		client, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s := mongodb.New(client, cfg.Mongo.Database, cfg.Mongo.Transactions)
		b, err := NewMongo(ctx, s)
		if err != nil {
			s.Close()
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
