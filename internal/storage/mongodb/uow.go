package mongodb

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/order"
)

// SessionUnitOfWork runs each checkout in a multi-document transaction.
// Transactions need a replica set or sharded cluster.
type SessionUnitOfWork struct {
	client   *mongo.Client
	products *ProductRepository
	orders   *OrderRepository
}

func (u *SessionUnitOfWork) Begin(ctx context.Context) (order.Tx, error) {
	sess, err := u.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to start session: %w", err)
	}

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(txOpts); err != nil {
		sess.EndSession(ctx)
		return nil, fmt.Errorf("repository: failed to start transaction: %w", err)
	}
	return &sessionTx{sess: sess, products: u.products, orders: u.orders}, nil
}

type sessionTx struct {
	sess     mongo.Session
	products *ProductRepository
	orders   *OrderRepository
}

func (t *sessionTx) Products() order.ProductStore { return sessionProducts{t} }

func (t *sessionTx) Orders() order.OrderWriter { return sessionOrders{t} }

// bind attaches the session to ctx so the driver runs the operation inside
// the open transaction.
func (t *sessionTx) bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, t.sess)
}

func (t *sessionTx) Commit(ctx context.Context) error {
	defer t.sess.EndSession(context.WithoutCancel(ctx))

	var err error
	for attempt := 1; attempt <= maxCommitRetries; attempt++ {
		err = t.sess.CommitTransaction(t.bind(ctx))
		if err == nil || !hasLabel(err, unknownCommitLabel) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("repository: commit result unknown, retrying")
	}
	if err != nil {
		if hasLabel(err, transientTxLabel) {
			return fmt.Errorf("repository: commit: %w", order.ErrConflict)
		}
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (t *sessionTx) Rollback(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	defer t.sess.EndSession(ctx)

	if err := t.sess.AbortTransaction(t.bind(ctx)); err != nil {
		return fmt.Errorf("repository: failed to abort transaction: %w", err)
	}
	return nil
}

type sessionProducts struct {
	tx *sessionTx
}

func (p sessionProducts) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	return p.tx.products.GetByID(p.tx.bind(ctx), id)
}

func (p sessionProducts) DecrementStock(ctx context.Context, id string, qty int) (int64, error) {
	return p.tx.products.DecrementStock(p.tx.bind(ctx), id, qty)
}

type sessionOrders struct {
	tx *sessionTx
}

func (o sessionOrders) Insert(ctx context.Context, ord *order.Order) error {
	return o.tx.orders.Insert(o.tx.bind(ctx), ord)
}
