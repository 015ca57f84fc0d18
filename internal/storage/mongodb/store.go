// Package mongodb stores the shop in MongoDB. Checkouts run in a session
// transaction on a replica set, or through compensating rollback on a
// standalone server.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vasiliy-maslov/shop-service/internal/order"
)

const (
	productsCollection      = "products"
	ordersCollection        = "orders"
	usersCollection         = "users"
	notificationsCollection = "notification_logs"

	transientTxLabel   = "TransientTransactionError"
	unknownCommitLabel = "UnknownTransactionCommitResult"
	disconnectTimeout  = 5 * time.Second
	maxCommitRetries   = 3
)

type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

func New(client *mongo.Client, database string, transactions bool) *Store {
	return &Store{
		client:       client,
		db:           client.Database(database),
		transactions: transactions,
	}
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{coll: s.db.Collection(productsCollection)}
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{coll: s.db.Collection(ordersCollection)}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(usersCollection)}
}

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{coll: s.db.Collection(notificationsCollection)}
}

func (s *Store) UnitOfWork() order.UnitOfWork {
	if !s.transactions {
		return order.NewCompensatingUnitOfWork(s.Products(), s.Orders())
	}
	return &SessionUnitOfWork{client: s.client, products: s.Products(), orders: s.Orders()}
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// index on orderNumber is what rejects duplicate order numbers.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		ordersCollection: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("orderNumber_unique")},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "date", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("repository: failed to create indexes on %s: %w", coll, err)
		}
	}
	log.Info().Str("db", s.db.Name()).Msg("MongoDB indexes ensured")
	return nil
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("failed to disconnect from MongoDB")
		return
	}
	log.Info().Msg("MongoDB connection closed")
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	dec, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("repository: decimal %s: %w", d, err)
	}
	return dec, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("repository: decimal %s: %w", d, err)
	}
	return out, nil
}

func hasLabel(err error, label string) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel(label)
}

// equalFold matches a whole string case-insensitively.
func equalFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
