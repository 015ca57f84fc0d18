package storage_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/config"
	"github.com/vasiliy-maslov/shop-service/internal/db"
	"github.com/vasiliy-maslov/shop-service/internal/notification"
	"github.com/vasiliy-maslov/shop-service/internal/order"
	"github.com/vasiliy-maslov/shop-service/internal/storage"
	"github.com/vasiliy-maslov/shop-service/internal/storage/mongodb"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

// backends returns a constructor per reachable backend. PostgreSQL and
// MongoDB run only when TEST_POSTGRES_DSN or TEST_MONGO_URI is set.
func backends(t *testing.T) map[string]func(t *testing.T) *storage.Backend {
	t.Helper()
	out := map[string]func(t *testing.T) *storage.Backend{
		config.DriverMemory: func(t *testing.T) *storage.Backend { return storage.NewMemory() },
	}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		out[config.DriverPostgres] = func(t *testing.T) *storage.Backend { return openPostgres(t, dsn) }
	}
	if uri := os.Getenv("TEST_MONGO_URI"); uri != "" {
		out[config.DriverMongo] = func(t *testing.T) *storage.Backend { return openMongo(t, uri) }
	}
	return out
}

func openPostgres(t *testing.T, dsn string) *storage.Backend {
	t.Helper()
	require.NoError(t, db.Migrate(dsn, "", db.Up))

	ctx := context.Background()
	pg, err := db.NewPostgresFromURL(ctx, dsn)
	require.NoError(t, err)

	truncate := func() {
		_, err := pg.Pool.Exec(context.Background(), "TRUNCATE TABLE order_items, orders, products, users, notification_logs")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}
	truncate()

	b := storage.NewPostgres(pg)
	t.Cleanup(func() {
		truncate()
		b.Close()
	})
	return b
}

func openMongo(t *testing.T, uri string) *storage.Backend {
	t.Helper()
	ctx := context.Background()

	transactions, _ := strconv.ParseBool(os.Getenv("TEST_MONGO_TRANSACTIONS"))
	cfg := config.MongoConfig{
		URI:          uri,
		Database:     fmt.Sprintf("shop_test_%d", time.Now().UnixNano()),
		Transactions: transactions,
	}
	client, err := db.NewMongo(ctx, cfg)
	require.NoError(t, err)

	b, err := storage.NewMongo(ctx, mongodb.New(client, cfg.Database, cfg.Transactions))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := client.Database(cfg.Database).Drop(context.Background()); err != nil {
			t.Logf("Failed to drop test database: %v", err)
		}
		b.Close()
	})
	return b
}

func forEachBackend(t *testing.T, fn func(t *testing.T, b *storage.Backend)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func newProduct(name string, stock int, active bool) *catalog.Product {
	return &catalog.Product{
		Name:               name,
		Image:              "https://img.example.com/" + name + ".jpg",
		Category:           catalog.CategoryFemale,
		Price:              decimal.RequireFromString("249.99"),
		DiscountPercentage: decimal.NewFromInt(20),
		StockQuantity:      stock,
		Sizes:              []string{"S", "M"},
		Colors:             []string{"Red"},
		IsActive:           active,
	}
}

func TestBackend_Products(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()

		p := newProduct("Ankara Dress", 5, true)
		require.NoError(t, b.Products.Create(ctx, p))
		require.NotEmpty(t, p.ID)
		require.NoError(t, b.Products.Create(ctx, newProduct("Hidden Dress", 5, false)))

		got, err := b.Products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ankara Dress", got.Name)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("249.99")), "price %s", got.Price)
		assert.True(t, got.DiscountPercentage.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, []string{"S", "M"}, got.Sizes)

		_, err = b.Products.GetByID(ctx, "not-an-id")
		require.ErrorIs(t, err, catalog.ErrNotFound)

		active, err := b.Products.List(ctx, catalog.Filter{Query: "dress", ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, active, 1)

		got.StockQuantity = 7
		require.NoError(t, b.Products.Update(ctx, got))
		got, err = b.Products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.StockQuantity)

		n, err := b.Products.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		require.NoError(t, b.Products.Delete(ctx, p.ID))
		require.ErrorIs(t, b.Products.Delete(ctx, p.ID), catalog.ErrNotFound)
	})
}

func TestBackend_DecrementStockIsConditional(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()
		p := newProduct("Tee", 3, true)
		require.NoError(t, b.Products.Create(ctx, p))

		n, err := b.Products.DecrementStock(ctx, p.ID, 4)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = b.Products.DecrementStock(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		require.NoError(t, b.Products.IncrementStock(ctx, p.ID, 2))
		got, err := b.Products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.StockQuantity)

		inactive := newProduct("Retired", 10, false)
		require.NoError(t, b.Products.Create(ctx, inactive))
		n, err = b.Products.DecrementStock(ctx, inactive.ID, 1)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func newOrder(number, userID, email, productID string) *order.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &order.Order{
		OrderNumber:   number,
		UserID:        userID,
		CustomerName:  "Amara Okafor",
		CustomerEmail: email,
		Total:         decimal.RequireFromString("399.98"),
		Status:        order.StatusProcessing,
		RefundStatus:  order.RefundNone,
		Items: []order.Item{
			{ProductID: productID, Name: "Ankara Dress", Quantity: 2, Price: decimal.RequireFromString("199.99")},
		},
		Date:      now,
		City:      "Lagos",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBackend_Orders(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()

		u := &user.User{Email: "amara@example.com", Name: "Amara", PasswordHash: "x", Role: auth.RoleCustomer, IsActive: true}
		require.NoError(t, b.Users.Create(ctx, u))
		p := newProduct("Ankara Dress", 5, true)
		require.NoError(t, b.Products.Create(ctx, p))

		first := newOrder("SS25AAAAAA", u.ID, "amara@example.com", p.ID)
		require.NoError(t, b.Orders.Insert(ctx, first))
		require.NotEmpty(t, first.ID)

		guest := newOrder("SS25BBBBBB", "", "AMARA@example.com", p.ID)
		guest.Date = first.Date.Add(time.Minute)
		require.NoError(t, b.Orders.Insert(ctx, guest))

		require.ErrorIs(t, b.Orders.Insert(ctx, newOrder("SS25AAAAAA", "", "x@example.com", p.ID)), order.ErrDuplicateOrderNumber)

		got, err := b.Orders.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "SS25AAAAAA", got.OrderNumber)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("399.98")))
		require.Len(t, got.Items, 1)
		assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("199.99")))

		_, err = b.Orders.FindByID(ctx, "not-an-id")
		require.ErrorIs(t, err, order.ErrOrderNotFound)

		mine, err := b.Orders.FindByOwnerOrEmail(ctx, u.ID, "amara@example.com")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "SS25BBBBBB", mine[0].OrderNumber)

		all, err := b.Orders.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		shipped, err := b.Orders.UpdateStatus(ctx, first.ID, order.StatusShipped)
		require.NoError(t, err)
		assert.Equal(t, order.StatusShipped, shipped.Status)

		_, err = b.Orders.UpdateStatus(ctx, "not-an-id", order.StatusShipped)
		require.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestBackend_UpdateRefundSingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()
		p := newProduct("Ankara Dress", 5, true)
		require.NoError(t, b.Products.Create(ctx, p))
		o := newOrder("SS25CCCCCC", "", "c@example.com", p.ID)
		require.NoError(t, b.Orders.Insert(ctx, o))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
			lost atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := b.Orders.UpdateRefund(ctx, o.ID, "Wrong size")
				switch {
				case err == nil:
					wins.Add(1)
				case assert.ErrorIs(t, err, order.ErrRefundAlreadyRequested):
					lost.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, wins.Load())
		assert.EqualValues(t, 7, lost.Load())

		got, err := b.Orders.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.RefundRequested, got.RefundStatus)
		assert.Equal(t, "Wrong size", got.RefundReason)

		_, err = b.Orders.UpdateRefund(ctx, "not-an-id", "Wrong size")
		require.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestBackend_Users(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()
		u := &user.User{Email: "chidi@example.com", Name: "Chidi", PasswordHash: "x", Role: auth.RoleAdmin, IsActive: true}
		require.NoError(t, b.Users.Create(ctx, u))

		require.ErrorIs(t, b.Users.Create(ctx, &user.User{Email: "CHIDI@example.com", PasswordHash: "x", Role: auth.RoleCustomer}), user.ErrEmailExists)

		got, err := b.Users.GetByEmail(ctx, "Chidi@Example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, auth.RoleAdmin, got.Role)

		_, err = b.Users.GetByID(ctx, "not-an-id")
		require.ErrorIs(t, err, user.ErrNotFound)
	})
}

func TestBackend_NotificationLogs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		for i, recipient := range []string{"a@example.com", "+2348000000", "b@example.com"} {
			require.NoError(t, b.Notifications.Create(ctx, &notification.LogEntry{
				ID:        fmt.Sprintf("notif-%d", i),
				Type:      notification.LogTypeEmail,
				Recipient: recipient,
				Subject:   "Order Confirmation - SS25AAAAAA",
				Timestamp: base.Format("2006-01-02 15:04"),
				Status:    notification.LogStatusSent,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		entries, err := b.Notifications.ListByRecipients(ctx, []string{"a@example.com", "+2348000000"})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "notif-1", entries[0].ID)
		assert.Equal(t, "notif-0", entries[1].ID)
	})
}

// Checkout against every backend's unit of work: concurrent buyers of the
// last units never drive stock negative.
func TestBackend_CheckoutNoOversell(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *storage.Backend) {
		ctx := context.Background()
		p := newProduct("Limited Kaftan", 3, true)
		require.NoError(t, b.Products.Create(ctx, p))

		svc := order.NewService(b.UnitOfWork, b.Orders, order.RandomNumberGenerator{}, order.WithMaxAttempts(10))

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.CreateOrder(ctx, order.CreateOrderInput{
					CustomerName:  "Buyer",
					CustomerEmail: fmt.Sprintf("buyer%d@example.com", i),
					Items:         []order.CartLine{{ProductID: p.ID, Quantity: 1}},
				}, nil)
				if err == nil {
					succeeded.Add(1)
					return
				}
				assert.ErrorIs(t, err, order.ErrInsufficientStock)
			}(i)
		}
		wg.Wait()

		assert.EqualValues(t, 3, succeeded.Load())
		got, err := b.Products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Zero(t, got.StockQuantity)

		all, err := b.Orders.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
