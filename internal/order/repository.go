package order

import (
	"context"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
)

// ProductStore is the catalog view of a checkout. GetByID returns
// catalog.ErrNotFound for unknown ids.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	// DecrementStock subtracts qty only while the product is active and has
	// at least qty in stock, and reports how many rows it changed (0 or 1).
	DecrementStock(ctx context.Context, id string, qty int) (int64, error)
}

// StockStore can also put stock back. Compensating rollback uses it.
type StockStore interface {
	ProductStore
	IncrementStock(ctx context.Context, id string, qty int) error
}

type OrderWriter interface {
	// Insert assigns o.ID and returns ErrDuplicateOrderNumber when the order
	// number is already taken.
	Insert(ctx context.Context, o *Order) error
}

// Tx is one checkout's transactional scope. Exactly one of Commit or
// Rollback is called.
type Tx interface {
	Products() ProductStore
	Orders() OrderWriter
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Repository reads and updates committed orders. Orders are never deleted.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	// FindByOwnerOrEmail matches userID or email, newest first.
	FindByOwnerOrEmail(ctx context.Context, userID, email string) ([]Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
	// UpdateRefund moves the refund status from None to Requested. It returns
	// ErrRefundAlreadyRequested when the order has left None.
	UpdateRefund(ctx context.Context, id, reason string) (*Order, error)
}
