package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
)

// CompensatingUnitOfWork runs a checkout on a store without multi-document
// transactions. Each conditional decrement is applied immediately and
// remembered; Rollback puts the stock back in reverse order. The order insert
// must be the last write of the checkout.
type CompensatingUnitOfWork struct {
	stock  StockStore
	orders OrderWriter
}

func NewCompensatingUnitOfWork(stock StockStore, orders OrderWriter) *CompensatingUnitOfWork {
	return &CompensatingUnitOfWork{stock: stock, orders: orders}
}

func (u *CompensatingUnitOfWork) Begin(_ context.Context) (Tx, error) {
	return &compensatingTx{stock: u.stock, orders: u.orders}, nil
}

type reservation struct {
	productID string
	quantity  int
}

type compensatingTx struct {
	stock    StockStore
	orders   OrderWriter
	reserved []reservation
	closed   bool
}

func (t *compensatingTx) Products() ProductStore { return t }

func (t *compensatingTx) Orders() OrderWriter { return t.orders }

func (t *compensatingTx) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	return t.stock.GetByID(ctx, id)
}

func (t *compensatingTx) DecrementStock(ctx context.Context, id string, qty int) (int64, error) {
	n, err := t.stock.DecrementStock(ctx, id, qty)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.reserved = append(t.reserved, reservation{productID: id, quantity: qty})
	}
	return n, nil
}

func (t *compensatingTx) Commit(_ context.Context) error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true
	t.reserved = nil
	return nil
}

// Rollback re-increments every applied decrement, newest first. It keeps
// going after a failed increment and reports all failures together.
func (t *compensatingTx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true

	// The request may already be cancelled; the stock must still go back.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(t.reserved) - 1; i >= 0; i-- {
		r := t.reserved[i]
		if err := t.stock.IncrementStock(ctx, r.productID, r.quantity); err != nil {
			log.Error().
				Err(err).
				Str("product_id", r.productID).
				Int("quantity", r.quantity).
				Msg("uow: failed to restore stock during compensation")
			errs = append(errs, fmt.Errorf("restore %d of product %s: %w", r.quantity, r.productID, err))
		}
	}
	t.reserved = nil
	return errors.Join(errs...)
}

var errTxClosed = errors.New("uow: transaction already closed")
