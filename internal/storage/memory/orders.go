package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vasiliy-maslov/shop-service/internal/order"
)

type OrderRepository struct {
	store *Store
}

var (
	_ order.Repository  = (*OrderRepository)(nil)
	_ order.OrderWriter = (*OrderRepository)(nil)
)

func (r *OrderRepository) Insert(_ context.Context, o *order.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.numbers[o.OrderNumber]; taken {
		return order.ErrDuplicateOrderNumber
	}

	id, seq, err := r.store.nextID()
	if err != nil {
		return fmt.Errorf("repository: failed to generate order id: %w", err)
	}
	o.ID = id
	r.store.orders[id] = orderRow{order: *o.Clone(), seq: seq}
	r.store.numbers[o.OrderNumber] = id
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*order.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.store.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return row.order.Clone(), nil
}

func (r *OrderRepository) FindByOwnerOrEmail(_ context.Context, userID, email string) ([]order.Order, error) {
	return r.collect(func(o *order.Order) bool {
		if userID != "" && o.UserID == userID {
			return true
		}
		return email != "" && strings.EqualFold(o.CustomerEmail, email)
	}), nil
}

func (r *OrderRepository) FindAll(_ context.Context) ([]order.Order, error) {
	return r.collect(func(*order.Order) bool { return true }), nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	row.order.Status = status
	row.order.UpdatedAt = r.store.now().UTC()
	r.store.orders[id] = row
	return row.order.Clone(), nil
}

func (r *OrderRepository) UpdateRefund(_ context.Context, id, reason string) (*order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	if row.order.RefundStatus != order.RefundNone {
		return nil, order.ErrRefundAlreadyRequested
	}
	row.order.RefundStatus = order.RefundRequested
	row.order.RefundReason = reason
	row.order.UpdatedAt = r.store.now().UTC()
	r.store.orders[id] = row
	return row.order.Clone(), nil
}

// collect returns matching orders newest first.
func (r *OrderRepository) collect(match func(*order.Order) bool) []order.Order {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := make([]orderRow, 0)
	for _, row := range r.store.orders {
		if match(&row.order) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].order.Date.Equal(rows[j].order.Date) {
			return rows[i].order.Date.After(rows[j].order.Date)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.order.Clone())
	}
	return out
}
