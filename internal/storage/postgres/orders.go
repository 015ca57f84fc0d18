package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/shop-service/internal/order"
)

const orderNumberConstraint = "orders_order_number_key"

type OrderRepository struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

var (
	_ order.Repository  = (*OrderRepository)(nil)
	_ order.OrderWriter = (*OrderRepository)(nil)
)

// Insert writes the order outside any checkout transaction. It exists for
// the compensating unit of work and for tests.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("order_number", o.OrderNumber).Msg("repository: failed to rollback order insert")
			}
		}
	}()

	if err = insertOrder(ctx, tx, o); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit order insert: %w", err)
	}
	return nil
}

func insertOrder(ctx context.Context, q querier, o *order.Order) error {
	id, err := newID()
	if err != nil {
		return fmt.Errorf("repository: failed to generate order id: %w", err)
	}

	query := `
		INSERT INTO orders (id, order_number, user_id, customer_name, customer_email, total, status,
			refund_status, refund_reason, date, shipping_address, city, postal_code, country, created_at, updated_at)
		VALUES ($1::uuid, $2, NULLIF($3, '')::uuid, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = q.Exec(ctx, query,
		id,
		o.OrderNumber,
		userIDParam(o.UserID),
		o.CustomerName,
		o.CustomerEmail,
		o.Total.String(),
		string(o.Status),
		string(o.RefundStatus),
		o.RefundReason,
		o.Date,
		o.ShippingAddress,
		o.City,
		o.PostalCode,
		o.Country,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, orderNumberConstraint):
			return fmt.Errorf("repository: order number %s: %w", o.OrderNumber, order.ErrDuplicateOrderNumber)
		case conflict(err):
			return fmt.Errorf("repository: insert order: %w", order.ErrConflict)
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, position, product_id, name, quantity, price)
		VALUES ($1::uuid, $2, $3::uuid, $4, $5, $6::numeric)
	`
	for i, item := range o.Items {
		if _, err = q.Exec(ctx, itemQuery, id, i, item.ProductID, item.Name, item.Quantity, item.Price.String()); err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", id, err)
		}
	}

	o.ID = id
	return nil
}

// userIDParam keeps ids from other backends (e.g. a guest) out of the uuid column.
func userIDParam(id string) string {
	if !validID(id) {
		return ""
	}
	return id
}

type orderRow struct {
	ID              string          `db:"id"`
	OrderNumber     string          `db:"order_number"`
	UserID          string          `db:"user_id"`
	CustomerName    string          `db:"customer_name"`
	CustomerEmail   string          `db:"customer_email"`
	Total           decimal.Decimal `db:"total"`
	Status          string          `db:"status"`
	RefundStatus    string          `db:"refund_status"`
	RefundReason    string          `db:"refund_reason"`
	Date            time.Time       `db:"date"`
	ShippingAddress string          `db:"shipping_address"`
	City            string          `db:"city"`
	PostalCode      string          `db:"postal_code"`
	Country         string          `db:"country"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type itemRow struct {
	OrderID   string          `db:"order_id"`
	ProductID string          `db:"product_id"`
	Name      string          `db:"name"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
}

const orderSelect = `
	SELECT id::text, order_number, COALESCE(user_id::text, '') AS user_id, customer_name, customer_email,
		total, status, refund_status, refund_reason, date, shipping_address, city, postal_code, country,
		created_at, updated_at
	FROM orders`

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	if !validID(id) {
		return nil, order.ErrOrderNotFound
	}

	var row orderRow
	if err := r.db.GetContext(ctx, &row, orderSelect+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	orders, err := r.withItems(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) FindByOwnerOrEmail(ctx context.Context, userID, email string) ([]order.Order, error) {
	query := orderSelect + `
		WHERE (user_id IS NOT NULL AND user_id::text = $1) OR lower(customer_email) = lower($2)
		ORDER BY date DESC, created_at DESC`

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, email); err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	return r.withItems(ctx, rows)
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]order.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, orderSelect+` ORDER BY date DESC, created_at DESC`); err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	return r.withItems(ctx, rows)
}

// withItems loads the lines of all rows with one query and keeps row order.
func (r *OrderRepository) withItems(ctx context.Context, rows []orderRow) ([]order.Order, error) {
	if len(rows) == 0 {
		return []order.Order{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var items []itemRow
	query := `
		SELECT order_id::text, product_id::text, name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}

	byOrder := make(map[string][]order.Item, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	out := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		lines := byOrder[row.ID]
		if lines == nil {
			lines = []order.Item{}
		}
		out = append(out, order.Order{
			ID:              row.ID,
			OrderNumber:     row.OrderNumber,
			UserID:          row.UserID,
			CustomerName:    row.CustomerName,
			CustomerEmail:   row.CustomerEmail,
			Total:           row.Total,
			Status:          order.Status(row.Status),
			RefundStatus:    order.RefundStatus(row.RefundStatus),
			RefundReason:    row.RefundReason,
			Items:           lines,
			Date:            row.Date,
			ShippingAddress: row.ShippingAddress,
			City:            row.City,
			PostalCode:      row.PostalCode,
			Country:         row.Country,
			CreatedAt:       row.CreatedAt,
			UpdatedAt:       row.UpdatedAt,
		})
	}
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	if !validID(id) {
		return nil, order.ErrOrderNotFound
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1::uuid`,
		id, string(status), time.Now().UTC(),
	)
	if err != nil {
		log.Error().Err(err).Str("order_id", id).Stringer("new_status", status).Msg("repository: failed to update order status")
		return nil, fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		log.Warn().Str("order_id", id).Stringer("new_status", status).Msg("repository: order not found for status update")
		return nil, order.ErrOrderNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) UpdateRefund(ctx context.Context, id, reason string) (*order.Order, error) {
	if !validID(id) {
		return nil, order.ErrOrderNotFound
	}

	cmdTag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET refund_status = $2, refund_reason = $3, updated_at = $4
		WHERE id = $1::uuid AND refund_status = $5
	`, id, string(order.RefundRequested), reason, time.Now().UTC(), string(order.RefundNone))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to update refund of order %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1::uuid)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("repository: failed to check order %s: %w", id, err)
		}
		if !exists {
			return nil, order.ErrOrderNotFound
		}
		return nil, order.ErrRefundAlreadyRequested
	}
	return r.FindByID(ctx, id)
}
