package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/order"
)

const productColumns = `id::text, name, description, image, category, price::text, discount_percentage::text,
	stock_quantity, sizes, colors, is_active, created_at, updated_at`

type ProductRepository struct {
	q  querier
	db *sqlx.DB
}

var (
	_ catalog.Repository = (*ProductRepository)(nil)
	_ order.StockStore   = (*ProductRepository)(nil)
)

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	id, err := newID()
	if err != nil {
		return fmt.Errorf("repository: failed to generate product id: %w", err)
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO products (id, name, description, image, category, price, discount_percentage,
			stock_quantity, sizes, colors, is_active, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $12)
	`
	_, err = r.q.Exec(ctx, query,
		id,
		p.Name,
		p.Description,
		p.Image,
		string(p.Category),
		p.Price.String(),
		p.DiscountPercentage.String(),
		p.StockQuantity,
		nonNil(p.Sizes),
		nonNil(p.Colors),
		p.IsActive,
		now,
	)
	if err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("repository: failed to insert product")
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	return getProduct(ctx, r.q, id)
}

func getProduct(ctx context.Context, q querier, id string) (*catalog.Product, error) {
	if !validID(id) {
		return nil, catalog.ErrNotFound
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1::uuid`
	p, err := scanProduct(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p                   catalog.Product
		category            string
		price, discountText string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Image,
		&category,
		&price,
		&discountText,
		&p.StockQuantity,
		&p.Sizes,
		&p.Colors,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Category = catalog.Category(category)
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("repository: bad price %q: %w", price, err)
	}
	if p.DiscountPercentage, err = decimal.NewFromString(discountText); err != nil {
		return nil, fmt.Errorf("repository: bad discount %q: %w", discountText, err)
	}
	return &p, nil
}

// productRow is the sqlx projection of products.
type productRow struct {
	ID                 string          `db:"id"`
	Name               string          `db:"name"`
	Description        string          `db:"description"`
	Image              string          `db:"image"`
	Category           string          `db:"category"`
	Price              decimal.Decimal `db:"price"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage"`
	StockQuantity      int             `db:"stock_quantity"`
	Sizes              pq.StringArray  `db:"sizes"`
	Colors             pq.StringArray  `db:"colors"`
	IsActive           bool            `db:"is_active"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func (row productRow) product() catalog.Product {
	return catalog.Product{
		ID:                 row.ID,
		Name:               row.Name,
		Description:        row.Description,
		Image:              row.Image,
		Category:           catalog.Category(row.Category),
		Price:              row.Price,
		DiscountPercentage: row.DiscountPercentage,
		StockQuantity:      row.StockQuantity,
		Sizes:              []string(row.Sizes),
		Colors:             []string(row.Colors),
		IsActive:           row.IsActive,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func (r *ProductRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	query := `SELECT id, name, description, image, category, price, discount_percentage,
		stock_quantity, sizes, colors, is_active, created_at, updated_at FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}

	out := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.product())
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	if !validID(p.ID) {
		return catalog.ErrNotFound
	}
	now := time.Now().UTC()

	query := `
		UPDATE products
		SET name = $2, description = $3, image = $4, category = $5, price = $6::numeric,
			discount_percentage = $7::numeric, stock_quantity = $8, sizes = $9, colors = $10,
			is_active = $11, updated_at = $12
		WHERE id = $1::uuid
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Image,
		string(p.Category),
		p.Price.String(),
		p.DiscountPercentage.String(),
		p.StockQuantity,
		nonNil(p.Sizes),
		nonNil(p.Colors),
		p.IsActive,
		now,
	).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	p.UpdatedAt = now
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return catalog.ErrNotFound
	}
	cmdTag, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: failed to count products: %w", err)
	}
	return n, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (int64, error) {
	return decrementStock(ctx, r.q, id, qty)
}

func (r *ProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	if !validID(id) {
		return catalog.ErrNotFound
	}
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now() WHERE id = $1::uuid`,
		id, qty,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to restore stock of %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// decrementStock is the compare-and-decrement: the stock predicate is
// re-evaluated against the row version the UPDATE locks.
func decrementStock(ctx context.Context, q querier, id string, qty int) (int64, error) {
	if !validID(id) {
		return 0, nil
	}
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1::uuid AND is_active AND stock_quantity >= $2
	`
	cmdTag, err := q.Exec(ctx, query, id, qty)
	if err != nil {
		if conflict(err) {
			return 0, fmt.Errorf("repository: decrement of %s: %w", id, order.ErrConflict)
		}
		return 0, fmt.Errorf("repository: failed to decrement stock of %s: %w", id, err)
	}
	return cmdTag.RowsAffected(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
