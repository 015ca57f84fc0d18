package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/order"
)

type ProductRepository struct {
	store *Store
}

var (
	_ catalog.Repository = (*ProductRepository)(nil)
	_ order.StockStore   = (*ProductRepository)(nil)
)

func (r *ProductRepository) Create(_ context.Context, p *catalog.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	id, seq, err := r.store.nextID()
	if err != nil {
		return fmt.Errorf("repository: failed to generate product id: %w", err)
	}
	now := r.store.now().UTC()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	r.store.products[id] = productRow{product: *p.Clone(), seq: seq}
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.store.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return row.product.Clone(), nil
}

func (r *ProductRepository) List(_ context.Context, f catalog.Filter) ([]catalog.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := make([]productRow, 0, len(r.store.products))
	for _, row := range r.store.products {
		p := row.product
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if !containsIgnoreCase(p.Name, f.Query) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.product.Clone())
	}
	return out, nil
}

func (r *ProductRepository) Update(_ context.Context, p *catalog.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.products[p.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	p.CreatedAt = row.product.CreatedAt
	p.UpdatedAt = r.store.now().UTC()
	row.product = *p.Clone()
	r.store.products[p.ID] = row
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.store.products, id)
	return nil
}

func (r *ProductRepository) Count(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.products)), nil
}

// DecrementStock is the compare-and-decrement primitive: check and write
// happen under one lock.
func (r *ProductRepository) DecrementStock(_ context.Context, id string, qty int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.products[id]
	if !ok || !row.product.IsActive || row.product.StockQuantity < qty {
		return 0, nil
	}
	row.product.StockQuantity -= qty
	row.product.UpdatedAt = r.store.now().UTC()
	r.store.products[id] = row
	return 1, nil
}

func (r *ProductRepository) IncrementStock(_ context.Context, id string, qty int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	row.product.StockQuantity += qty
	row.product.UpdatedAt = r.store.now().UTC()
	r.store.products[id] = row
	return nil
}
