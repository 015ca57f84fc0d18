package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

// Repository is the catalog store. Stock is changed here only by admin
// updates; checkout goes through the conditional decrement of its unit of work.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, f Filter) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
