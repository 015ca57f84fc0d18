package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidCategory = errors.New("invalid category")
)

var hundred = decimal.NewFromInt(100)

type Service interface {
	CreateProduct(ctx context.Context, in CreateInput) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, category Category) ([]Product, error)
	SearchProducts(ctx context.Context, query string, category Category) ([]Product, error)
	UpdateProduct(ctx context.Context, id string, in UpdateInput) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type CreateInput struct {
	Name               string
	Description        string
	Image              string
	Category           Category
	Price              decimal.Decimal
	DiscountPercentage decimal.Decimal
	StockQuantity      int
	Sizes              []string
	Colors             []string
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name               *string
	Description        *string
	Image              *string
	Category           *Category
	Price              *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	StockQuantity      *int
	Sizes              []string
	Colors             []string
	IsActive           *bool
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateProduct(ctx context.Context, in CreateInput) (*Product, error) {
	p := &Product{
		Name:               strings.TrimSpace(in.Name),
		Description:        in.Description,
		Image:              in.Image,
		Category:           in.Category,
		Price:              in.Price,
		DiscountPercentage: in.DiscountPercentage,
		StockQuantity:      in.StockQuantity,
		Sizes:              nonNil(in.Sizes),
		Colors:             nonNil(in.Colors),
		IsActive:           true,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("service: product created")
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product by id: %w", err)
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context, category Category) ([]Product, error) {
	return s.SearchProducts(ctx, "", category)
}

func (s *service) SearchProducts(ctx context.Context, query string, category Category) ([]Product, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	products, err := s.repo.List(ctx, Filter{
		Category:   category,
		Query:      strings.TrimSpace(query),
		ActiveOnly: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, in UpdateInput) (*Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.DiscountPercentage != nil {
		p.DiscountPercentage = *in.DiscountPercentage
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.Sizes != nil {
		p.Sizes = in.Sizes
	}
	if in.Colors != nil {
		p.Colors = in.Colors
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	log.Info().Str("product_id", id).Msg("service: product updated")
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Str("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}

	log.Info().Str("product_id", id).Msg("service: product deleted")
	return nil
}

func validateProduct(p *Product) error {
	switch {
	case len(p.Name) < 2:
		return fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidProduct)
	case !p.Category.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidCategory, p.Category)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	case p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred):
		return fmt.Errorf("%w: discount percentage must be between 0 and 100", ErrInvalidProduct)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrInvalidProduct)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
