// Package seed loads demo users and products into an empty store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

//go:embed fixtures/catalog.yaml
var defaultFixture []byte

type Fixture struct {
	Users    []UserFixture    `yaml:"users"`
	Products []ProductFixture `yaml:"products"`
}

type UserFixture struct {
	Email      string `yaml:"email"`
	Name       string `yaml:"name"`
	Password   string `yaml:"password"`
	Role       string `yaml:"role"`
	Phone      string `yaml:"phone"`
	Address    string `yaml:"address"`
	City       string `yaml:"city"`
	PostalCode string `yaml:"postal_code"`
	Country    string `yaml:"country"`
}

type ProductFixture struct {
	Name               string          `yaml:"name"`
	Description        string          `yaml:"description"`
	Image              string          `yaml:"image"`
	Category           string          `yaml:"category"`
	Price              decimal.Decimal `yaml:"price"`
	DiscountPercentage decimal.Decimal `yaml:"discount_percentage"`
	StockQuantity      int             `yaml:"stock_quantity"`
	Sizes              []string        `yaml:"sizes"`
	Colors             []string        `yaml:"colors"`
}

// Load reads a fixture from path, or the embedded demo fixture when path is empty.
func Load(path string) (*Fixture, error) {
	data := defaultFixture
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read seed fixture: %w", err)
		}
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixture: %w", err)
	}
	return &f, nil
}

type Result struct {
	Users    int
	Products int
}

type Seeder struct {
	products catalog.Service
	catalog  catalog.Repository
	users    user.Service
}

func NewSeeder(products catalog.Service, repo catalog.Repository, users user.Service) *Seeder {
	return &Seeder{products: products, catalog: repo, users: users}
}

// Run creates the fixture's users, skipping emails that already exist, and
// its products only when the catalog is empty.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (Result, error) {
	var res Result

	for _, u := range f.Users {
		_, err := s.users.CreateUser(ctx, user.CreateInput{
			Email:      u.Email,
			Name:       u.Name,
			Password:   u.Password,
			Role:       auth.Role(u.Role),
			Phone:      u.Phone,
			Address:    u.Address,
			City:       u.City,
			PostalCode: u.PostalCode,
			Country:    u.Country,
		})
		if errors.Is(err, user.ErrEmailExists) {
			log.Debug().Str("email", u.Email).Msg("seed: user already exists")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed: user %s: %w", u.Email, err)
		}
		res.Users++
	}

	n, err := s.catalog.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("seed: failed to count products: %w", err)
	}
	if n > 0 {
		log.Info().Int64("products", n).Msg("seed: catalog not empty, skipping products")
		return res, nil
	}

	for _, p := range f.Products {
		_, err := s.products.CreateProduct(ctx, catalog.CreateInput{
			Name:               p.Name,
			Description:        p.Description,
			Image:              p.Image,
			Category:           catalog.Category(p.Category),
			Price:              p.Price,
			DiscountPercentage: p.DiscountPercentage,
			StockQuantity:      p.StockQuantity,
			Sizes:              p.Sizes,
			Colors:             p.Colors,
		})
		if err != nil {
			return res, fmt.Errorf("seed: product %s: %w", p.Name, err)
		}
		res.Products++
	}

	log.Info().Int("users", res.Users).Int("products", res.Products).Msg("seed: done")
	return res, nil
}
