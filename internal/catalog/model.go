package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFemale  Category = "Female"
	CategoryMale    Category = "Male"
	CategoryKids    Category = "Kids"
	CategoryGeneral Category = "General"
)

func (c Category) String() string {
	return string(c)
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFemale, CategoryMale, CategoryKids, CategoryGeneral:
		return true
	default:
		return false
	}
}

// LowStockThreshold is the quantity at or below which a product is flagged low_stock.
const LowStockThreshold = 10

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

type Product struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Image              string          `json:"image"`
	Category           Category        `json:"category"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	StockQuantity      int             `json:"stockQuantity"`
	Sizes              []string        `json:"sizes"`
	Colors             []string        `json:"colors"`
	IsActive           bool            `json:"isActive"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func (p *Product) StockStatus() StockStatus {
	switch {
	case p.StockQuantity <= 0:
		return StockOutOfStock
	case p.StockQuantity <= LowStockThreshold:
		return StockLowStock
	default:
		return StockInStock
	}
}

// Clone returns a copy that shares no slices with p.
func (p *Product) Clone() *Product {
	cp := *p
	cp.Sizes = append([]string{}, p.Sizes...)
	cp.Colors = append([]string{}, p.Colors...)
	return &cp
}

// Filter narrows List results. Zero value lists every product.
type Filter struct {
	Category   Category
	Query      string
	ActiveOnly bool
}
