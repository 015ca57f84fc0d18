package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
)

type CreateProductRequest struct {
	Name               string          `json:"name" validate:"required,min=2"`
	Description        string          `json:"description"`
	Image              string          `json:"image" validate:"required"`
	Category           string          `json:"category" validate:"required,oneof=Female Male Kids General"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	StockQuantity      int             `json:"stockQuantity" validate:"min=0"`
	Sizes              []string        `json:"sizes"`
	Colors             []string        `json:"colors"`
}

type UpdateProductRequest struct {
	Name               *string          `json:"name,omitempty" validate:"omitempty,min=2"`
	Description        *string          `json:"description,omitempty"`
	Image              *string          `json:"image,omitempty"`
	Category           *string          `json:"category,omitempty" validate:"omitempty,oneof=Female Male Kids General"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
	StockQuantity      *int             `json:"stockQuantity,omitempty" validate:"omitempty,min=0"`
	Sizes              []string         `json:"sizes,omitempty"`
	Colors             []string         `json:"colors,omitempty"`
	IsActive           *bool            `json:"isActive,omitempty"`
}

type ProductResponse struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Image              string              `json:"image"`
	Category           catalog.Category    `json:"category"`
	Price              decimal.Decimal     `json:"price"`
	DiscountPercentage decimal.Decimal     `json:"discountPercentage"`
	StockQuantity      int                 `json:"stockQuantity"`
	StockStatus        catalog.StockStatus `json:"stockStatus"`
	LowStock           bool                `json:"lowStock"`
	LowStockCount      int                 `json:"lowStockCount"`
	Sizes              []string            `json:"sizes"`
	Colors             []string            `json:"colors"`
	IsActive           bool                `json:"isActive"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// newProductResponse reports LowStockCount as the remaining quantity while
// the product is low on stock and 0 otherwise.
func newProductResponse(p *catalog.Product) ProductResponse {
	status := p.StockStatus()
	lowStockCount := 0
	if status == catalog.StockLowStock {
		lowStockCount = p.StockQuantity
	}
	return ProductResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Image:              p.Image,
		Category:           p.Category,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		StockQuantity:      p.StockQuantity,
		StockStatus:        status,
		LowStock:           status == catalog.StockLowStock,
		LowStockCount:      lowStockCount,
		Sizes:              orEmpty(p.Sizes),
		Colors:             orEmpty(p.Colors),
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func newProductResponses(products []catalog.Product) []ProductResponse {
	resp := make([]ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, newProductResponse(&products[i]))
	}
	return resp
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(service catalog.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes mounts the catalog. Reads are public; writes need
// authenticate plus an admin or brand-partner role.
func (h *ProductHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleListProducts)
		r.Get("/search", h.handleSearchProducts)
		r.Get("/{id}", h.handleGetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.With(auth.RequireRole(auth.RoleAdmin, auth.RoleBrandPartner)).Post("/", h.handleCreateProduct)
			r.With(auth.RequireRole(auth.RoleAdmin, auth.RoleBrandPartner)).Patch("/{id}", h.handleUpdateProduct)
			r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/{id}", h.handleDeleteProduct)
		})
	})
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	category := catalog.Category(r.URL.Query().Get("category"))
	products, err := h.service.ListProducts(r.Context(), category)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponses(products))
}

func (h *ProductHandler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		query = q.Get("q")
	}
	products, err := h.service.SearchProducts(r.Context(), query, catalog.Category(q.Get("category")))
	if err != nil {
		respondWithServiceError(w, err, "Failed to search products")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponses(products))
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	if !p.IsActive {
		respondWithError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponse(p))
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), catalog.CreateInput{
		Name:               requestPayload.Name,
		Description:        requestPayload.Description,
		Image:              requestPayload.Image,
		Category:           catalog.Category(requestPayload.Category),
		Price:              requestPayload.Price,
		DiscountPercentage: requestPayload.DiscountPercentage,
		StockQuantity:      requestPayload.StockQuantity,
		Sizes:              requestPayload.Sizes,
		Colors:             requestPayload.Colors,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, newProductResponse(created))
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload UpdateProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	in := catalog.UpdateInput{
		Name:               requestPayload.Name,
		Description:        requestPayload.Description,
		Image:              requestPayload.Image,
		Price:              requestPayload.Price,
		DiscountPercentage: requestPayload.DiscountPercentage,
		StockQuantity:      requestPayload.StockQuantity,
		Sizes:              requestPayload.Sizes,
		Colors:             requestPayload.Colors,
		IsActive:           requestPayload.IsActive,
	}
	if requestPayload.Category != nil {
		c := catalog.Category(*requestPayload.Category)
		in.Category = &c
	}

	updated, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponse(updated))
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
