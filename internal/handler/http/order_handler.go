package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/order"
)

type CartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderRequest falls back to the caller's name and email when the
// customer fields are omitted.
type CreateOrderRequest struct {
	CustomerName    string            `json:"customerName" validate:"omitempty,min=2"`
	CustomerEmail   string            `json:"customerEmail" validate:"omitempty,email"`
	Items           []CartItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string            `json:"shippingAddress"`
	City            string            `json:"city"`
	PostalCode      string            `json:"postalCode"`
	Country         string            `json:"country"`
}

type RefundRequest struct {
	RefundReason string `json:"refundReason" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Processing Shipped Delivered"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes mounts the order routes. authenticate must put an
// auth.Principal in the request context.
func (h *OrderHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Route("/orders", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", h.handleCreateOrder)
		r.Get("/my-orders", h.handleListMyOrders)
		r.With(auth.RequireRole(auth.RoleAdmin)).Get("/admin/all", h.handleListAllOrders)
		r.Get("/{id}", h.handleGetOrder)
		r.Patch("/{id}/request-refund", h.handleRequestRefund)
		r.With(auth.RequireRole(auth.RoleAdmin)).Patch("/{id}/status", h.handleUpdateStatus)
	})
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var requestPayload CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	in := order.CreateOrderInput{
		CustomerName:    requestPayload.CustomerName,
		CustomerEmail:   requestPayload.CustomerEmail,
		Items:           make([]order.CartLine, 0, len(requestPayload.Items)),
		ShippingAddress: requestPayload.ShippingAddress,
		City:            requestPayload.City,
		PostalCode:      requestPayload.PostalCode,
		Country:         requestPayload.Country,
	}
	if in.CustomerName == "" {
		in.CustomerName = principal.Name
	}
	if in.CustomerEmail == "" {
		in.CustomerEmail = principal.Email
	}
	for _, item := range requestPayload.Items {
		in.Items = append(in.Items, order.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	created, err := h.service.CreateOrder(r.Context(), in, principal)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, order.NewSummary(created))
}

func (h *OrderHandler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListForUser(r.Context(), principal)
	if err != nil {
		respondWithServiceError(w, err, "Failed to fetch orders")
		return
	}
	respondWithJSON(w, http.StatusOK, order.NewSummaries(orders))
}

func (h *OrderHandler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to fetch orders")
		return
	}
	respondWithJSON(w, http.StatusOK, order.NewSummaries(orders))
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		respondWithServiceError(w, err, "Failed to fetch order")
		return
	}
	respondWithJSON(w, http.StatusOK, order.NewDetail(found))
}

func (h *OrderHandler) handleRequestRefund(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var requestPayload RefundRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.service.RequestRefund(r.Context(), chi.URLParam(r, "id"), principal, requestPayload.RefundReason)
	if err != nil {
		respondWithServiceError(w, err, "Failed to request refund")
		return
	}
	respondWithJSON(w, http.StatusOK, order.NewSummary(updated))
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var requestPayload UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(requestPayload.Status))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}
	respondWithJSON(w, http.StatusOK, order.NewSummary(updated))
}
