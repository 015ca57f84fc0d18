package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewAuthHandler(service user.Service) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.With(authenticate).Get("/me", h.handleMe)
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	session, err := h.service.Register(r.Context(), user.RegisterInput{
		Email:    requestPayload.Email,
		Name:     requestPayload.Name,
		Password: requestPayload.Password,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to register user")
		return
	}
	respondWithJSON(w, http.StatusCreated, session)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	session, err := h.service.Login(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetProfile(r.Context(), principal.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}
