package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/shop-service/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
}

func NewNotificationHandler(service notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.With(authenticate).Get("/notifications", h.handleListLogs)
}

func (h *NotificationHandler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListLogs(r.Context(), principal, r.URL.Query().Get("recipient"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to list notifications")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
