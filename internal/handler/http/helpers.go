package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/notification"
	"github.com/vasiliy-maslov/shop-service/internal/order"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

func init() {
	// Prices and totals are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondWithServiceError maps a service error to a status and writes it.
// 5xx responses carry fallback instead of the internal error text.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: verr.Details,
		})
		return
	}

	code := mapErrorToStatusCode(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, code, fallback)
		return
	}
	log.Warn().Err(err).Int("status", code).Msg("Request rejected")
	respondWithError(w, code, err.Error())
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, order.ErrRefundAlreadyRequested),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, user.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrAccessDenied),
		errors.Is(err, notification.ErrAccessDenied),
		errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrInactive),
		errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	err := v.Struct(dst)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
	} else {
		log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
	}
	return false
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fieldPath(fe)] = validationMessage(fe)
	}
	return details
}

// fieldPath turns "CreateOrderRequest.items[0].quantity" into "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func principalFrom(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	}
	return p, ok
}
