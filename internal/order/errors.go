package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInsufficientStock      = errors.New("out of stock")
	ErrAccessDenied           = errors.New("access denied")
	ErrRefundAlreadyRequested = errors.New("refund already requested")

	// ErrDuplicateOrderNumber is returned by stores when the order number
	// unique index rejects an insert. The engine retries on it.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrConflict is returned by stores when a transaction lost a write
	// conflict and may be re-run from the start.
	ErrConflict = errors.New("transaction conflict")

	ErrEmptyCart = &ValidationError{Details: map[string]string{"items": "order items are required"}}
)

// ValidationError reports malformed input, keyed by field name.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Details[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Details: map[string]string{field: msg}}
}
