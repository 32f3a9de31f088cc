package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a match request names an item id that
// does not resolve. Surfaced directly to the caller; not retried.
var ErrNotFound = errors.New("item not found")

// ErrServiceUnavailable is returned when the query item has no usable
// embedding and the encoder cannot produce one. Retryable by the caller.
var ErrServiceUnavailable = errors.New("embedding service unavailable")

// ErrValidation is returned when input fails field-level validation.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}
