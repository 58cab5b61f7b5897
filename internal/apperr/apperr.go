// Package apperr defines the sentinel errors shared across the service.
// Handlers match them with errors.Is and translate them to HTTP statuses.
package apperr

import "errors"

var (
	// ErrValidation marks bad or missing input, detected before any side effect.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks an absent location or record.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a failed upstream call.
	ErrUnavailable = errors.New("service unavailable")
)
