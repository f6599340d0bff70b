package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyEmbedding is returned when the embedding service yields no vector.
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")

	// ErrInvalidParams is returned when forwarded request parameters cannot be
	// applied to the upstream request.
	ErrInvalidParams = errors.New("invalid completion parameters")
)

// APIError is a typed error reported by the completion service.
type APIError struct {
	// StatusCode is the HTTP status of the upstream response. Zero when unknown.
	StatusCode int

	// Code is the provider-specific error code. It may be a string or a number.
	Code any

	Type    string
	Message string

	// Body is the raw upstream response body, if any.
	Body string

	Err error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return "api error: " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Status returns the upstream status, or fallback when none was reported.
func (e *APIError) Status(fallback int) int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return fallback
}

// AsAPIError reports whether err carries an APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
