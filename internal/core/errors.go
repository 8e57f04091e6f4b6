// Package core provides domain types and the error taxonomy for the weather gateway.
package core

import (
	"fmt"
	"net/http"
)

// ErrorType classifies a gateway error.
type ErrorType string

const (
	// ErrorTypeInvalidInput indicates a malformed request key (e.g. a non-5-digit ZIP).
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeNotFound indicates the upstream confirmed the resource does not exist.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeRateLimited indicates the upstream 429 retry budget was exhausted.
	ErrorTypeRateLimited ErrorType = "rate_limit_exceeded"
	// ErrorTypeUpstreamServer indicates the upstream 5xx retry budget was exhausted.
	ErrorTypeUpstreamServer ErrorType = "upstream_server_error"
	// ErrorTypeNetwork indicates a connectivity or timeout failure with no HTTP classification.
	ErrorTypeNetwork ErrorType = "network_error"
	// ErrorTypeInvalidUpstreamData indicates a response that parsed but is semantically invalid.
	ErrorTypeInvalidUpstreamData ErrorType = "invalid_upstream_data"
)

// APIError is the base error type for all gateway errors.
type APIError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code to surface to a user-facing caller.
// Only invalid input and not-found map to client-visible codes; everything
// else is an internal failure with a generic message.
func (e *APIError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map for HTTP responses.
// Internal failure classes are collapsed to a generic message so upstream
// bodies never leak to clients.
func (e *APIError) ToJSON() map[string]interface{} {
	msg := e.Message
	if e.HTTPStatusCode() == http.StatusInternalServerError {
		msg = "an internal error occurred while fetching weather data"
	}
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": msg,
		},
	}
}

// NewInvalidInputError creates an error for malformed caller input (400).
func NewInvalidInputError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates an error for an upstream-confirmed missing resource (404).
func NewNotFoundError(provider, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Provider:   provider,
	}
}

// NewRateLimitError creates an error for an exhausted 429 retry budget.
func NewRateLimitError(provider, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Provider:   provider,
	}
}

// NewUpstreamServerError creates an error for an exhausted 5xx retry budget,
// carrying the last status seen from the upstream.
func NewUpstreamServerError(provider string, statusCode int, message string, err error) *APIError {
	return &APIError{
		Type:       ErrorTypeUpstreamServer,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewNetworkError creates an error for a transport-level failure.
func NewNetworkError(provider, message string, err error) *APIError {
	return &APIError{
		Type:     ErrorTypeNetwork,
		Message:  message,
		Provider: provider,
		Err:      err,
	}
}

// NewInvalidUpstreamDataError creates an error for a response that parsed but
// failed a sanity check (e.g. out-of-bounds coordinates).
func NewInvalidUpstreamDataError(provider, message string) *APIError {
	return &APIError{
		Type:     ErrorTypeInvalidUpstreamData,
		Message:  message,
		Provider: provider,
	}
}
