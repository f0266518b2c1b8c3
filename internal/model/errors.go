package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstreamError  = errors.New("upstream error")
	ErrRateLimited    = errors.New("rate limited")
	ErrNetwork        = errors.New("network error")
	ErrValidation     = errors.New("validation failed")
)

// APIError is a non-success response from the storefront API.
// StatusCode is the HTTP status; Message is what pages display.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError maps an HTTP status and display message to an APIError.
// The sentinel wrapped in Err follows the status class.
func NewAPIError(status int, message string) *APIError {
	e := &APIError{
		Message:    message,
		StatusCode: status,
	}

	switch {
	case status == http.StatusNotFound:
		e.Code, e.Err = "NOT_FOUND", ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code, e.Err = "UNAUTHORIZED", ErrUnauthorized
	case status == http.StatusTooManyRequests:
		e.Code, e.Err = "RATE_LIMITED", ErrRateLimited
	case status >= 400 && status < 500:
		e.Code, e.Err = "INVALID_REQUEST", ErrInvalidRequest
	default:
		e.Code, e.Err = "UPSTREAM_ERROR", ErrUpstreamError
	}
	return e
}

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	Op  string // storefront operation, e.g. "cart"
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// NewNetworkError wraps a transport failure for the given operation.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// ValidationError reports a malformed checkout form field.
// Field uses the wire name (e.g. "zip_code").
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
