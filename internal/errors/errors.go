package errors

import (
	"errors"
	"fmt"
)

// Common error types for the inventory API client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRefreshInvalid     = errors.New("refresh token invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")

	// Transport errors
	ErrNetwork          = errors.New("network error")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrResponseSchema   = errors.New("response does not match schema")

	// Resource errors
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// Session errors
	ErrInvariant       = errors.New("session invariant violated")
	ErrSessionCorrupt  = errors.New("stored session corrupt")
	ErrUpdateConflict  = errors.New("session update conflict")
	ErrUnknownResource = errors.New("unknown resource")
)

// APIError describes a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Body       map[string]any
	Kind       error
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Kind, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
