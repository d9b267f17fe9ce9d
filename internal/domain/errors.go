package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel error kinds - match with errors.Is()
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrCycle              = errors.New("cannot move a document into its own subtree")
	ErrInvalidTarget      = errors.New("invalid move target")
	ErrMultipleRoots      = errors.New("documents do not share a single root")
	ErrDecodeFailed       = errors.New("decode failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrValidation         = errors.New("validation failed")
	ErrConfig             = errors.New("invalid configuration")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// NotFoundError indicates a resource was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string   { return e.Resource + " not found: " + e.ID }
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError indicates invalid input
type ValidationError struct {
	Message string
	Err     error // underlying field errors, if any
}

func (e *ValidationError) Error() string   { return e.Message }
func (e *ValidationError) Unwrap() error   { return e.Err }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError wraps field errors (e.g. from ozzo-validation) as a ValidationError.
func NewValidationError(err error) *ValidationError {
	return &ValidationError{Message: err.Error(), Err: err}
}

// ConflictError represents a concurrent modification or unique path violation
type ConflictError struct {
	Message      string
	ResourceType string
	ResourceID   string
}

func (e *ConflictError) Error() string   { return e.Message }
func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ServiceUnavailableError reports a failed or timed-out call to an outbound service.
// The original cause stays reachable through Unwrap.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return e.Service + " unavailable: " + e.Err.Error()
}

func (e *ServiceUnavailableError) Unwrap() error   { return e.Err }
func (e *ServiceUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// Is allows errors.Is() to match against ErrServiceUnavailable
func (e *ServiceUnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}
