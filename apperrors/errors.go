package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies application errors for the HTTP boundary.
type ErrorType string

const (
	// ErrorTypeValidation indicates malformed or missing input.
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates an id lookup miss.
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeConflict indicates a duplicate key on write.
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates missing or bad credentials.
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeForbidden indicates valid credentials without the needed role.
	ErrorTypeForbidden ErrorType = "FORBIDDEN"

	// ErrorTypeStore indicates a persistence failure.
	ErrorTypeStore ErrorType = "STORE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	// Field names the offending request parameter or body field, if any.
	Field string
	Err   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeConflict:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Field:   field,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// NewStoreError wraps a persistence failure.
func NewStoreError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStore,
		Message: message,
		Err:     err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}
