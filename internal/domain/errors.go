package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound record not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate duplicate record
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidInput invalid input data
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthenticated caller is not authenticated
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden caller is not allowed to perform the operation
	ErrForbidden = errors.New("forbidden")

	// ErrGatewayUnavailable the billing gateway failed or was unreachable
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrNoActiveEntitlement extend called on an account with no expiry set
	ErrNoActiveEntitlement = errors.New("no active entitlement")

	// ErrAlreadyEntitled grant called on a currently entitled account
	ErrAlreadyEntitled = errors.New("account is already entitled")

	// ErrInternal internal error
	ErrInternal = errors.New("internal error")
)

// GatewayError carries the HTTP status and raw body of a failed
// gateway call.
type GatewayError struct {
	Operation   string
	StatusCode  int
	Body        string
	OriginalErr error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("gateway %s failed: %v", e.Operation, e.OriginalErr)
	}
	return fmt.Sprintf("gateway %s failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Unwrap returns the underlying transport error, if any.
func (e *GatewayError) Unwrap() error {
	return e.OriginalErr
}

// Is lets errors.Is(err, ErrGatewayUnavailable) match any gateway error.
func (e *GatewayError) Is(target error) bool {
	return target == ErrGatewayUnavailable
}

// NewGatewayError creates a GatewayError for a non-2xx response.
func NewGatewayError(operation string, statusCode int, body string) *GatewayError {
	return &GatewayError{
		Operation:  operation,
		StatusCode: statusCode,
		Body:       body,
	}
}

// WrapGatewayError creates a GatewayError for a transport failure.
func WrapGatewayError(operation string, err error) *GatewayError {
	return &GatewayError{
		Operation:   operation,
		OriginalErr: err,
	}
}

// NotFoundError carries which entity was missing.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is makes every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
