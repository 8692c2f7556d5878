// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/facilitator/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrWorkshopNil     = errors.New("workshop cannot be nil")
	ErrInvalidWorkshop = errors.New("invalid workshop")
	ErrInvalidAnswer   = errors.New("invalid answer")

	// Business Logic Conflicts (409 Conflict).
	ErrJoinCodeUnavailable = errors.New("no unused join code could be generated")
)

// Absence errors shared with the persistence layer (404 Not Found).
var (
	ErrWorkshopNotFound      = persistence.ErrWorkshopNotFound
	ErrDraftNotFound         = persistence.ErrDraftNotFound
	ErrSessionNotFound       = persistence.ErrSessionNotFound
	ErrSessionRecordNotFound = persistence.ErrSessionRecordNotFound
	ErrParticipantNotFound   = persistence.ErrParticipantNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrWorkshopNil) ||
		errors.Is(err, ErrInvalidWorkshop) ||
		errors.Is(err, ErrInvalidAnswer)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrJoinCodeUnavailable)
}

// IsNotFoundError checks if an error reports an absent entity that should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
