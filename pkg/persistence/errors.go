// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkshopNotFound indicates no workshop exists with the given id.
	ErrWorkshopNotFound = errors.New("workshop not found")

	// ErrDraftNotFound indicates no draft exists for the given workshop id.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrSessionNotFound indicates no session exists with the given id or join code.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionRecordNotFound indicates no history record exists with the given id.
	ErrSessionRecordNotFound = errors.New("session record not found")

	// ErrParticipantNotFound indicates the session has no participant with the given id.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrCorruptNamespace indicates a stored list could not be decoded.
	ErrCorruptNamespace = errors.New("stored namespace is corrupt")
)

// EntityError wraps repository errors with the entity they concern.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity string // Entity family (e.g., "workshop", "session")
	ID     string // Entity id if applicable
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op, entity, id string, err error) *EntityError {
	return &EntityError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsWorkshopNotFound checks if an error indicates a workshop was not found.
func IsWorkshopNotFound(err error) bool {
	return errors.Is(err, ErrWorkshopNotFound)
}

// IsDraftNotFound checks if an error indicates a draft was not found.
func IsDraftNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound)
}

// IsSessionNotFound checks if an error indicates a session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsSessionRecordNotFound checks if an error indicates a history record was not found.
func IsSessionRecordNotFound(err error) bool {
	return errors.Is(err, ErrSessionRecordNotFound)
}

// IsParticipantNotFound checks if an error indicates a participant was not found.
func IsParticipantNotFound(err error) bool {
	return errors.Is(err, ErrParticipantNotFound)
}

// IsNotFound reports any of the absence errors.
func IsNotFound(err error) bool {
	return IsWorkshopNotFound(err) ||
		IsDraftNotFound(err) ||
		IsSessionNotFound(err) ||
		IsSessionRecordNotFound(err) ||
		IsParticipantNotFound(err)
}
