package domain

import (
	"fmt"
)

// ErrNotFound is returned when an entity does not exist
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with ID: %s", e.Entity, e.ID)
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error with the given message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}

// AuthError carries the HTTP status the authentication gate resolved to.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given status and message.
func NewAuthError(status int, message string) *AuthError {
	return &AuthError{Status: status, Message: message}
}

// QuotaExceededError is returned when a send would exceed the tenant's
// monthly email limit.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Monthly email limit reached. Used: %d/%d", e.Used, e.Limit)
}

// SenderDomainError is returned when the FROM address does not belong to
// the authenticated domain.
type SenderDomainError struct {
	Domain string
}

func (e *SenderDomainError) Error() string {
	return fmt.Sprintf("From address must use the authenticated domain: %s", e.Domain)
}
