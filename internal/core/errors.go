package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client-fixable input problems.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for missing entities and for entities owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrInconsistent marks a broken internal invariant, e.g. a period missing right after creation.
	ErrInconsistent = errors.New("internal consistency error")
	// ErrUnauthenticated is returned when no owner can be resolved for a request.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError describes an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProviderError wraps a bank data provider failure for a single account.
type ProviderError struct {
	AccountID string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error for account %s: %v", e.AccountID, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
