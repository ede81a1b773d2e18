package domain

import (
	"errors"
	"fmt"
)

// Listing lifecycle and ledger errors. Handlers map these onto HTTP statuses.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidState   = errors.New("invalid listing state for this action")
	ErrSelfAction     = errors.New("you cannot perform this action on your own resource")
	ErrNotAuthorized  = errors.New("not authorized to perform this action")
	ErrNegativePoints = errors.New("points must not be negative")
	ErrValidation     = errors.New("validation failed")
)

// ErrRaceLost is returned when a conditional state update matched no row because a
// concurrent actor changed the listing first. It unwraps to ErrInvalidState.
var ErrRaceLost = fmt.Errorf("%w: listing was changed concurrently by someone else", ErrInvalidState)

// ValidationError carries a field-level message and unwraps to ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
