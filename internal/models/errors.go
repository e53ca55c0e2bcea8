package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrHasDependents      = errors.New("has dependents")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
)

// Error is a domain failure. It unwraps to one of the sentinel kinds above so
// callers can branch with errors.Is.
type Error struct {
	Kind   error
	Entity string
	// Referenced is set when the missing entity was referenced by the one
	// being written rather than addressed directly.
	Referenced bool
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NewNotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Message: entity + " not found"}
}

func NewReferenceNotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Referenced: true, Message: entity + " not found"}
}

func NewDuplicateKey(entity, key string) error {
	return &Error{Kind: ErrDuplicateKey, Entity: entity, Message: fmt.Sprintf("%s %s already exists", entity, key)}
}

// NewHasDependents names the child collection that blocked a delete
func NewHasDependents(entity, children string) error {
	return &Error{
		Kind:    ErrHasDependents,
		Entity:  entity,
		Message: fmt.Sprintf("Cannot delete %s with existing %s", entity, children),
	}
}

func NewInvariantViolation(entity, message string) error {
	return &Error{Kind: ErrInvariantViolation, Entity: entity, Message: message}
}

func NewValidation(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

func NewInsufficientFunds() error {
	return &Error{Kind: ErrInsufficientFunds, Entity: "Account", Message: "Insufficient funds"}
}

// Code is the machine-readable name of an error kind
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, ErrHasDependents):
		return "has_dependents"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "internal"
	}
}
