package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger. Callers match with errors.Is; the
// concrete types carry the human-readable detail.
var (
	ErrValidation           = errors.New("validation failed")
	ErrReferentialIntegrity = errors.New("registry entry is still referenced")
	ErrStoreUnavailable     = errors.New("ledger store unavailable")
	ErrNotFound             = errors.New("not found")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
)

// ValidationError reports a single malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ReferentialIntegrityError reports a registry deletion blocked by
// existing transaction references.
type ReferentialIntegrityError struct {
	Kind RegistryKind
	ID   string
	Refs int64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %q is referenced by %d transaction(s)", e.Kind, e.ID, e.Refs)
}

func (e *ReferentialIntegrityError) Unwrap() error { return ErrReferentialIntegrity }
