package reconcile

import (
	"errors"
	"fmt"
)

// PassError represents a per-entry failure detected during a remap pass.
//
// Pass errors include:
//   - Conflict: a remap's destination key is already claimed in-category
//   - Duplicate claim: a second identical entry tried to journal itself
//   - Unresolvable entry: a journaled record matches no live entry
//   - Corrupt fingerprint: a journal record violated the wire grammar
//
// A pass never aborts on one of these; they are collected into the
// PassReport and logged, and the pass continues with the next entry.
type PassError struct {
	// Code identifies the error category.
	Code PassErrorCode

	// Message is a human-readable description.
	Message string

	// Category identifies the affected keymap category.
	Category string

	// Operator identifies the affected operator, when known.
	Operator string

	// Key is the key character involved, when known.
	Key string
}

// PassErrorCode categorizes pass errors.
type PassErrorCode string

const (
	// ErrCodeConflict indicates a remap destination is already claimed.
	ErrCodeConflict PassErrorCode = "CONFLICT"

	// ErrCodeDuplicateClaim indicates a second identical entry tried to
	// journal itself; the first record wins.
	ErrCodeDuplicateClaim PassErrorCode = "DUPLICATE_CLAIM"

	// ErrCodeUnresolvable indicates a journaled record that no live entry
	// matches anymore.
	ErrCodeUnresolvable PassErrorCode = "UNRESOLVABLE_ENTRY"

	// ErrCodeCorruptFingerprint indicates a journal record violated the
	// wire grammar and was discarded.
	ErrCodeCorruptFingerprint PassErrorCode = "CORRUPT_FINGERPRINT"

	// ErrCodeMutationForbidden indicates the host rejected a keymap write
	// at the current lifecycle point.
	ErrCodeMutationForbidden PassErrorCode = "HOST_MUTATION_FORBIDDEN"
)

// Error implements the error interface.
func (e *PassError) Error() string {
	switch {
	case e.Category != "" && e.Operator != "":
		return fmt.Sprintf("%s: %s (category=%s, operator=%s)", e.Code, e.Message, e.Category, e.Operator)
	case e.Category != "":
		return fmt.Sprintf("%s: %s (category=%s)", e.Code, e.Message, e.Category)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsConflict reports whether the error is a destination conflict.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeConflict
	}
	return false
}

// IsUnresolvable reports whether the error is an unresolvable-entry error.
func IsUnresolvable(err error) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeUnresolvable
	}
	return false
}

// IsMutationForbidden reports whether the error is a host mutation refusal.
func IsMutationForbidden(err error) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMutationForbidden
	}
	return false
}

// NewConflictError creates a PassError for a claimed destination key.
func NewConflictError(category, operator, source, target string) *PassError {
	return &PassError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("destination %q for %q is already claimed", target, source),
		Category: category,
		Operator: operator,
		Key:      target,
	}
}

// NewUnresolvableError creates a PassError for a record no live entry
// matches.
func NewUnresolvableError(category, operator, source, target string) *PassError {
	return &PassError{
		Code:     ErrCodeUnresolvable,
		Message:  fmt.Sprintf("journaled remap %s -> %s matches no live entry", source, target),
		Category: category,
		Operator: operator,
		Key:      source,
	}
}
