// Package apperr holds the error taxonomy shared by the account services.
// Stores and services return these (optionally wrapped) so handlers can map
// them to responses with errors.Is / errors.As.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrAuthFailure is the only failure an authentication caller ever sees.
	ErrAuthFailure = errors.New("invalid credentials")
	// ErrConflict reports a state-machine violation, e.g. creating a record twice.
	ErrConflict = errors.New("conflict")
	// ErrNotFound reports an operation on a record that does not exist.
	ErrNotFound = errors.New("not found")
)

// Field error codes.
const (
	CodeRequired  = "required"
	CodeInvalid   = "invalid"
	CodeTooLong   = "too_long"
	CodeTooShort  = "too_short"
	CodeDuplicate = "duplicate"
	CodeMismatch  = "mismatch"
	CodeForbidden = "forbidden"
)

// ValidationError carries field-level problems (field -> code). It is
// recoverable: the user corrects the input and resubmits.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// FieldError is shorthand for a ValidationError with a single field.
func FieldError(field, code string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: code}}
}

// Add records a code for field; the first code recorded for a field wins.
func (e *ValidationError) Add(field, code string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = code
	}
}

func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil returns nil for an empty ValidationError so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
