package core

import (
	"errors"
	"fmt"
)

// Error kinds used to decide fallback behavior. Adapters classify remote
// failures into one of these at the boundary; the cascade and guarantee
// engine dispatch on errors.Is.
var (
	// ErrQueryMalformed marks a structured query the remote rejected as
	// invalid (syntax error, unknown field, limit exceeded). Recoverable by
	// falling back to a cheaper query form.
	ErrQueryMalformed = errors.New("structured query rejected")

	// ErrPermission marks an authorization or OAuth scope failure. Not
	// recoverable by substitution; it signals a configuration problem.
	ErrPermission = errors.New("permission or scope denied")

	// ErrTransient marks a network or rate-limit failure. Recoverable by
	// falling back once, never by repeating the same call.
	ErrTransient = errors.New("transient transport failure")

	// ErrNoteRejected marks a note the remote refused to create on a
	// specific record. Recoverable by retargeting, never by retrying the
	// same target.
	ErrNoteRejected = errors.New("note creation rejected")

	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("record not found")
)

// ConfigurationError aborts startup; nothing downstream can substitute for a
// missing credential or module name.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for the given field.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}
