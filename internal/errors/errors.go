// Package errors provides the error taxonomy shared by PersonalVault.
// Errors fall into three categories: UserError (fixable by the user),
// SystemError (environment problems) and RecoverableError (transient, the
// operation can simply be tried again later).
package errors

import (
	"errors"
	"fmt"
)

// Sync failure sentinels. Remote adapters and repositories wrap these so
// callers can branch with errors.Is.
var (
	// ErrRemoteUnavailable covers network failures, timeouts, rate limiting
	// and server errors from the remote object store.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrAuthExpired is returned when the remote store rejects the access
	// token (401/403) and a silent refresh could not recover it.
	ErrAuthExpired = errors.New("authorization expired")
	// ErrMalformedRemoteData means a remote file exists but does not parse.
	ErrMalformedRemoteData = errors.New("malformed remote data")
	// ErrLocalCacheUnavailable means the local cache could not be read or
	// written.
	ErrLocalCacheUnavailable = errors.New("local cache unavailable")
	// ErrRemoteNotFound is returned when a cached remote id no longer exists.
	ErrRemoteNotFound = errors.New("remote object not found")
	// ErrSignedOut is returned by operations that need a session.
	ErrSignedOut = errors.New("not signed in")
	// ErrBackendUnavailable means the chat/coach backend could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// General sentinels.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrDiskFull           = errors.New("disk full")
	ErrDatabaseCorrupted  = errors.New("database corrupted")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrLockHeld           = errors.New("database locked by another process")
	ErrTimeout            = errors.New("operation timed out")
	ErrPermissionDenied   = errors.New("permission denied")
)

// UserError represents an error that the user can fix.
type UserError struct {
	Message    string // What happened
	Suggestion string // How to fix it
	Field      string // Offending input (optional)
	Value      string // Offending value (optional)
}

func (e *UserError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s: '%s'", e.Message, e.Value)
	}
	return e.Message
}

// NewUserError creates a new UserError.
func NewUserError(message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion}
}

// NewUserErrorWithField creates a new UserError with field context.
func NewUserErrorWithField(field, value, message, suggestion string) *UserError {
	return &UserError{Message: message, Field: field, Value: value, Suggestion: suggestion}
}

// SystemError represents a system-level error the user cannot directly fix.
type SystemError struct {
	Message string
	Cause   error
	Op      string
}

func (e *SystemError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s during %s", e.Message, e.Op)
	}
	return e.Message
}

func (e *SystemError) Unwrap() error {
	return e.Cause
}

// NewSystemError creates a new SystemError.
func NewSystemError(message string, cause error) *SystemError {
	return &SystemError{Message: message, Cause: cause}
}

// NewSystemErrorWithOp creates a new SystemError with operation context.
func NewSystemErrorWithOp(op, message string, cause error) *SystemError {
	return &SystemError{Message: message, Cause: cause, Op: op}
}

// RecoverableError is a transient failure. Domain identifies the collection
// whose write is still pending, if any.
type RecoverableError struct {
	Message string
	Cause   error
	Domain  string
}

func (e *RecoverableError) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Domain)
	}
	return e.Message
}

func (e *RecoverableError) Unwrap() error {
	return e.Cause
}

// NewRecoverableError creates a new RecoverableError.
func NewRecoverableError(message string, cause error) *RecoverableError {
	return &RecoverableError{Message: message, Cause: cause}
}

// IsUserError checks if an error is a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// IsSystemError checks if an error is a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// IsRecoverableError checks if an error is a RecoverableError.
func IsRecoverableError(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}

// AsUserError extracts a UserError from an error chain.
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	ok := errors.As(err, &ue)
	return ue, ok
}

// IsRemoteUnavailable reports whether err means the remote could not be reached.
func IsRemoteUnavailable(err error) bool { return errors.Is(err, ErrRemoteUnavailable) }

// IsAuthExpired reports whether err is an authorization failure.
func IsAuthExpired(err error) bool { return errors.Is(err, ErrAuthExpired) }

// IsMalformed reports whether err is a remote parse failure.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformedRemoteData) }

// IsNotFound reports whether err is a missing remote object or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRemoteNotFound) || errors.Is(err, ErrNotFound)
}

// Is is errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// New is errors.New.
func New(text string) error { return errors.New(text) }
