package errors

import (
	"errors"
	"syscall"
)

// Category groups errors by who can act on them.
type Category int

const (
	CategoryUnknown Category = iota
	// CategoryUser covers bad input and anything fixed by signing in again.
	CategoryUser
	// CategorySystem covers the local cache and data that cannot be decoded.
	CategorySystem
	// CategoryRecoverable covers outages that the next sync retries.
	CategoryRecoverable
	CategoryInternal
)

var categoryNames = [...]string{
	CategoryUnknown:     "unknown",
	CategoryUser:        "user",
	CategorySystem:      "system",
	CategoryRecoverable: "recoverable",
	CategoryInternal:    "internal",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[CategoryUnknown]
	}
	return categoryNames[c]
}

// sentinelCategories is checked in order; the first sentinel found in the
// chain wins.
var sentinelCategories = []struct {
	target   error
	category Category
}{
	{ErrAuthExpired, CategoryUser},
	{ErrSignedOut, CategoryUser},
	{ErrInvalidDate, CategoryUser},
	{ErrInvalidURL, CategoryUser},
	{ErrNotFound, CategoryUser},
	{ErrRemoteUnavailable, CategoryRecoverable},
	{ErrBackendUnavailable, CategoryRecoverable},
	{ErrNetworkUnavailable, CategoryRecoverable},
	{ErrTimeout, CategoryRecoverable},
	{ErrLockHeld, CategoryRecoverable},
	{ErrMalformedRemoteData, CategorySystem},
	{ErrLocalCacheUnavailable, CategorySystem},
	{ErrDatabaseCorrupted, CategorySystem},
	{ErrDiskFull, CategorySystem},
	{ErrPermissionDenied, CategorySystem},
}

// errnoCategories covers raw syscall errors that escape without a sentinel.
var errnoCategories = map[syscall.Errno]Category{
	syscall.ENOSPC:       CategorySystem,
	syscall.EACCES:       CategorySystem,
	syscall.EPERM:        CategorySystem,
	syscall.EROFS:        CategorySystem,
	syscall.EIO:          CategorySystem,
	syscall.EAGAIN:       CategoryRecoverable,
	syscall.EINTR:        CategoryRecoverable,
	syscall.ETIMEDOUT:    CategoryRecoverable,
	syscall.ECONNREFUSED: CategoryRecoverable,
	syscall.ECONNRESET:   CategoryRecoverable,
}

// Classify derives the category of err from its typed wrappers, then the
// package sentinels, then any errno in the chain.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryUnknown
	case IsUserError(err):
		return CategoryUser
	case IsSystemError(err):
		return CategorySystem
	case IsRecoverableError(err):
		return CategoryRecoverable
	}

	for _, rule := range sentinelCategories {
		if errors.Is(err, rule.target) {
			return rule.category
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if c, ok := errnoCategories[errno]; ok {
			return c
		}
	}
	return CategoryUnknown
}

// ClassifiedError pins a category onto an error.
type ClassifiedError struct {
	Err      error
	Category Category
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }

func (e *ClassifiedError) Unwrap() error { return e.Err }

// WithCategory overrides the derived category of err.
func WithCategory(err error, category Category) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Err: err, Category: category}
}

// GetCategory prefers an explicit WithCategory over Classify.
func GetCategory(err error) Category {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return Classify(err)
}

func IsUserCategory(err error) bool { return GetCategory(err) == CategoryUser }

func IsSystemCategory(err error) bool { return GetCategory(err) == CategorySystem }

// IsRecoverableCategory reports whether a later sync can succeed without
// user action.
func IsRecoverableCategory(err error) bool { return GetCategory(err) == CategoryRecoverable }

// FormatByCategory renders err with the hint its category calls for.
func FormatByCategory(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	hint := GetSuggestion(err)

	switch GetCategory(err) {
	case CategoryUser:
		if hint != "" {
			msg += "\n\nTry: " + hint
		}
	case CategorySystem:
		msg = "System error: " + msg
		if hint != "" {
			msg += "\n\n" + hint
		}
	case CategoryRecoverable:
		msg += " (changes are kept locally and will sync later)"
	}
	return msg
}
