package errors

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Typed Error Tests
// =============================================================================

func TestUserErrorError(t *testing.T) {
	assert.Equal(t, "bad", NewUserError("bad", "fix").Error())
	assert.Equal(t, "invalid date: 'soonish'",
		NewUserErrorWithField("date", "soonish", "invalid date", "").Error())
}

func TestSystemErrorUnwrap(t *testing.T) {
	err := NewSystemErrorWithOp("open cache", "cannot open", ErrLocalCacheUnavailable)
	assert.Equal(t, "cannot open during open cache", err.Error())
	assert.ErrorIs(t, err, ErrLocalCacheUnavailable)
	assert.True(t, IsSystemError(fmt.Errorf("outer: %w", err)))
}

func TestRecoverableErrorDomain(t *testing.T) {
	err := &RecoverableError{Message: "flush failed", Cause: ErrRemoteUnavailable, Domain: "notes"}
	assert.Equal(t, "flush failed (notes)", err.Error())
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.True(t, IsRecoverableError(err))
}

func TestSentinelHelpers(t *testing.T) {
	assert.True(t, IsRemoteUnavailable(Wrap(ErrRemoteUnavailable, "write notes.json")))
	assert.True(t, IsAuthExpired(Wrapf(ErrAuthExpired, "read %s", "habits.json")))
	assert.True(t, IsMalformed(Wrap(ErrMalformedRemoteData, "decode")))
	assert.True(t, IsNotFound(ErrRemoteNotFound))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsRemoteUnavailable(ErrAuthExpired))
	assert.Nil(t, Wrap(nil, "nothing"))
}

// =============================================================================
// Classification Tests
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"user", NewUserError("x", ""), CategoryUser},
		{"auth expired", Wrap(ErrAuthExpired, "refresh"), CategoryUser},
		{"signed out", ErrSignedOut, CategoryUser},
		{"remote unavailable", Wrap(ErrRemoteUnavailable, "read"), CategoryRecoverable},
		{"backend unavailable", ErrBackendUnavailable, CategoryRecoverable},
		{"cache", ErrLocalCacheUnavailable, CategorySystem},
		{"malformed", ErrMalformedRemoteData, CategorySystem},
		{"enospc", fmt.Errorf("write: %w", syscall.ENOSPC), CategorySystem},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), CategoryRecoverable},
		{"plain", New("boom"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWithCategoryOverrides(t *testing.T) {
	err := WithCategory(ErrRemoteUnavailable, CategoryInternal)
	assert.Equal(t, CategoryInternal, GetCategory(err))
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Nil(t, WithCategory(nil, CategoryUser))
}

func TestFormatByCategory(t *testing.T) {
	msg := FormatByCategory(ErrAuthExpired)
	assert.Contains(t, msg, "authorization expired")
	assert.Contains(t, msg, "personalvault login")

	msg = FormatByCategory(ErrRemoteUnavailable)
	assert.Contains(t, msg, "will sync later")

	assert.Equal(t, "", FormatByCategory(nil))
}

// =============================================================================
// Suggestion & Debug Formatting Tests
// =============================================================================

func TestGetSuggestion(t *testing.T) {
	assert.Contains(t, GetSuggestion(Wrap(ErrSignedOut, "sync")), "login")
	assert.Equal(t, "do this", GetSuggestion(NewUserError("x", "do this")))
	assert.Empty(t, GetSuggestion(New("unknown")))
	assert.Empty(t, GetSuggestion(nil))
}

func TestChainAndRootCause(t *testing.T) {
	err := Wrap(Wrap(ErrRemoteUnavailable, "inner"), "outer")

	chain := Chain(err)
	require.Len(t, chain, 3)
	assert.Equal(t, "outer: inner: remote store unavailable", chain[0])
	assert.Equal(t, ErrRemoteUnavailable, RootCause(err))
}

func TestFormatDebugErrorIncludesStack(t *testing.T) {
	err := WithStack(Wrap(ErrMalformedRemoteData, "decode habits.json"))
	assert.True(t, HasStack(err))

	out := FormatDebugError(err)
	assert.Contains(t, out, "Error: decode habits.json")
	assert.Contains(t, out, "Category: system")
	assert.Contains(t, out, "Stack trace:")
	assert.Contains(t, out, "TestFormatDebugErrorIncludesStack")
}

func TestFormatUserError(t *testing.T) {
	out := FormatUserError(ErrLockHeld)
	assert.Contains(t, out, "database locked")
	assert.Contains(t, out, "daemon stop")
}
