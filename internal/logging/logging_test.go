package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelDebug, JSON: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestDefaultConfigIsQuiet(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelWarn, cfg.Level)
	assert.False(t, cfg.JSON)
}

func TestInitDebugSetsFlag(t *testing.T) {
	InitDebug()
	t.Cleanup(func() { Init(DefaultConfig()) })
	assert.True(t, Debug)
}

func TestStructuredFields(t *testing.T) {
	buf := captureJSON(t)

	ForComponent("syncer").Info("flush complete", KeyDomain, "notes", KeyCount, 3)

	line := lastLine(t, buf)
	assert.Equal(t, "flush complete", line["msg"])
	assert.Equal(t, "syncer", line[KeyComponent])
	assert.Equal(t, "notes", line[KeyDomain])
	assert.EqualValues(t, 3, line[KeyCount])
}

func TestLevelsFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info("hidden")
	DebugLog("hidden")
	Warn("shown")
	Error("shown too")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "shown too")
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	f, err := InitFile(path, slog.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(func() {
		Init(DefaultConfig())
		f.Close()
	})

	Info("started", KeyState, "running")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"running"`)
}

// =============================================================================
// Masking Tests
// =============================================================================

func TestSensitiveAttributesAreMasked(t *testing.T) {
	buf := captureJSON(t)

	Info("token refreshed", "access_token", "ya29.secret", "refreshToken", "1//secret", KeyUser, "a@b.c")

	line := lastLine(t, buf)
	assert.Equal(t, maskedValue, line["access_token"])
	assert.Equal(t, maskedValue, line["refreshToken"])
	assert.Equal(t, "a@b.c", line[KeyUser])
	assert.NotContains(t, buf.String(), "ya29.secret")
}

func TestErrorValuesAreMasked(t *testing.T) {
	buf := captureJSON(t)

	err := errors.New("POST https://oauth2.googleapis.com/token?refresh_token=1//abc&x=1 failed: Bearer ya29.zzz")
	Error("refresh failed", KeyError, err)

	out := buf.String()
	assert.NotContains(t, out, "1//abc")
	assert.NotContains(t, out, "ya29.zzz")
	assert.Contains(t, out, "refresh_token=***")
}

func TestIsSensitiveField(t *testing.T) {
	assert.True(t, IsSensitiveField("Authorization"))
	assert.True(t, IsSensitiveField("client_secret"))
	assert.True(t, IsSensitiveField("code_verifier"))
	assert.False(t, IsSensitiveField(KeyDomain))
	assert.False(t, IsSensitiveField(KeyFileID))
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "Authorization: Bearer ***", MaskString("Authorization: Bearer abc.def"))
	assert.Equal(t, "/callback?code=***&state=xyz", MaskString("/callback?code=4/0Ab&state=xyz"))
	assert.Equal(t, "status_code=500", MaskString("status_code=500"))
	assert.Equal(t, "ya2***", MaskPartial("ya29.token", 3))
	assert.Equal(t, "***", MaskPartial("ab", 3))
}

// =============================================================================
// Context Tests
// =============================================================================

func TestRequestIDs(t *testing.T) {
	id := GenerateRequestID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, GenerateRequestID())

	ctx := NewRequestContext(context.Background())
	assert.NotEmpty(t, RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestContextLoggingCarriesRequestID(t *testing.T) {
	buf := captureJSON(t)

	ctx := WithRequestID(context.Background(), "req-1234")
	InfoContext(ctx, "preload", KeyDomain, "habits")

	line := lastLine(t, buf)
	assert.Equal(t, "req-1234", line[KeyRequestID])
}
