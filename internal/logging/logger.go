// Package logging provides structured logging for PersonalVault on top of
// log/slog. Sensitive attributes (tokens, secrets) are masked by the handler
// before they reach any output.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu     sync.RWMutex
	global = slog.New(newHandler(DefaultConfig()))

	// Debug is set while the logger runs at debug level.
	Debug bool
)

// Config describes the global handler.
type Config struct {
	Level     slog.Level
	JSON      bool
	Output    io.Writer // stderr when nil
	AddSource bool
}

// DefaultConfig keeps the CLI quiet: only warnings and errors reach stderr.
func DefaultConfig() Config {
	return Config{Level: slog.LevelWarn, Output: os.Stderr}
}

// DebugConfig is what --debug installs.
func DebugConfig() Config {
	return Config{Level: slog.LevelDebug, JSON: true, Output: os.Stderr, AddSource: true}
}

func newHandler(cfg Config) slog.Handler {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource, ReplaceAttr: maskAttr}
	if cfg.JSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Init swaps the global logger. Loggers already returned by ForComponent
// keep writing to the previous handler.
func Init(cfg Config) {
	l := slog.New(newHandler(cfg))
	mu.Lock()
	global, Debug = l, cfg.Level <= slog.LevelDebug
	mu.Unlock()
}

func InitDebug() { Init(DebugConfig()) }

// InitFile routes JSON logs at level to an append-only file, creating its
// directory. The caller closes the returned file.
func InitFile(path string, level slog.Level) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	Init(Config{Level: level, JSON: true, Output: f})
	return f, nil
}

// Logger returns the global logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// ForComponent tags the global logger with a component name.
func ForComponent(name string) *slog.Logger {
	return Logger().With(KeyComponent, name)
}

func Info(msg string, args ...any)     { Logger().Info(msg, args...) }
func DebugLog(msg string, args ...any) { Logger().Debug(msg, args...) }
func Warn(msg string, args ...any)     { Logger().Warn(msg, args...) }
func Error(msg string, args ...any)    { Logger().Error(msg, args...) }

// The *Context variants add the request id carried by ctx.

func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).InfoContext(ctx, msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).DebugContext(ctx, msg, args...)
}

// Attribute keys shared across packages.
const (
	KeyRequestID = "request_id"
	KeyComponent = "component"
	KeyOperation = "op"
	KeyDuration  = "duration_ms"
	KeyError     = "error"
	KeyDomain    = "domain"
	KeyFile      = "file"
	KeyFileID    = "file_id"
	KeyFolderID  = "folder_id"
	KeyBackend   = "backend"
	KeyState     = "state"
	KeyStatus    = "status"
	KeyCount     = "count"
	KeyAttempt   = "attempt"
	KeyUser      = "user"
)
