// Package remote is the adapter between the domain repositories and the
// user's remote object store. A Backend speaks one store's protocol; Store
// layers folder/file resolution, the handle cache, auth recovery and the
// failure breaker on top of any Backend.
package remote

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/manav03panchal/personalvault/internal/errors"
)

// ContentType is the media type of every domain file.
const ContentType = "application/json"

// Backend is one remote store implementation. Identifiers are opaque to
// callers: Drive uses file ids, path-based stores use paths or keys.
//
// Errors must wrap errors.ErrRemoteUnavailable, errors.ErrAuthExpired or
// errors.ErrRemoteNotFound so Store can react to them.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// FindFolder returns the id of the first folder named name.
	FindFolder(ctx context.Context, name string) (id string, found bool, err error)
	// CreateFolder creates a folder and returns its id.
	CreateFolder(ctx context.Context, name string) (string, error)
	// FindFile returns the id of the first file named name inside parentID.
	FindFile(ctx context.Context, name, parentID string) (id string, found bool, err error)
	// CreateFile creates a file with content inside parentID.
	CreateFile(ctx context.Context, parentID, name string, content []byte) (string, error)
	// UpdateFile replaces the content of an existing file.
	UpdateFile(ctx context.Context, fileID string, content []byte) error
	// ReadFile returns the full content of a file.
	ReadFile(ctx context.Context, fileID string) ([]byte, error)
}

// TokenRefresher renews the credentials a Backend authenticates with.
type TokenRefresher interface {
	Refresh(ctx context.Context) error
}

// TokenRefresherFunc adapts a function to TokenRefresher.
type TokenRefresherFunc func(ctx context.Context) error

// Refresh calls f.
func (f TokenRefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Handle is a resolved remote location for one domain file.
type Handle struct {
	FolderID string `json:"folderId"`
	FileID   string `json:"fileId,omitempty"`
}

// Resolved reports whether the file itself exists remotely.
func (h Handle) Resolved() bool {
	return h.FileID != ""
}

// Unavailable wraps err as a transient remote failure.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, stderrors.Join(errors.ErrRemoteUnavailable, err))
}

// AuthExpired wraps err as an authorization failure.
func AuthExpired(op string, err error) error {
	return fmt.Errorf("%s: %w", op, stderrors.Join(errors.ErrAuthExpired, err))
}

// NotFound wraps err as a missing remote object.
func NotFound(op string, err error) error {
	return fmt.Errorf("%s: %w", op, stderrors.Join(errors.ErrRemoteNotFound, err))
}

// classifyStatus maps an HTTP status from any backend onto the taxonomy.
func classifyStatus(op string, status int, err error) error {
	switch {
	case status == 401 || status == 403:
		return AuthExpired(op, err)
	case status == 404 || status == 410:
		return NotFound(op, err)
	default:
		return Unavailable(op, err)
	}
}

// classifyTransport maps errors that carry no HTTP status (network failures,
// timeouts) to unavailability. Cancellation by the caller passes through.
func classifyTransport(op string, err error) error {
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return Unavailable(op, err)
}
