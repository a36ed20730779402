package remote

import (
	"context"
	stderrors "errors"
	"os"
	"path"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAV stores domain files on a WebDAV share. Ids are absolute paths on
// the share.
type WebDAV struct {
	client *gowebdav.Client
}

var _ Backend = (*WebDAV)(nil)

// NewWebDAV creates a WebDAV backend for the share at endpoint.
func NewWebDAV(endpoint, user, password string, timeout time.Duration) *WebDAV {
	c := gowebdav.NewClient(endpoint, user, password)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &WebDAV{client: c}
}

// Name implements Backend.
func (w *WebDAV) Name() string { return "webdav" }

// FindFolder implements Backend.
func (w *WebDAV) FindFolder(ctx context.Context, name string) (string, bool, error) {
	return w.stat(ctx, "find folder", path.Join("/", name), true)
}

// CreateFolder implements Backend.
func (w *WebDAV) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := path.Join("/", name)
	if err := w.client.MkdirAll(p, 0o755); err != nil {
		return "", classifyWebDAV("create folder", err)
	}
	return p, nil
}

// FindFile implements Backend.
func (w *WebDAV) FindFile(ctx context.Context, name, parentID string) (string, bool, error) {
	return w.stat(ctx, "find file", path.Join(parentID, name), false)
}

// CreateFile implements Backend.
func (w *WebDAV) CreateFile(ctx context.Context, parentID, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, found, err := w.stat(ctx, "create file", parentID, true); err != nil {
		return "", err
	} else if !found {
		return "", NotFound("create file", os.ErrNotExist)
	}

	p := path.Join(parentID, name)
	if err := w.client.Write(p, content, 0o644); err != nil {
		return "", classifyWebDAV("create file", err)
	}
	return p, nil
}

// UpdateFile implements Backend. A PUT would recreate a deleted file, so the
// file must still exist.
func (w *WebDAV) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	if _, found, err := w.stat(ctx, "update file", fileID, false); err != nil {
		return err
	} else if !found {
		return NotFound("update file", os.ErrNotExist)
	}
	if err := w.client.Write(fileID, content, 0o644); err != nil {
		return classifyWebDAV("update file", err)
	}
	return nil
}

// ReadFile implements Backend.
func (w *WebDAV) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := w.client.Read(fileID)
	if err != nil {
		return nil, classifyWebDAV("read file", err)
	}
	return data, nil
}

func (w *WebDAV) stat(ctx context.Context, op, p string, dir bool) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	info, err := w.client.Stat(p)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return "", false, nil
		}
		return "", false, classifyWebDAV(op, err)
	}
	if info.IsDir() != dir {
		return "", false, nil
	}
	return p, true, nil
}

func classifyWebDAV(op string, err error) error {
	var se gowebdav.StatusError
	if stderrors.As(err, &se) {
		return classifyStatus(op, se.Status, err)
	}
	return classifyTransport(op, err)
}
