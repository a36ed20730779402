package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/manav03panchal/personalvault/internal/validate"
)

// LocalFS stores domain files in a local directory, typically one kept in
// sync by another tool. Ids are absolute paths under the root.
type LocalFS struct {
	root string
}

var _ Backend = (*LocalFS)(nil)

// NewLocalFS creates a LocalFS rooted at root, creating it if needed.
func NewLocalFS(root string) (*LocalFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", abs, err)
	}
	return &LocalFS{root: abs}, nil
}

// Name implements Backend.
func (l *LocalFS) Name() string { return "localfs" }

// Root returns the directory holding the application folder.
func (l *LocalFS) Root() string { return l.root }

// FindFolder implements Backend.
func (l *LocalFS) FindFolder(ctx context.Context, name string) (string, bool, error) {
	p, err := l.child(l.root, name)
	if err != nil {
		return "", false, err
	}
	return l.stat(ctx, "find folder", p, true)
}

// CreateFolder implements Backend.
func (l *LocalFS) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.child(l.root, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", classifyFS("create folder", err)
	}
	return p, nil
}

// FindFile implements Backend.
func (l *LocalFS) FindFile(ctx context.Context, name, parentID string) (string, bool, error) {
	p, err := l.child(parentID, name)
	if err != nil {
		return "", false, err
	}
	return l.stat(ctx, "find file", p, false)
}

// CreateFile implements Backend.
func (l *LocalFS) CreateFile(ctx context.Context, parentID, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.child(parentID, name)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(p, content); err != nil {
		return "", classifyFS("create file", err)
	}
	return p, nil
}

// UpdateFile implements Backend.
func (l *LocalFS) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	if _, found, err := l.stat(ctx, "update file", fileID, false); err != nil {
		return err
	} else if !found {
		return NotFound("update file", os.ErrNotExist)
	}
	if err := writeAtomic(fileID, content); err != nil {
		return classifyFS("update file", err)
	}
	return nil
}

// ReadFile implements Backend.
func (l *LocalFS) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validate.IsWithinDirectory(fileID, l.root) {
		return nil, NotFound("read file", fmt.Errorf("%s is outside %s", fileID, l.root))
	}
	data, err := os.ReadFile(fileID)
	if err != nil {
		return nil, classifyFS("read file", err)
	}
	return data, nil
}

func (l *LocalFS) child(parent, name string) (string, error) {
	p := filepath.Join(parent, name)
	if !validate.IsWithinDirectory(p, l.root) || p == l.root {
		return "", NotFound("resolve", fmt.Errorf("%s is outside %s", p, l.root))
	}
	return p, nil
}

func (l *LocalFS) stat(ctx context.Context, op, p string, dir bool) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, classifyFS(op, err)
	}
	if info.IsDir() != dir {
		return "", false, nil
	}
	return p, true, nil
}

// writeAtomic writes to a temp file beside path and renames it over path.
func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func classifyFS(op string, err error) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return NotFound(op, err)
	}
	return Unavailable(op, err)
}
