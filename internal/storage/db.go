// Package storage is the local cache: a synchronous key-value byte store on
// Badger that survives restarts. Every domain collection is stored whole
// under one key as JSON.
package storage

import (
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
)

const (
	// AppName is the application name used for data directories.
	AppName = "personalvault"
)

// DB wraps a Badger database.
type DB struct {
	db           *badger.DB
	path         string
	lock         *FileLock
	minFreeSpace uint64
}

// Options configures the cache.
type Options struct {
	// Path is the database directory path. Empty string uses in-memory mode.
	Path string
	// InMemory forces in-memory mode regardless of Path.
	InMemory bool
	// MinFreeSpace refuses writes when the volume has less free space.
	// Zero uses DefaultMinFreeSpace.
	MinFreeSpace uint64
	// Recover backs up and rebuilds a cache that fails to open.
	Recover bool
}

// DefaultPath returns the default cache path following XDG.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, AppName, "cache")
}

// Open opens or creates the cache. On-disk caches take an exclusive file
// lock so only one process writes at a time.
func Open(opts Options) (*DB, error) {
	if opts.InMemory || opts.Path == "" {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
		if err != nil {
			return nil, errors.Wrap(errors.ErrLocalCacheUnavailable, err.Error())
		}
		return &DB{db: db}, nil
	}

	if err := EnsureDirectory(opts.Path); err != nil {
		return nil, err
	}

	lock := NewFileLock(filepath.Dir(opts.Path))
	if err := lock.Acquire(); err != nil {
		return nil, NewLockError(err)
	}

	db, err := openDisk(opts.Path)
	if err != nil && opts.Recover && IsDatabaseCorrupted(err) {
		logging.Warn("cache failed to open, rebuilding", logging.KeyError, err)
		if rerr := ResetCache(opts.Path); rerr == nil {
			db, err = openDisk(opts.Path)
		}
	}
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("open cache at %s: %w", opts.Path, stderrors.Join(errors.ErrLocalCacheUnavailable, err))
	}

	minFree := opts.MinFreeSpace
	if minFree == 0 {
		minFree = DefaultMinFreeSpace
	}
	return &DB{db: db, path: opts.Path, lock: lock, minFreeSpace: minFree}, nil
}

func openDisk(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR).
		WithNumVersionsToKeep(1))
}

// Close closes the database and releases the process lock.
func (d *DB) Close() error {
	err := d.db.Close()
	if d.lock != nil {
		if lerr := d.lock.Release(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// Path returns the on-disk location, or "" for in-memory caches.
func (d *DB) Path() string {
	return d.path
}

// InMemory reports whether the cache is not persisted.
func (d *DB) InMemory() bool {
	return d.path == ""
}

// Badger returns the underlying Badger database for advanced operations.
func (d *DB) Badger() *badger.DB {
	return d.db
}
