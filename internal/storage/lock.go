package storage

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// LockFileName is the name of the lock file in the data directory.
	LockFileName = "personalvault.lock"
)

var (
	// ErrLockAcquireFailed is returned when the lock cannot be acquired.
	ErrLockAcquireFailed = stderrors.New("failed to acquire cache lock")
	// ErrLockAlreadyHeld is returned when another process holds the lock.
	ErrLockAlreadyHeld = stderrors.New("cache is locked by another process")
)

// FileLock is an advisory flock(2) lock. The cache has a single writer: the
// CLI or the daemon, never both.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock file handle in dir.
func NewFileLock(dir string) *FileLock {
	return &FileLock{path: filepath.Join(dir, LockFileName)}
}

// Acquire takes the lock without blocking.
func (l *FileLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if err := flockAcquire(file); err != nil {
		file.Close()
		if stderrors.Is(err, ErrLockAlreadyHeld) {
			if pid := l.readPID(); pid > 0 {
				return fmt.Errorf("%w: PID %d", ErrLockAlreadyHeld, pid)
			}
		}
		return err
	}

	// The PID is informational; the flock is what excludes other processes.
	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
		_ = file.Sync()
	}

	l.file = file
	return nil
}

// Release drops the lock and removes the lock file.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	defer func() { l.file = nil }()

	_ = os.Remove(l.path)
	if err := flockRelease(l.file); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// HolderPID returns the PID recorded by the current holder, or 0.
func (l *FileLock) HolderPID() int {
	return l.readPID()
}

func (l *FileLock) readPID() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// LockError explains a lock failure to the user.
type LockError struct {
	Err error
	PID int
}

func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("cannot open the local cache: another personalvault process (PID %d) is using it", e.PID)
	}
	return fmt.Sprintf("cannot open the local cache: %v", e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// NewLockError wraps err, extracting the holder PID when present.
func NewLockError(err error) *LockError {
	lockErr := &LockError{Err: err}
	if stderrors.Is(err, ErrLockAlreadyHeld) {
		if _, after, ok := strings.Cut(err.Error(), "PID "); ok {
			if pid, perr := strconv.Atoi(strings.TrimSpace(after)); perr == nil {
				lockErr.PID = pid
			}
		}
	}
	return lockErr
}
