package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manav03panchal/personalvault/internal/errors"
)

const (
	// DefaultMinFreeSpace is the minimum free space required for writes (10MB).
	DefaultMinFreeSpace = 10 * 1024 * 1024
	// DefaultMinFreeSpaceWarning is the low disk space warning threshold (50MB).
	DefaultMinFreeSpaceWarning = 50 * 1024 * 1024
)

// DiskSpaceInfo contains information about available disk space.
type DiskSpaceInfo struct {
	Path       string
	TotalBytes uint64
	FreeBytes  uint64
	UsedBytes  uint64
}

// FreePercent returns the percentage of free space.
func (d *DiskSpaceInfo) FreePercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.FreeBytes) / float64(d.TotalBytes) * 100
}

// CheckDiskSpace fails with ErrDiskFull when fewer than minFree bytes are
// available at path. A volume that cannot be inspected passes.
func CheckDiskSpace(path string, minFree uint64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return nil
	}
	if info.FreeBytes < minFree {
		return errors.NewSystemError(
			fmt.Sprintf("insufficient disk space: %d MB free, need at least %d MB",
				info.FreeBytes/(1024*1024), minFree/(1024*1024)),
			errors.ErrDiskFull,
		)
	}
	return nil
}

// DiskSpaceWarning returns a warning when free space is below threshold.
func DiskSpaceWarning(path string, threshold uint64) string {
	info, err := GetDiskSpace(path)
	if err != nil || info.FreeBytes >= threshold {
		return ""
	}
	return fmt.Sprintf("Low disk space (%d MB free)", info.FreeBytes/(1024*1024))
}

// existingAncestor returns path or its nearest ancestor that exists.
func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// EnsureDirectory creates a directory with owner-only permissions.
func EnsureDirectory(path string) error {
	if err := CheckDiskSpace(filepath.Dir(path), DefaultMinFreeSpace); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		if isDiskFullError(err) {
			return errors.NewSystemErrorWithOp("mkdir", "disk full", errors.ErrDiskFull)
		}
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
