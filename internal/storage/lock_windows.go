//go:build windows

package storage

import "os"

// Windows has no advisory flock. Badger's own directory lock still keeps a
// second process out of the cache.
func flockAcquire(file *os.File) error { return nil }

func flockRelease(file *os.File) error { return nil }
