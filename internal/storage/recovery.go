package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
)

// RecoveryStatus is the result of a cache health check.
type RecoveryStatus struct {
	Healthy    bool      `json:"healthy"`
	Corrupted  bool      `json:"corrupted"`
	LastCheck  time.Time `json:"lastCheck"`
	Keys       int       `json:"keys"`
	ErrorCount int       `json:"errorCount"`
	Errors     []string  `json:"errors,omitempty"`
	// Unparseable lists keys whose value is not valid JSON.
	Unparseable []string `json:"unparseable,omitempty"`
}

// CheckIntegrity reads every value and verifies the domain keys hold JSON.
func CheckIntegrity(db *DB) *RecoveryStatus {
	status := &RecoveryStatus{LastCheck: time.Now(), Healthy: true}

	if db == nil || db.db == nil {
		status.Healthy = false
		status.Corrupted = true
		status.Errors = append(status.Errors, "cache not initialized")
		return status
	}

	err := db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			status.Keys++
			err := item.Value(func(val []byte) error {
				if !json.Valid(val) {
					status.Unparseable = append(status.Unparseable, key)
				}
				return nil
			})
			if err != nil {
				status.Errors = append(status.Errors, fmt.Sprintf("unreadable value at key %s: %v", key, err))
				status.ErrorCount++
			}
		}
		return nil
	})
	if err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("iteration error: %v", err))
		status.ErrorCount++
	}

	if status.ErrorCount > 0 {
		status.Healthy = false
		status.Corrupted = true
	}
	if len(status.Unparseable) > 0 {
		status.Healthy = false
	}
	return status
}

// Err summarizes an unhealthy status, or returns nil.
func (s *RecoveryStatus) Err() error {
	switch {
	case s.Healthy:
		return nil
	case s.Corrupted:
		return fmt.Errorf("%w: %s", errors.ErrDatabaseCorrupted, strings.Join(s.Errors, "; "))
	default:
		return fmt.Errorf("%d keys hold unreadable values: %s", len(s.Unparseable), strings.Join(s.Unparseable, ", "))
	}
}

// Export writes every readable key as one JSON object. Values that are JSON
// are embedded as-is; others are written as strings.
func Export(db *DB, w io.Writer) (int, error) {
	snap, err := db.Snapshot()
	if err != nil {
		return 0, err
	}

	out := make(map[string]json.RawMessage, len(snap))
	for k, v := range snap {
		if json.Valid(v) {
			out[k] = v
			continue
		}
		quoted, _ := json.Marshal(string(v))
		out[k] = quoted
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(out), nil
}

// Import loads an Export document back into the cache.
func Import(db *DB, r io.Reader) (int, error) {
	var in map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}
	pairs := make(map[string][]byte, len(in))
	for k, v := range in {
		pairs[k] = v
	}
	if err := db.SetMany(pairs); err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// CreateBackup copies the cache directory next to it and returns the copy's path.
func CreateBackup(dbPath string) (string, error) {
	if dbPath == "" {
		return "", fmt.Errorf("cache path is empty")
	}

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	backupPath := filepath.Join(backupDir, "cache-"+time.Now().Format("20060102-150405"))
	if err := os.CopyFS(backupPath, os.DirFS(dbPath)); err != nil {
		return "", fmt.Errorf("failed to copy cache: %w", err)
	}

	logging.Info("cache backup created", logging.KeyOperation, "backup", "path", backupPath)
	return backupPath, nil
}

// ResetCache backs up and then removes an unusable cache directory. The
// remote store remains the source for rebuilding it.
func ResetCache(dbPath string) error {
	backup, err := CreateBackup(dbPath)
	if err != nil {
		logging.Warn("backup before reset failed", logging.KeyError, err)
	}
	if err := os.RemoveAll(dbPath); err != nil {
		return errors.NewSystemErrorWithOp("reset cache", "cannot remove cache directory", err)
	}
	logging.Warn("cache reset", "backup_path", backup)
	return nil
}

var corruptionPatterns = []string{
	"checksum mismatch",
	"corrupt",
	"unexpected eof",
	"bad magic",
	"truncated",
	"manifest",
}

// IsDatabaseCorrupted reports whether err looks like on-disk corruption.
func IsDatabaseCorrupted(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, errors.ErrDatabaseCorrupted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range corruptionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
