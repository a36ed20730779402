package daemon

import (
	"encoding/json"
	"os"
	"strings"
)

// MaxLogSize is the daemon log size that triggers rotation on start.
const MaxLogSize = 5 << 20

// RotateLog moves path to path.old once it reaches maxSize bytes, replacing
// any previous backup.
func RotateLog(path string, maxSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	backup := path + ".old"
	_ = os.Remove(backup)
	return os.Rename(path, backup)
}

// LastLogError returns the message of the most recent error among the
// last lines of the daemon log. Lines are JSON records; plain text lines
// from a crash are matched by keyword.
func LastLogError(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	start := max(len(lines)-10, 0)

	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		var rec struct {
			Level string `json:"level"`
			Msg   string `json:"msg"`
			Error string `json:"error"`
		}
		if json.Unmarshal([]byte(line), &rec) == nil && rec.Level != "" {
			if rec.Level != "ERROR" {
				continue
			}
			if rec.Error != "" {
				return rec.Msg + ": " + rec.Error
			}
			return rec.Msg
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed to") || strings.HasPrefix(line, "panic:") {
			return line
		}
	}
	return ""
}
