package errors

import "errors"

// Suggestions maps sentinel errors to a next step for the user.
var Suggestions = map[error]string{
	ErrAuthExpired:           "Run 'personalvault login' to sign in again. Local changes are kept.",
	ErrSignedOut:             "Run 'personalvault login' to connect your storage.",
	ErrRemoteUnavailable:     "Check your connection. Changes stay in the local cache and sync on the next load.",
	ErrMalformedRemoteData:   "The remote file could not be parsed; the local copy was kept. Run 'personalvault sync push' to overwrite it.",
	ErrLocalCacheUnavailable: "Check the data directory (~/.local/share/personalvault/) for permissions and free space.",
	ErrRemoteNotFound:        "Run 'personalvault sync pull' to re-resolve remote files.",
	ErrBackendUnavailable:    "The assistant backend is not reachable. Check 'backend.base_url' in the config.",
	ErrNotFound:              "Use the matching 'list' command to see available ids.",
	ErrInvalidDate:           "Try formats like 'today', 'yesterday', '3 days ago' or '2024-05-01'.",
	ErrInvalidURL:            "Provide a full URL starting with https://.",
	ErrDiskFull:              "Free up disk space and try again.",
	ErrDatabaseCorrupted:     "Run 'personalvault sync pull' after the cache has been rebuilt.",
	ErrLockHeld:              "Another personalvault process is running. Use 'personalvault daemon stop' or wait for it to finish.",
	ErrTimeout:               "The operation took too long. Try again or check your network connection.",
	ErrPermissionDenied:      "Check file permissions in your data directory (~/.local/share/personalvault/).",
}

// GetSuggestion returns a suggestion for err, walking the error chain.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}
	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}
	for known, suggestion := range Suggestions {
		if errors.Is(err, known) {
			return suggestion
		}
	}
	return ""
}
