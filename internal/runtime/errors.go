package runtime

import "github.com/manav03panchal/personalvault/internal/errors"

// Process exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitAuth        = 3
	ExitUnavailable = 4
	ExitCache       = 5
)

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsAuthExpired(err), errors.Is(err, errors.ErrSignedOut):
		return ExitAuth
	case errors.IsRemoteUnavailable(err), errors.Is(err, errors.ErrBackendUnavailable):
		return ExitUnavailable
	case errors.Is(err, errors.ErrLocalCacheUnavailable),
		errors.Is(err, errors.ErrDiskFull),
		errors.Is(err, errors.ErrLockHeld):
		return ExitCache
	case errors.IsUserError(err):
		return ExitUsage
	default:
		return ExitError
	}
}

// FormatError renders err for the terminal. Debug mode adds the error
// chain and stack trace.
func FormatError(err error, debug bool) string {
	if err == nil {
		return ""
	}
	if debug {
		return errors.FormatDebugError(err)
	}
	return errors.FormatUserError(err)
}

// ErrorStatus is the JSON status word for err.
func ErrorStatus(err error) string {
	switch ExitCode(err) {
	case ExitAuth:
		return "auth_required"
	case ExitUnavailable:
		return "unavailable"
	case ExitUsage:
		return "invalid"
	default:
		return "error"
	}
}
