package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Wrap annotates err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithStack records the caller's stack on err for debug output.
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// HasStack reports whether a stack was recorded anywhere in err's chain.
func HasStack(err error) bool {
	var st stackTracer
	return As(err, &st)
}

// Chain returns the messages of err and every error it wraps.
func Chain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return chain
}

// RootCause returns the innermost error.
func RootCause(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return err
		}
		err = u.Unwrap()
	}
}

// FormatDebugError renders err with its chain, category, suggestion and,
// when recorded, its stack trace.
func FormatDebugError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Error: " + err.Error() + "\n")

	if chain := Chain(err); len(chain) > 1 {
		sb.WriteString("\nError chain:\n")
		for i, msg := range chain {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, msg)
		}
	}

	fmt.Fprintf(&sb, "\nCategory: %s\n", GetCategory(err))

	if s := GetSuggestion(err); s != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", s)
	}

	var st stackTracer
	if As(err, &st) {
		fmt.Fprintf(&sb, "\nStack trace:%+v\n", st.StackTrace())
	}

	return sb.String()
}

// FormatUserError renders err with its suggestion and no internals.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if s := GetSuggestion(err); s != "" {
		msg += "\n\n" + s
	}
	return msg
}
