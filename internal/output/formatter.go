// Package output renders command results for the terminal or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// DefaultWidth is assumed when the writer is not a terminal.
const DefaultWidth = 80

// Format selects how results are rendered.
type Format string

const (
	FormatCLI   Format = "cli"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

// ColorMode is the --color flag value.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Formatter is the writer and mode shared by the CLI and JSON renderers.
type Formatter struct {
	Writer    io.Writer
	Format    Format
	ColorMode ColorMode
}

// NewFormatter writes CLI output to stdout.
func NewFormatter() *Formatter {
	return &Formatter{Writer: os.Stdout, Format: FormatCLI, ColorMode: ColorAuto}
}

// terminal returns the writer's file when it is attached to a tty.
func (f *Formatter) terminal() (*os.File, bool) {
	file, ok := f.Writer.(*os.File)
	if !ok {
		return nil, false
	}
	fd := file.Fd()
	return file, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (f *Formatter) IsColorEnabled() bool {
	if f.ColorMode == ColorAlways || f.ColorMode == ColorNever {
		return f.ColorMode == ColorAlways
	}
	_, tty := f.terminal()
	return tty
}

// Width is the terminal column count, or DefaultWidth for pipes and buffers.
func (f *Formatter) Width() int {
	file, tty := f.terminal()
	if !tty {
		return DefaultWidth
	}
	if cols, _, err := term.GetSize(int(file.Fd())); err == nil && cols > 0 {
		return cols
	}
	return DefaultWidth
}

func (f *Formatter) Println(a ...any) { fmt.Fprintln(f.Writer, a...) }

func (f *Formatter) Printf(format string, a ...any) { fmt.Fprintf(f.Writer, format, a...) }

// JSON writes v indented by two spaces.
func (f *Formatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatDuration keeps seconds below an hour: "45s", "1m 30s", "2h 5m".
func FormatDuration(d time.Duration) string {
	return humanDuration(d, true)
}

// FormatDurationShort drops seconds once d reaches a minute: "5m", "2h 5m".
func FormatDurationShort(d time.Duration) string {
	return humanDuration(d, false)
}

func humanDuration(d time.Duration, seconds bool) string {
	d = d.Truncate(time.Second)
	h, m, s := int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second)

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && seconds && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatTimeShort renders t in local time to the minute.
func FormatTimeShort(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// FormatAgo renders the age of t at now. Two days and older switch to days.
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	switch d := now.Sub(t); {
	case d < time.Minute:
		return "just now"
	case d >= 48*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return FormatDurationShort(d) + " ago"
	}
}
