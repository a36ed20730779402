// Package tui is the terminal dashboard: today's habits with their streaks,
// toggled from the keyboard, and the sync state of every domain.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the TUI dashboard.
var (
	ColorPrimary = lipgloss.Color("#7C3AED") // Purple
	ColorMuted   = lipgloss.Color("#6B7280") // Gray
	ColorWarning = lipgloss.Color("#F59E0B") // Yellow
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorActive  = lipgloss.Color("#3B82F6") // Blue
	ColorBorder  = lipgloss.Color("#4B5563") // Dark gray
)

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleHabit is a habit name; StyleSelected the one under the cursor.
	StyleHabit    = lipgloss.NewStyle()
	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleDone = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	StyleStreak = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Boxes
var (
	StyleHabitsBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleAllDoneBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSuccess).
			Padding(0, 1)

	StyleDegradedBox = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(ColorWarning).
				Foreground(ColorWarning).
				Padding(0, 1)
)

// ProgressBar renders percentage (clamped to 0..100) as a bar width cells
// wide.
func ProgressBar(percentage float64, width int) string {
	percentage = min(max(percentage, 0), 100)
	filled := int(float64(width) * percentage / 100)

	filledStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}
