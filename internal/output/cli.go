package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/preload"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// Styles for CLI output.
var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#10B981") // Green
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorWarning   = lipgloss.Color("#F59E0B") // Yellow
	colorError     = lipgloss.Color("#EF4444") // Red
	colorSuccess   = lipgloss.Color("#10B981") // Green

	// Styles
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSubtitle = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleName = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleTag = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleEmphasis = lipgloss.NewStyle().
			Bold(true)

	styleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	if c.IsColorEnabled() {
		c.Println(styleTitle.Render(text))
	} else {
		c.Println(text)
	}
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	if c.IsColorEnabled() {
		c.Println(styleSuccess.Render("✓ " + text))
	} else {
		c.Println("✓ " + text)
	}
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	if c.IsColorEnabled() {
		c.Println(styleWarning.Render("⚠ " + text))
	} else {
		c.Println("⚠ " + text)
	}
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	if c.IsColorEnabled() {
		c.Println(styleError.Render("✗ " + text))
	} else {
		c.Println("✗ " + text)
	}
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	if c.IsColorEnabled() {
		c.Println(styleMuted.Render(text))
	} else {
		c.Println(text)
	}
}

// Tag formats a note tag.
func (c *CLIFormatter) Tag(name string) string {
	if c.IsColorEnabled() {
		return styleTag.Render("#" + name)
	}
	return "#" + name
}

// Name formats a habit or note title.
func (c *CLIFormatter) Name(text string) string {
	if c.IsColorEnabled() {
		return styleName.Render(text)
	}
	return text
}

// Emphasis formats a count or streak.
func (c *CLIFormatter) Emphasis(text string) string {
	if c.IsColorEnabled() {
		return styleEmphasis.Render(text)
	}
	return text
}

// Note formats secondary text such as descriptions.
func (c *CLIFormatter) Note(text string) string {
	if c.IsColorEnabled() {
		return styleNote.Render(text)
	}
	return text
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (c *CLIFormatter) tags(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = c.Tag(t)
	}
	return strings.Join(out, " ")
}

// PrintNote prints one note in full.
func (c *CLIFormatter) PrintNote(n model.Note) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	pin := ""
	if n.Pinned {
		pin = " [pinned]"
	}
	c.Printf("%s%s  %s\n", c.Name(title), pin, c.Note(shortID(n.ID)))
	if len(n.Tags) > 0 {
		c.Printf("  %s\n", c.tags(n.Tags))
	}
	c.Printf("  Updated: %s\n", FormatTimeShort(n.ModifiedAt()))
	if n.Content != "" {
		c.Println()
		c.Println(n.Content)
	}
}

// PrintNotes prints a note list, one line each.
func (c *CLIFormatter) PrintNotes(notes []model.Note) {
	if len(notes) == 0 {
		c.Muted("No notes.")
		c.Muted("Use 'personalvault note add <title>' to write one.")
		return
	}
	rows := make([]TableRow, 0, len(notes))
	for _, n := range notes {
		title := n.Title
		if n.Pinned {
			title = "* " + title
		}
		rows = append(rows, TableRow{Columns: []string{
			shortID(n.ID),
			truncate(title, c.column(40, 36)),
			strings.Join(n.Tags, ","),
			model.FormatDate(n.ModifiedAt().Local()),
		}})
	}
	c.PrintTable([]string{"ID", "TITLE", "TAGS", "UPDATED"}, rows)
}

// PrintHabits prints habits with their streaks.
func (c *CLIFormatter) PrintHabits(streaks []repo.Streak) {
	if len(streaks) == 0 {
		c.Muted("No habits.")
		c.Muted("Use 'personalvault habit add <name>' to start one.")
		return
	}
	for _, s := range streaks {
		mark := "[ ]"
		if s.Today {
			mark = "[x]"
		}
		name := s.Habit.Name
		if s.Habit.Archived {
			name += " (archived)"
		}
		c.Printf("%s %s  streak %s  best %d  total %d\n",
			mark, c.Name(name), c.Emphasis(fmt.Sprintf("%d", s.Current)), s.Longest, s.Total)
	}
}

// PrintHabitCompletion reports the result of habit done or undo.
func (c *CLIFormatter) PrintHabitCompletion(h model.Habit, date string, done, changed bool) {
	switch {
	case !changed && done:
		c.Muted(fmt.Sprintf("%s already done for %s", h.Name, date))
	case !changed:
		c.Muted(fmt.Sprintf("%s was not done on %s", h.Name, date))
	case done:
		c.Success(fmt.Sprintf("%s done for %s", h.Name, date))
	default:
		c.Muted(fmt.Sprintf("%s cleared for %s", h.Name, date))
	}
}

// PrintJournalEntry prints one check-in.
func (c *CLIFormatter) PrintJournalEntry(e model.JournalEntry) {
	c.Title(e.Date)
	if e.Mood > 0 || e.Energy > 0 {
		c.Printf("  Mood %d/10  Energy %d/10\n", e.Mood, e.Energy)
	}
	for _, g := range e.Gratitude {
		c.Printf("  + %s\n", g)
	}
	if e.Content != "" {
		c.Println()
		c.Println(e.Content)
	}
}

// PrintJournal prints the check-in list.
func (c *CLIFormatter) PrintJournal(entries []model.JournalEntry) {
	if len(entries) == 0 {
		c.Muted("No journal entries.")
		return
	}
	rows := make([]TableRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, TableRow{Columns: []string{
			e.Date,
			fmt.Sprintf("%d", e.Mood),
			fmt.Sprintf("%d", e.Energy),
			truncate(firstLine(e.Content), c.column(60, 30)),
		}})
	}
	c.PrintTable([]string{"DATE", "MOOD", "ENERGY", "ENTRY"}, rows)
}

// PrintVideos prints the watch list.
func (c *CLIFormatter) PrintVideos(videos []model.Video) {
	if len(videos) == 0 {
		c.Muted("No videos saved.")
		return
	}
	rows := make([]TableRow, 0, len(videos))
	for _, v := range videos {
		watched := ""
		if v.Watched {
			watched = "yes"
		}
		title := v.Title
		if title == "" {
			title = v.URL
		}
		rows = append(rows, TableRow{Columns: []string{
			shortID(v.ID), truncate(title, c.column(50, 30)), v.Category, watched,
		}})
	}
	c.PrintTable([]string{"ID", "TITLE", "CATEGORY", "WATCHED"}, rows)
}

// PrintActivities prints logged activities and their total.
func (c *CLIFormatter) PrintActivities(items []model.Activity) {
	if len(items) == 0 {
		c.Muted("No activities logged in this period.")
		return
	}
	rows := make([]TableRow, 0, len(items))
	for _, a := range items {
		rows = append(rows, TableRow{Columns: []string{
			FormatTimeShort(a.CreatedAt), string(a.Type), fmt.Sprintf("%g", a.Value), truncate(a.Description, c.column(40, 40)),
		}})
	}
	c.PrintTable([]string{"WHEN", "TYPE", "VALUE", "NOTE"}, rows)
}

// PrintSyncStatus prints the per-domain sync table.
func (c *CLIFormatter) PrintSyncStatus(st SyncStatus, now time.Time) {
	c.Title("Sync status")
	c.Printf("  Remote: %s (%s)\n", st.Remote, st.Breaker)
	c.Printf("  Session: %s\n", st.Session)
	if st.Handles > 0 {
		c.Printf("  Folder: %s (%d file ids cached)\n", st.FolderID, st.Handles)
	}
	if st.Offline {
		c.Warning("Offline mode: changes stay in the local cache.")
	} else if st.Degraded {
		c.Warning("Remote storage is unreachable. Changes are kept locally and synced later.")
	}
	c.Println()

	rows := make([]TableRow, 0, len(st.Domains))
	for _, d := range st.Domains {
		pending := ""
		if d.Pending {
			pending = "yes"
		}
		last := "-"
		if !d.LocalOnly {
			last = FormatAgo(d.LastFlush, now)
		}
		state := d.State
		if d.LocalOnly {
			state = "local"
		}
		rows = append(rows, TableRow{Columns: []string{
			d.Domain, fmt.Sprintf("%d", d.Items), state, pending, last, truncate(d.LastError, 40),
		}})
	}
	c.PrintTable([]string{"DOMAIN", "ITEMS", "STATE", "PENDING", "LAST WRITE", "ERROR"}, rows)
}

// PrintPreload prints a preload report.
func (c *CLIFormatter) PrintPreload(r preload.Report) {
	if r.Skipped != "" {
		c.Warning("Remote refresh skipped: " + r.Skipped)
	}
	for _, res := range r.Results {
		line := fmt.Sprintf("%-11s %4d items from %s", res.Domain, res.Items, res.Source)
		if res.Error != "" {
			c.Error(line + ": " + res.Error)
			continue
		}
		c.Println("  " + line)
	}
	c.Muted(fmt.Sprintf("Done in %s", FormatDuration(r.Elapsed)))
}

// column sizes a free-text column to what the terminal leaves after
// reserved, capped at limit.
func (c *CLIFormatter) column(limit, reserved int) int {
	return max(12, min(limit, c.Width()-reserved))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ProgressBar creates a simple progress bar.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return bar
}

// Table helpers for CLI output.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	// Print headers
	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	if c.IsColorEnabled() {
		c.Println(styleBold.Render(headerLine.String()))
	} else {
		c.Println(headerLine.String())
	}

	// Print separator
	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(sep.String())

	// Print rows
	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], col))
			}
		}
		c.Println(rowLine.String())
	}
}
