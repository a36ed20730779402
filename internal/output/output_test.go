package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/preload"
	"github.com/manav03panchal/personalvault/internal/repo"
)

func plain() (*CLIFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewCLIFormatter(&Formatter{Writer: &buf, ColorMode: ColorNever}), &buf
}

func jsonOut() (*JSONFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewJSONFormatter(&Formatter{Writer: &buf, Format: FormatJSON}), &buf
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestNewFormatter(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, FormatCLI, f.Format)
	assert.Equal(t, ColorAuto, f.ColorMode)
}

func TestFormatterIsColorEnabled(t *testing.T) {
	assert.True(t, (&Formatter{ColorMode: ColorAlways}).IsColorEnabled())
	assert.False(t, (&Formatter{ColorMode: ColorNever}).IsColorEnabled())
	assert.False(t, (&Formatter{Writer: &bytes.Buffer{}, ColorMode: ColorAuto}).IsColorEnabled())
}

func TestFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf}
	require.NoError(t, f.JSON(map[string]int{"count": 42}))
	assert.Contains(t, buf.String(), `"count": 42`)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{59 * time.Second, "59s"},
		{90 * time.Second, "1m 30s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h 30m"},
		{2 * time.Hour, "2h"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", FormatAgo(time.Time{}, now))
	assert.Equal(t, "just now", FormatAgo(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", FormatAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h 20m ago", FormatAgo(now.Add(-200*time.Minute), now))
	assert.Equal(t, "3d ago", FormatAgo(now.Add(-72*time.Hour), now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	c := NewCLIFormatter(&Formatter{Writer: io.Discard})
	assert.Equal(t, DefaultWidth, c.Width())
	assert.Equal(t, 40, c.column(40, 36))
	assert.Equal(t, 12, c.column(40, 79))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", truncate("héllo wörld", 5))
}

// =============================================================================
// CLIFormatter Tests
// =============================================================================

func TestCLIFormatterMessages(t *testing.T) {
	c, buf := plain()
	c.Success("saved")
	c.Warning("offline")
	c.Error("failed")
	assert.Equal(t, "✓ saved\n⚠ offline\n✗ failed\n", buf.String())
}

func TestCLIFormatterTagWithoutColor(t *testing.T) {
	c, _ := plain()
	assert.Equal(t, "#work", c.Tag("work"))
}

func TestPrintNotes(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		c, buf := plain()
		c.PrintNotes(nil)
		assert.Contains(t, buf.String(), "No notes.")
	})

	t.Run("table", func(t *testing.T) {
		c, buf := plain()
		n := model.NewNote("Groceries", "milk", []string{"home", "errands"})
		n.Pinned = true
		c.PrintNotes([]model.Note{n})

		out := buf.String()
		assert.Contains(t, out, "TITLE")
		assert.Contains(t, out, "* Groceries")
		assert.Contains(t, out, "home,errands")
		assert.Contains(t, out, n.ID[:8])
		assert.Contains(t, out, model.FormatDate(n.ModifiedAt().Local()))
	})
}

func TestPrintNote(t *testing.T) {
	c, buf := plain()
	n := model.NewNote("", "body text", []string{"idea"})
	c.PrintNote(n)

	out := buf.String()
	assert.Contains(t, out, "(untitled)")
	assert.Contains(t, out, "#idea")
	assert.Contains(t, out, "body text")
}

func TestPrintHabits(t *testing.T) {
	c, buf := plain()
	h := model.NewHabit("Read", "")
	c.PrintHabits([]repo.Streak{{Habit: h, Current: 3, Longest: 5, Total: 9, Today: true}})

	out := buf.String()
	assert.Contains(t, out, "[x] Read")
	assert.Contains(t, out, "streak 3")
	assert.Contains(t, out, "best 5")
}

func TestPrintHabitCompletion(t *testing.T) {
	c, buf := plain()
	h := model.NewHabit("Run", "")
	c.PrintHabitCompletion(h, "2024-05-01", true, true)
	c.PrintHabitCompletion(h, "2024-05-01", false, true)
	c.PrintHabitCompletion(h, "2024-05-01", true, false)
	c.PrintHabitCompletion(h, "2024-05-01", false, false)
	assert.Contains(t, buf.String(), "✓ Run done for 2024-05-01")
	assert.Contains(t, buf.String(), "Run cleared for 2024-05-01")
	assert.Contains(t, buf.String(), "Run already done for 2024-05-01")
	assert.Contains(t, buf.String(), "Run was not done on 2024-05-01")
}

func TestPrintJournal(t *testing.T) {
	c, buf := plain()
	e := model.NewJournalEntry("2024-05-01", "good day\nsecond line")
	e.Mood = 7
	c.PrintJournal([]model.JournalEntry{e})

	out := buf.String()
	assert.Contains(t, out, "2024-05-01")
	assert.Contains(t, out, "good day")
	assert.NotContains(t, out, "second line")
}

func TestPrintSyncStatus(t *testing.T) {
	c, buf := plain()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	c.PrintSyncStatus(SyncStatus{
		Remote:   "drive",
		Breaker:  "open",
		Degraded: true,
		Session:  "signed-in",
		FolderID: "fold-1",
		Handles:  2,
		Domains: []DomainStatus{
			{Domain: "notes", Items: 4, State: "idle", Pending: true, LastFlush: now.Add(-5 * time.Minute)},
			{Domain: "activities", Items: 2, LocalOnly: true},
		},
	}, now)

	out := buf.String()
	assert.Contains(t, out, "drive (open)")
	assert.Contains(t, out, "fold-1 (2 file ids cached)")
	assert.Contains(t, out, "Remote storage is unreachable")
	assert.Contains(t, out, "5m ago")
	assert.Contains(t, out, "local")
}

func TestPrintPreload(t *testing.T) {
	c, buf := plain()
	c.PrintPreload(preload.Report{
		Results: []preload.Result{
			{Domain: model.DomainNotes, Source: preload.SourceRemote, Items: 3},
			{Domain: model.DomainHabits, Source: preload.SourceCache, Items: 1, Error: "malformed"},
		},
		Elapsed: 2 * time.Second,
	})

	out := buf.String()
	assert.Contains(t, out, "notes")
	assert.Contains(t, out, "✗ habits")
	assert.Contains(t, out, "malformed")
}

func TestPrintTable(t *testing.T) {
	c, buf := plain()
	c.PrintTable([]string{"A", "B"}, []TableRow{{Columns: []string{"x", "longer"}}})
	assert.Contains(t, buf.String(), "─")
	assert.Contains(t, buf.String(), "longer")

	c, buf = plain()
	c.PrintTable([]string{"A"}, nil)
	assert.Empty(t, buf.String())
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(0, 10))
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 10))
	assert.Equal(t, "██████████", ProgressBar(150, 10))
}

// =============================================================================
// JSONFormatter Tests
// =============================================================================

func TestJSONPrintList(t *testing.T) {
	j, buf := jsonOut()
	notes := []model.Note{model.NewNote("a", "b", nil)}
	require.NoError(t, j.PrintList(model.DomainNotes, len(notes), notes))

	var got struct {
		Domain string       `json:"domain"`
		Count  int          `json:"count"`
		Items  []model.Note `json:"items"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "notes", got.Domain)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "a", got.Items[0].Title)
}

func TestJSONPrintHabitsNeverNull(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintHabits(nil))
	assert.Contains(t, buf.String(), `"items": []`)
}

func TestJSONPrintCompletion(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintCompletion(model.NewHabit("Run", ""), "2024-05-01", true, false))

	var got CompletionResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "unchanged", got.Status)
	assert.True(t, got.Done)
	assert.False(t, got.Changed)
	assert.Equal(t, "Run", got.Habit.Name)
}

func TestJSONPrintSyncStatus(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintSyncStatus(SyncStatus{Remote: "localfs", Breaker: "closed"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "localfs", got["remote"])
	assert.Equal(t, []any{}, got["domains"])
}

func TestJSONPrintError(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintError("error", errors.New("boom").Error(), "try again"))

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, ErrorResponse{Status: "error", Error: "boom", Message: "try again"}, got)
}
