package tui

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/repo"
)

var today = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

type fakeHabits struct {
	habits  []model.Habit
	done    map[string]bool
	toggles []string
	syncs   int
	syncErr error
}

func newFakeHabits(names ...string) *fakeHabits {
	f := &fakeHabits{done: map[string]bool{}}
	for i, n := range names {
		f.habits = append(f.habits, model.Habit{ID: string(rune('a' + i)), Name: n})
	}
	return f
}

func (f *fakeHabits) Streaks(time.Time) []repo.Streak {
	out := make([]repo.Streak, 0, len(f.habits))
	for _, h := range f.habits {
		s := repo.Streak{Habit: h, Today: f.done[h.ID]}
		if s.Today {
			s.Current, s.Total = 1, 1
		}
		out = append(out, s)
	}
	return out
}

func (f *fakeHabits) Toggle(ref, date string) (bool, error) {
	f.toggles = append(f.toggles, ref+"@"+date)
	f.done[ref] = !f.done[ref]
	return f.done[ref], nil
}

func (f *fakeHabits) Sync(context.Context) (int, error) {
	f.syncs++
	return len(f.habits), f.syncErr
}

func newDashboard(h *fakeHabits, status output.SyncStatus) *Dashboard {
	d := New(Config{
		Habits: h,
		Status: func() output.SyncStatus { return status },
		Now:    func() time.Time { return today },
	})
	d.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return d
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// Dashboard Tests
// =============================================================================

func TestDashboardLoading(t *testing.T) {
	d := New(Config{Habits: newFakeHabits()})
	assert.Equal(t, "Loading...", d.View())
}

func TestDashboardTogglesSelectedHabit(t *testing.T) {
	h := newFakeHabits("Run", "Read")
	d := newDashboard(h, output.SyncStatus{})

	d.Update(key("down"))
	d.Update(key("space"))
	assert.Equal(t, []string{"b@2024-05-15"}, h.toggles)
	assert.True(t, d.streaks[1].Today)
	assert.Contains(t, d.View(), "Read done")

	d.Update(key("x"))
	assert.False(t, h.done["b"])
	assert.Contains(t, d.View(), "Read cleared")
}

func TestDashboardCursorBounds(t *testing.T) {
	d := newDashboard(newFakeHabits("Run", "Read"), output.SyncStatus{})

	d.Update(key("up"))
	assert.Equal(t, 0, d.cursor)
	d.Update(key("j"))
	d.Update(key("j"))
	assert.Equal(t, 1, d.cursor)
	d.Update(key("k"))
	assert.Equal(t, 0, d.cursor)
}

func TestDashboardToggleWithoutHabits(t *testing.T) {
	h := newFakeHabits()
	d := newDashboard(h, output.SyncStatus{})
	d.Update(key("enter"))
	assert.Empty(t, h.toggles)
	assert.Contains(t, d.View(), "No habits yet")
}

func TestDashboardRefresh(t *testing.T) {
	h := newFakeHabits("Run")
	d := newDashboard(h, output.SyncStatus{})

	_, cmd := d.Update(key("r"))
	require.NotNil(t, cmd)
	d.Update(cmd())
	assert.Equal(t, 1, h.syncs)
	assert.NoError(t, d.err)

	h.syncErr = stderrors.New("remote down")
	_, cmd = d.Update(key("r"))
	d.Update(cmd())
	assert.Contains(t, d.View(), "remote down")
}

func TestDashboardQuitFlushes(t *testing.T) {
	flushed := 0
	d := New(Config{
		Habits: newFakeHabits("Run"),
		Flush: func(ctx context.Context) error {
			flushed++
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return stderrors.New("offline")
		},
	})
	d.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	_, cmd := d.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Contains(t, d.View(), "Saving changes")

	msg := cmd()
	_, cmd = d.Update(msg)
	assert.Equal(t, 1, flushed)
	assert.EqualError(t, d.FlushErr(), "offline")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = d.Update(key("q"))
	assert.Nil(t, cmd, "keys are ignored while quitting")
}

func TestDashboardTickClearsMessage(t *testing.T) {
	now := today
	d := New(Config{Habits: newFakeHabits("Run"), Now: func() time.Time { return now }})
	d.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	d.Update(key("space"))
	require.NotEmpty(t, d.message)

	now = now.Add(3 * time.Second)
	_, cmd := d.Update(tickMsg(now))
	assert.Empty(t, d.message)
	assert.NotNil(t, cmd)
}

func TestDashboardDegradedNotice(t *testing.T) {
	st := output.SyncStatus{
		Remote:   "drive",
		Breaker:  "open",
		Degraded: true,
		Domains:  []output.DomainStatus{{Domain: "habits", Pending: true}},
	}
	view := newDashboard(newFakeHabits("Run"), st).View()
	assert.Contains(t, view, "Remote storage is unreachable")
	assert.Contains(t, view, "pending: habits")
}

// =============================================================================
// Component Tests
// =============================================================================

func TestHabitsComponent(t *testing.T) {
	hc := &HabitsComponent{
		Streaks: []repo.Streak{
			{Habit: model.Habit{Name: "Run"}, Today: true, Current: 4, Longest: 9},
			{Habit: model.Habit{Name: "Read"}},
		},
		Cursor: 1,
		Width:  80,
	}
	assert.Equal(t, 1, hc.DoneToday())

	view := hc.View()
	assert.Contains(t, view, "1/2 today")
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "best 9")
	assert.Contains(t, view, "> ")
}

func TestSyncLine(t *testing.T) {
	line := SyncLine{Status: output.SyncStatus{Remote: "webdav", Breaker: "closed", Offline: true}}.View()
	assert.Contains(t, line, "remote webdav")
	assert.Contains(t, line, "offline")
	assert.Contains(t, line, "all synced")
}

func TestDegradedNoticeHiddenOffline(t *testing.T) {
	assert.Empty(t, DegradedNotice(output.SyncStatus{Degraded: true, Offline: true}, 80))
	assert.Empty(t, DegradedNotice(output.SyncStatus{}, 80))
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct    float64
		filled int
	}{
		{0, 0}, {50, 5}, {100, 10}, {150, 10}, {-10, 0},
	}
	for _, tt := range tests {
		bar := ProgressBar(tt.pct, 10)
		assert.Equal(t, tt.filled, strings.Count(bar, "█"), "%v%%", tt.pct)
		assert.Equal(t, 10-tt.filled, strings.Count(bar, "░"))
	}
}

func TestHelpBar(t *testing.T) {
	help := HelpBar()
	for _, k := range []string{"toggle", "refresh", "quit"} {
		assert.Contains(t, help, k)
	}
}
