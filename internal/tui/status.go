package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// HabitsComponent lists habits with today's completion and streaks.
type HabitsComponent struct {
	Streaks []repo.Streak
	Cursor  int
	Width   int
}

// DoneToday counts habits completed today.
func (hc *HabitsComponent) DoneToday() int {
	n := 0
	for _, s := range hc.Streaks {
		if s.Today {
			n++
		}
	}
	return n
}

// View renders the habit box.
func (hc *HabitsComponent) View() string {
	var b strings.Builder

	total := len(hc.Streaks)
	if total == 0 {
		b.WriteString(StyleSubtitle.Render("No habits yet. Add one with 'personalvault habit add <name>'."))
		return StyleHabitsBox.Width(hc.boxWidth()).Render(b.String())
	}

	done := hc.DoneToday()
	fmt.Fprintf(&b, "%s  %d/%d today\n\n", ProgressBar(100*float64(done)/float64(total), 20), done, total)

	for i, s := range hc.Streaks {
		cursor, name := "  ", StyleHabit.Render(s.Habit.Name)
		if i == hc.Cursor {
			cursor, name = StyleSelected.Render("> "), StyleSelected.Render(s.Habit.Name)
		}
		check := "[ ]"
		if s.Today {
			check = StyleDone.Render("[x]")
		}
		streak := StyleStreak.Render(fmt.Sprintf("%d", s.Current))
		fmt.Fprintf(&b, "%s%s %s  %s %s  %s\n", cursor, check, name,
			StyleSubtitle.Render("streak"), streak,
			StyleSubtitle.Render(fmt.Sprintf("best %d", s.Longest)))
	}

	box := StyleHabitsBox
	if done == total {
		box = StyleAllDoneBox
	}
	return box.Width(hc.boxWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

func (hc *HabitsComponent) boxWidth() int {
	return max(hc.Width-4, 20)
}

// SyncLine is the one-line sync summary under the habits.
type SyncLine struct {
	Status output.SyncStatus
}

// Pending names the domains holding unwritten changes.
func (sl SyncLine) Pending() []string {
	var out []string
	for _, d := range sl.Status.Domains {
		if d.Pending {
			out = append(out, d.Domain)
		}
	}
	return out
}

// View renders the summary.
func (sl SyncLine) View() string {
	st := sl.Status
	parts := []string{
		fmt.Sprintf("remote %s", st.Remote),
		fmt.Sprintf("breaker %s", st.Breaker),
	}
	if st.Offline {
		parts = append(parts, "offline")
	}
	if pending := sl.Pending(); len(pending) > 0 {
		parts = append(parts, "pending: "+strings.Join(pending, ", "))
	} else {
		parts = append(parts, "all synced")
	}
	return StyleSubtitle.Render(strings.Join(parts, "  •  "))
}

// DegradedNotice explains that changes are only local, or is empty while
// the remote is reachable.
func DegradedNotice(st output.SyncStatus, width int) string {
	if !st.Degraded || st.Offline {
		return ""
	}
	return StyleDegradedBox.Width(max(width-4, 20)).Render(
		"Remote storage is unreachable. Changes are saved locally and synced when it is back.")
}

// HelpBar renders the help bar at the bottom.
func HelpBar() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "move"},
		{"space", "toggle"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}
	return StyleHelp.Render(strings.Join(parts, "  •  "))
}

// header renders the title line.
func header(title, date string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, StyleTitle.Render(title), "  ", StyleSubtitle.Render(date))
}
