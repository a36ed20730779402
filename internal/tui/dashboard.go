package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// HabitStore is the part of the habits repository the dashboard uses.
type HabitStore interface {
	Streaks(today time.Time) []repo.Streak
	Toggle(ref, date string) (bool, error)
	Sync(ctx context.Context) (int, error)
}

// Config wires the dashboard to the running application.
type Config struct {
	Habits HabitStore
	// Status reports sync state for the status line.
	Status func() output.SyncStatus
	// Flush writes out pending changes; it runs on quit.
	Flush func(ctx context.Context) error
	// FlushTimeout bounds the flush on quit. Default: 10s
	FlushTimeout time.Duration
	// TickInterval redraws the status line. Default: 1s
	TickInterval time.Duration
	Now          func() time.Time
}

type (
	tickMsg    time.Time
	syncedMsg  struct{ err error }
	flushedMsg struct{ err error }
)

// Dashboard is the bubbletea model.
type Dashboard struct {
	cfg Config

	streaks []repo.Streak
	status  output.SyncStatus
	cursor  int

	width, height int
	err           error
	message       string
	messageExp    time.Time
	quitting      bool
	flushErr      error
}

// New creates the dashboard model.
func New(cfg Config) *Dashboard {
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = 10 * time.Second
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	d := &Dashboard{cfg: cfg}
	d.reload()
	return d
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.tick(), d.syncCmd())
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return d.handleKey(msg)

	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		return d, nil

	case tickMsg:
		if !d.messageExp.IsZero() && d.cfg.Now().After(d.messageExp) {
			d.message, d.messageExp = "", time.Time{}
		}
		d.reloadStatus()
		return d, d.tick()

	case syncedMsg:
		d.err = msg.err
		d.reload()
		if msg.err == nil {
			d.setMessage("Refreshed", time.Second)
		}
		return d, nil

	case flushedMsg:
		d.flushErr = msg.err
		return d, tea.Quit
	}
	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if d.quitting {
		return d, nil
	}
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		d.quitting = true
		return d, d.flushCmd()

	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}

	case "down", "j":
		if d.cursor < len(d.streaks)-1 {
			d.cursor++
		}

	case " ", "enter", "x":
		d.toggleSelected()

	case "r":
		d.setMessage("Refreshing...", 5*time.Second)
		return d, d.syncCmd()
	}
	return d, nil
}

// toggleSelected flips today's completion for the habit under the cursor.
// Rapid toggles only reschedule the debounced write.
func (d *Dashboard) toggleSelected() {
	if d.cursor >= len(d.streaks) {
		return
	}
	habit := d.streaks[d.cursor].Habit
	done, err := d.cfg.Habits.Toggle(habit.ID, model.FormatDate(d.cfg.Now()))
	if err != nil {
		d.err = err
		return
	}
	d.err = nil
	if done {
		d.setMessage(habit.Name+" done", 2*time.Second)
	} else {
		d.setMessage(habit.Name+" cleared", 2*time.Second)
	}
	d.reload()
}

func (d *Dashboard) reload() {
	d.streaks = d.cfg.Habits.Streaks(d.cfg.Now())
	if d.cursor >= len(d.streaks) {
		d.cursor = max(len(d.streaks)-1, 0)
	}
	d.reloadStatus()
}

func (d *Dashboard) reloadStatus() {
	if d.cfg.Status != nil {
		d.status = d.cfg.Status()
	}
}

func (d *Dashboard) setMessage(msg string, ttl time.Duration) {
	d.message = msg
	d.messageExp = d.cfg.Now().Add(ttl)
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.cfg.TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d *Dashboard) syncCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := d.cfg.Habits.Sync(context.Background())
		return syncedMsg{err: err}
	}
}

func (d *Dashboard) flushCmd() tea.Cmd {
	return func() tea.Msg {
		if d.cfg.Flush == nil {
			return flushedMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.FlushTimeout)
		defer cancel()
		return flushedMsg{err: d.cfg.Flush(ctx)}
	}
}

// FlushErr reports whether the flush on quit failed.
func (d *Dashboard) FlushErr() error { return d.flushErr }

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}
	if d.quitting {
		return StyleSubtitle.Render("Saving changes...") + "\n"
	}

	sections := []string{header("personalvault", d.cfg.Now().Format("Mon Jan 2, 15:04")), ""}

	if notice := DegradedNotice(d.status, d.width); notice != "" {
		sections = append(sections, notice)
	}
	if d.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", d.err)))
	}
	if d.message != "" {
		sections = append(sections, StyleSuccess.Render(d.message))
	}

	habits := &HabitsComponent{Streaks: d.streaks, Cursor: d.cursor, Width: d.width}
	sections = append(sections, habits.View(), SyncLine{Status: d.status}.View(), HelpBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Run starts the dashboard and returns once it has quit and flushed.
func Run(cfg Config) error {
	m, err := tea.NewProgram(New(cfg), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	return m.(*Dashboard).FlushErr()
}
