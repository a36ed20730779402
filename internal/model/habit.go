package model

import (
	"sort"
	"time"
)

// Habit is a recurring practice the user tracks daily.
type Habit struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description,omitempty" validate:"max=500"`
	Color       string    `json:"color,omitempty" validate:"omitempty,max=20"`
	Archived    bool      `json:"archived,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HabitEntry records that a habit was completed on a calendar date.
type HabitEntry struct {
	HabitID     string    `json:"habitId" validate:"required"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	CompletedAt time.Time `json:"completedAt"`
}

// HabitsDocument is the habits collection as stored locally and remotely.
type HabitsDocument struct {
	Habits  []Habit      `json:"habits"`
	Entries []HabitEntry `json:"entries"`
}

// NewHabit creates a habit stamped with the current time.
func NewHabit(name, description string) Habit {
	return Habit{
		ID:          NewID(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// Habit returns the habit with id.
func (d HabitsDocument) Habit(id string) (Habit, bool) {
	for _, h := range d.Habits {
		if h.ID == id {
			return h, true
		}
	}
	return Habit{}, false
}

// Completed reports whether habitID has an entry on date.
func (d HabitsDocument) Completed(habitID, date string) bool {
	for _, e := range d.Entries {
		if e.HabitID == habitID && e.Date == date {
			return true
		}
	}
	return false
}

// EntriesFor returns the entries belonging to habitID.
func (d HabitsDocument) EntriesFor(habitID string) []HabitEntry {
	var out []HabitEntry
	for _, e := range d.Entries {
		if e.HabitID == habitID {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (d HabitsDocument) Clone() HabitsDocument {
	out := HabitsDocument{
		Habits:  make([]Habit, len(d.Habits)),
		Entries: make([]HabitEntry, len(d.Entries)),
	}
	copy(out.Habits, d.Habits)
	copy(out.Entries, d.Entries)
	return out
}

// SetCompletion marks (habitID, date) done or not done and reports whether
// the document changed. An existing entry keeps its CompletedAt.
func SetCompletion(doc HabitsDocument, habitID, date string, done bool) (HabitsDocument, bool) {
	if doc.Completed(habitID, date) == done {
		return doc.Clone(), false
	}
	out := doc.Clone()
	if !done {
		for i, e := range out.Entries {
			if e.HabitID == habitID && e.Date == date {
				out.Entries = append(out.Entries[:i], out.Entries[i+1:]...)
				break
			}
		}
		return out, true
	}
	out.Entries = append(out.Entries, HabitEntry{
		HabitID:     habitID,
		Date:        date,
		CompletedAt: time.Now().UTC(),
	})
	return out, true
}

// ToggleCompletion removes the (habitID, date) entry if present and appends
// one otherwise. Two toggles from an absent entry restore the document; from
// a present one the re-added entry gets a new CompletedAt.
func ToggleCompletion(doc HabitsDocument, habitID, date string) HabitsDocument {
	out, _ := SetCompletion(doc, habitID, date, !doc.Completed(habitID, date))
	return out
}

// NormalizeHabits drops orphaned and duplicate entries and orders the
// document: habits oldest first, entries newest date first.
func NormalizeHabits(doc HabitsDocument) HabitsDocument {
	known := make(map[string]bool, len(doc.Habits))
	for _, h := range doc.Habits {
		known[h.ID] = true
	}

	seen := make(map[string]bool, len(doc.Entries))
	entries := make([]HabitEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		k := e.HabitID + "|" + e.Date
		if !known[e.HabitID] || seen[k] {
			continue
		}
		seen[k] = true
		entries = append(entries, e)
	}

	habits := make([]Habit, len(doc.Habits))
	copy(habits, doc.Habits)
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})

	return HabitsDocument{Habits: habits, Entries: entries}
}

// CurrentStreak counts consecutive completed days for habitID walking
// backward from today. A missing entry for today yields zero.
func CurrentStreak(entries []HabitEntry, habitID string, today time.Time) int {
	done := make(map[string]bool)
	for _, e := range entries {
		if e.HabitID == habitID {
			done[e.Date] = true
		}
	}

	streak := 0
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	for done[FormatDate(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak returns the longest run of consecutive calendar days with a
// completion for habitID.
func LongestStreak(entries []HabitEntry, habitID string) int {
	seen := make(map[string]bool)
	var days []time.Time
	for _, e := range entries {
		if e.HabitID != habitID || seen[e.Date] {
			continue
		}
		d, err := ParseDate(e.Date)
		if err != nil {
			continue
		}
		seen[e.Date] = true
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
