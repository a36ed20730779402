package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/validate"
)

// Habits is the habits document: habit definitions plus completion entries.
type Habits struct {
	*Repository[model.HabitsDocument]
}

// NewHabits creates the habits repository.
func NewHabits(deps Deps) *Habits {
	return &Habits{New(HabitsDomain(), deps)}
}

// Streak summarizes one habit's completions.
type Streak struct {
	Habit   model.Habit `json:"habit"`
	Current int         `json:"current"`
	Longest int         `json:"longest"`
	Total   int         `json:"total"`
	Today   bool        `json:"done_today"`
}

// AddHabit creates a habit. Names are unique, ignoring case.
func (h *Habits) AddHabit(name, description string) (model.Habit, error) {
	name = validate.SanitizeText(name)
	if err := validate.Name("habit name", name); err != nil {
		return model.Habit{}, err
	}
	habit := model.NewHabit(name, validate.SanitizeText(description))
	if err := validate.Struct(habit); err != nil {
		return model.Habit{}, err
	}

	_, err := h.Mutate(func(doc model.HabitsDocument) (model.HabitsDocument, error) {
		for _, existing := range doc.Habits {
			if strings.EqualFold(existing.Name, name) {
				return doc, errors.NewUserErrorWithField("name", name, "habit already exists",
					"Choose a different name")
			}
		}
		doc.Habits = append(doc.Habits, habit)
		return doc, nil
	})
	if err != nil {
		return model.Habit{}, err
	}
	return habit, nil
}

// Rename changes a habit's name.
func (h *Habits) Rename(ref, name string) (model.Habit, error) {
	name = validate.SanitizeText(name)
	if err := validate.Name("habit name", name); err != nil {
		return model.Habit{}, err
	}
	return h.modify(ref, func(habit *model.Habit) { habit.Name = name })
}

// Archive hides or restores a habit without losing its history.
func (h *Habits) Archive(ref string, archived bool) (model.Habit, error) {
	return h.modify(ref, func(habit *model.Habit) { habit.Archived = archived })
}

// DeleteHabit removes a habit and its completion entries.
func (h *Habits) DeleteHabit(ref string) error {
	habit, ok := h.Lookup(ref)
	if !ok {
		return habitNotFound(ref)
	}
	_, err := h.Mutate(func(doc model.HabitsDocument) (model.HabitsDocument, error) {
		kept := doc.Habits[:0]
		for _, existing := range doc.Habits {
			if existing.ID != habit.ID {
				kept = append(kept, existing)
			}
		}
		doc.Habits = kept
		// Normalize drops the orphaned entries.
		return doc, nil
	})
	return err
}

// errNoChange aborts a Mutate whose result would equal its input.
var errNoChange = errors.New("habit completion unchanged")

// Toggle flips the habit's completion on date (YYYY-MM-DD) and reports
// whether it is now completed.
func (h *Habits) Toggle(ref, date string) (bool, error) {
	var done bool
	err := h.setCompletion(ref, date, func(doc model.HabitsDocument, id string) (model.HabitsDocument, bool) {
		done = !doc.Completed(id, date)
		return model.SetCompletion(doc, id, date, done)
	})
	return done, err
}

// SetDone marks the habit done or not done on date and reports whether
// anything changed. A call that changes nothing writes nothing.
func (h *Habits) SetDone(ref, date string, done bool) (bool, error) {
	err := h.setCompletion(ref, date, func(doc model.HabitsDocument, id string) (model.HabitsDocument, bool) {
		return model.SetCompletion(doc, id, date, done)
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	return err == nil, err
}

func (h *Habits) setCompletion(ref, date string, fn func(model.HabitsDocument, string) (model.HabitsDocument, bool)) error {
	if _, err := model.ParseDate(date); err != nil {
		return errors.NewUserErrorWithField("date", date, "invalid date", "Use YYYY-MM-DD")
	}
	habit, ok := h.Lookup(ref)
	if !ok {
		return habitNotFound(ref)
	}

	_, err := h.Mutate(func(doc model.HabitsDocument) (model.HabitsDocument, error) {
		if _, ok := doc.Habit(habit.ID); !ok {
			return doc, habitNotFound(ref)
		}
		next, changed := fn(doc, habit.ID)
		if !changed {
			return doc, errNoChange
		}
		return next, nil
	})
	return err
}

// Lookup finds a habit by id, id prefix or case-insensitive name.
func (h *Habits) Lookup(ref string) (model.Habit, bool) {
	doc := h.Snapshot()
	if habit, ok := doc.Habit(ref); ok {
		return habit, true
	}
	for _, habit := range doc.Habits {
		if strings.EqualFold(habit.Name, ref) {
			return habit, true
		}
	}
	var match []model.Habit
	for _, habit := range doc.Habits {
		if strings.HasPrefix(habit.ID, ref) {
			match = append(match, habit)
		}
	}
	if len(match) == 1 {
		return match[0], true
	}
	return model.Habit{}, false
}

// List returns habits, oldest first. Archived habits are included only when
// asked for.
func (h *Habits) List(includeArchived bool) []model.Habit {
	var out []model.Habit
	for _, habit := range h.Snapshot().Habits {
		if habit.Archived && !includeArchived {
			continue
		}
		out = append(out, habit)
	}
	return out
}

// Streaks computes streaks for every active habit as of today.
func (h *Habits) Streaks(today time.Time) []Streak {
	doc := h.Snapshot()
	date := model.FormatDate(today)
	out := make([]Streak, 0, len(doc.Habits))
	for _, habit := range doc.Habits {
		if habit.Archived {
			continue
		}
		out = append(out, Streak{
			Habit:   habit,
			Current: model.CurrentStreak(doc.Entries, habit.ID, today),
			Longest: model.LongestStreak(doc.Entries, habit.ID),
			Total:   len(doc.EntriesFor(habit.ID)),
			Today:   doc.Completed(habit.ID, date),
		})
	}
	return out
}

func (h *Habits) modify(ref string, fn func(*model.Habit)) (model.Habit, error) {
	habit, ok := h.Lookup(ref)
	if !ok {
		return model.Habit{}, habitNotFound(ref)
	}

	var updated model.Habit
	_, err := h.Mutate(func(doc model.HabitsDocument) (model.HabitsDocument, error) {
		for i := range doc.Habits {
			if doc.Habits[i].ID == habit.ID {
				fn(&doc.Habits[i])
				updated = doc.Habits[i]
				return doc, validate.Struct(updated)
			}
		}
		return doc, habitNotFound(ref)
	})
	return updated, err
}

func habitNotFound(ref string) error {
	return errors.NewUserErrorWithField("habit", ref, fmt.Sprintf("habit not found: %s", ref),
		"Run 'personalvault habit list' to see your habits")
}
