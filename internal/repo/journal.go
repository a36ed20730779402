package repo

import (
	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/validate"
)

// Journal is the daily check-in collection, at most one entry per date.
type Journal struct {
	*Repository[[]model.JournalEntry]
}

// NewJournal creates the journal repository.
func NewJournal(deps Deps) *Journal {
	return &Journal{New(JournalDomain(), deps)}
}

// Upsert stores e as the entry for its date, replacing an existing one.
func (j *Journal) Upsert(e model.JournalEntry) (model.JournalEntry, error) {
	if e.ID == "" {
		e = withDefaults(e)
	}
	e.Content = validate.SanitizeText(e.Content)
	if err := validate.Struct(e); err != nil {
		return model.JournalEntry{}, err
	}

	entries, err := j.Mutate(func(entries []model.JournalEntry) ([]model.JournalEntry, error) {
		return model.UpsertJournal(entries, e), nil
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	return entries[model.FindJournal(entries, e.Date)], nil
}

// ForDate returns the entry for date.
func (j *Journal) ForDate(date string) (model.JournalEntry, bool) {
	entries := j.Snapshot()
	if i := model.FindJournal(entries, date); i >= 0 {
		return entries[i], true
	}
	return model.JournalEntry{}, false
}

// Delete removes the entry for date.
func (j *Journal) Delete(date string) error {
	_, err := j.Mutate(func(entries []model.JournalEntry) ([]model.JournalEntry, error) {
		i := model.FindJournal(entries, date)
		if i < 0 {
			return nil, errors.NewUserErrorWithField("date", date, "no journal entry for "+date,
				"Run 'personalvault journal list' to see your entries")
		}
		return append(entries[:i], entries[i+1:]...), nil
	})
	return err
}

// List returns entries newest date first.
func (j *Journal) List() []model.JournalEntry {
	return j.Snapshot()
}

func withDefaults(e model.JournalEntry) model.JournalEntry {
	fresh := model.NewJournalEntry(e.Date, e.Content)
	fresh.Mood = e.Mood
	fresh.Energy = e.Energy
	fresh.Gratitude = e.Gratitude
	return fresh
}
