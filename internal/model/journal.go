package model

import (
	"sort"
	"time"
)

// JournalEntry is a daily check-in. There is at most one entry per date.
type JournalEntry struct {
	ID        string    `json:"id" validate:"required"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
	Mood      int       `json:"mood,omitempty" validate:"min=0,max=10"`
	Energy    int       `json:"energy,omitempty" validate:"min=0,max=10"`
	Content   string    `json:"content" validate:"max=100000"`
	Gratitude []string  `json:"gratitude,omitempty" validate:"max=10,dive,max=500"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewJournalEntry creates an entry for date.
func NewJournalEntry(date, content string) JournalEntry {
	now := time.Now().UTC()
	return JournalEntry{
		ID:        NewID(),
		Date:      date,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SortJournal orders entries newest date first.
func SortJournal(entries []JournalEntry) []JournalEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
	return entries
}

// UpsertJournal replaces the entry sharing e's date, keeping its id and
// creation time, or appends e.
func UpsertJournal(entries []JournalEntry, e JournalEntry) []JournalEntry {
	for i := range entries {
		if entries[i].Date == e.Date {
			e.ID = entries[i].ID
			e.CreatedAt = entries[i].CreatedAt
			e.UpdatedAt = time.Now().UTC()
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

// FindJournal returns the index of the entry for date, or -1.
func FindJournal(entries []JournalEntry, date string) int {
	for i := range entries {
		if entries[i].Date == date {
			return i
		}
	}
	return -1
}
