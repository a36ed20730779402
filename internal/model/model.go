// Package model defines the records kept by PersonalVault and the pure
// derivations computed over them.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Domain names a replicated collection.
type Domain string

const (
	DomainNotes      Domain = "notes"
	DomainHabits     Domain = "habits"
	DomainJournal    Domain = "journal"
	DomainVideos     Domain = "videos"
	DomainActivities Domain = "activities"
)

// Domains lists every collection in preload order.
var Domains = []Domain{DomainNotes, DomainHabits, DomainJournal, DomainVideos, DomainActivities}

// Local cache keys.
const (
	KeyNotes       = "notes_backup"
	KeyHabits      = "habits_backup"
	KeyJournal     = "daily_checkins"
	KeyVideos      = "videos_backup"
	KeyActivities  = "activities_data"
	KeyUser        = "googleUser"
	KeyTokenExpiry = "tokenExpiry"
	KeyDailyQuote  = "daily_quote"

	// PrefixPending marks a domain whose last local change has not reached
	// the remote store yet.
	PrefixPending = "sync_pending:"
)

// Remote file names inside the application folder.
const (
	FileNotes   = "notes.json"
	FileHabits  = "habits.json"
	FileVideos  = "videos.json"
	FileJournal = "journal_entries.json"
)

// DateLayout is the calendar date format used for habit and journal dates.
const DateLayout = "2006-01-02"

// PendingKey returns the pending-flush marker key for a domain.
func PendingKey(d Domain) string {
	return PrefixPending + string(d)
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// FormatDate renders t as a calendar date in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the local calendar date for now.
func Today() string {
	return FormatDate(time.Now())
}

// ParseDateMust is ParseDate for constant inputs; it panics on bad input.
func ParseDateMust(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
