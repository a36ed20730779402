package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func entriesFor(habitID string, dates ...string) []HabitEntry {
	out := make([]HabitEntry, 0, len(dates))
	for _, d := range dates {
		out = append(out, HabitEntry{HabitID: habitID, Date: d})
	}
	return out
}

// =============================================================================
// Streak Tests
// =============================================================================

func TestCurrentStreak(t *testing.T) {
	entries := entriesFor("h1", "2024-01-10", "2024-01-09", "2024-01-08", "2024-01-05")

	assert.Equal(t, 3, CurrentStreak(entries, "h1", day("2024-01-10")))
	assert.Equal(t, 0, CurrentStreak(entries, "h1", day("2024-01-11")), "today missing ends the streak")
	assert.Equal(t, 1, CurrentStreak(entries, "h1", day("2024-01-05")))
	assert.Equal(t, 0, CurrentStreak(entries, "other", day("2024-01-10")))
	assert.Equal(t, 0, CurrentStreak(nil, "h1", day("2024-01-10")))
}

func TestCurrentStreakIgnoresTimeOfDay(t *testing.T) {
	entries := entriesFor("h1", "2024-03-01", "2024-02-29")
	today := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 2, CurrentStreak(entries, "h1", today))
}

func TestLongestStreak(t *testing.T) {
	entries := entriesFor("h1",
		"2024-01-01", "2024-01-02", "2024-01-03",
		"2024-01-05",
		"2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10",
	)
	assert.Equal(t, 4, LongestStreak(entries, "h1"))
}

func TestLongestStreakDeduplicatesDates(t *testing.T) {
	entries := entriesFor("h1", "2024-01-01", "2024-01-01", "2024-01-02", "2024-01-02")
	assert.Equal(t, 2, LongestStreak(entries, "h1"))
}

func TestLongestStreakAcrossMonthAndYear(t *testing.T) {
	entries := entriesFor("h1", "2023-12-30", "2023-12-31", "2024-01-01", "2024-02-28", "2024-02-29", "2024-03-01")
	assert.Equal(t, 3, LongestStreak(entries, "h1"))
}

func TestLongestStreakEmpty(t *testing.T) {
	assert.Equal(t, 0, LongestStreak(nil, "h1"))
	assert.Equal(t, 0, LongestStreak(entriesFor("h1", "not-a-date"), "h1"))
}

// =============================================================================
// Habit Toggle Tests
// =============================================================================

func TestToggleCompletionAddsThenRemoves(t *testing.T) {
	doc := HabitsDocument{Habits: []Habit{{ID: "h1", Name: "Run"}}}

	once := ToggleCompletion(doc, "h1", "2024-01-01")
	require.Len(t, once.Entries, 1)
	assert.True(t, once.Completed("h1", "2024-01-01"))

	twice := ToggleCompletion(once, "h1", "2024-01-01")
	assert.Empty(t, twice.Entries)
	assert.False(t, twice.Completed("h1", "2024-01-01"))
}

func TestToggleCompletionNeverDuplicates(t *testing.T) {
	doc := HabitsDocument{Habits: []Habit{{ID: "h1"}}}
	for i := 0; i < 7; i++ {
		doc = ToggleCompletion(doc, "h1", "2024-01-01")
		count := 0
		for _, e := range doc.Entries {
			if e.HabitID == "h1" && e.Date == "2024-01-01" {
				count++
			}
		}
		assert.LessOrEqual(t, count, 1)
	}
	assert.True(t, doc.Completed("h1", "2024-01-01"), "odd number of toggles leaves it completed")
}

func TestToggleCompletionDoesNotAlias(t *testing.T) {
	doc := HabitsDocument{Habits: []Habit{{ID: "h1"}}, Entries: entriesFor("h1", "2024-01-01", "2024-01-02")}
	_ = ToggleCompletion(doc, "h1", "2024-01-01")
	assert.Len(t, doc.Entries, 2)
	assert.Equal(t, "2024-01-01", doc.Entries[0].Date)
}

func TestSetCompletionKeepsExistingEntry(t *testing.T) {
	at := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	doc := HabitsDocument{
		Habits:  []Habit{{ID: "h1"}},
		Entries: []HabitEntry{{HabitID: "h1", Date: "2024-01-01", CompletedAt: at}},
	}

	same, changed := SetCompletion(doc, "h1", "2024-01-01", true)
	assert.False(t, changed)
	require.Len(t, same.Entries, 1)
	assert.True(t, same.Entries[0].CompletedAt.Equal(at))

	cleared, changed := SetCompletion(doc, "h1", "2024-01-01", false)
	assert.True(t, changed)
	assert.Empty(t, cleared.Entries)
	assert.Len(t, doc.Entries, 1, "input is not modified")

	_, changed = SetCompletion(cleared, "h1", "2024-01-01", false)
	assert.False(t, changed)
}

func TestNormalizeHabits(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	doc := HabitsDocument{
		Habits: []Habit{{ID: "b", CreatedAt: newer}, {ID: "a", CreatedAt: older}},
		Entries: []HabitEntry{
			{HabitID: "a", Date: "2024-01-01"},
			{HabitID: "a", Date: "2024-01-03"},
			{HabitID: "a", Date: "2024-01-01"},
			{HabitID: "gone", Date: "2024-01-02"},
		},
	}

	got := NormalizeHabits(doc)
	require.Len(t, got.Habits, 2)
	assert.Equal(t, "a", got.Habits[0].ID)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "2024-01-03", got.Entries[0].Date)
	assert.Equal(t, "2024-01-01", got.Entries[1].Date)
}

// =============================================================================
// Sorting Tests
// =============================================================================

func TestSortNotesPinnedFirstThenNewest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := []Note{
		{ID: "old", UpdatedAt: base},
		{ID: "new", UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "pinned-old", Pinned: true, UpdatedAt: base.Add(-time.Hour)},
		{ID: "legacy", CreatedAt: base.Add(time.Hour)},
	}

	SortNotes(notes)
	ids := []string{notes[0].ID, notes[1].ID, notes[2].ID, notes[3].ID}
	assert.Equal(t, []string{"pinned-old", "new", "legacy", "old"}, ids)
}

func TestSortJournalNewestDateFirst(t *testing.T) {
	entries := []JournalEntry{{Date: "2024-01-02"}, {Date: "2024-01-10"}, {Date: "2023-12-31"}}
	SortJournal(entries)
	assert.Equal(t, "2024-01-10", entries[0].Date)
	assert.Equal(t, "2023-12-31", entries[2].Date)
}

func TestUpsertJournalKeepsIdentity(t *testing.T) {
	first := NewJournalEntry("2024-01-01", "first")
	entries := UpsertJournal(nil, first)

	replacement := NewJournalEntry("2024-01-01", "second")
	entries = UpsertJournal(entries, replacement)

	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "second", entries[0].Content)

	entries = UpsertJournal(entries, NewJournalEntry("2024-01-02", "next"))
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, FindJournal(entries, "2024-01-02"))
}

func TestNoteMatches(t *testing.T) {
	n := Note{Title: "Groceries", Content: "milk and eggs", Tags: []string{"Home"}}
	assert.True(t, n.Matches("grocer"))
	assert.True(t, n.Matches("EGGS"))
	assert.True(t, n.Matches("home"))
	assert.True(t, n.Matches(""))
	assert.False(t, n.Matches("work"))
	assert.True(t, n.HasTag("HOME"))
}

// =============================================================================
// Video Tests
// =============================================================================

func TestExtractYouTubeID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://vimeo.com/12345", ""},
		{"https://www.youtube.com/watch?v=short", ""},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYouTubeID(tt.url))
		})
	}
}

func TestVideoThumbnail(t *testing.T) {
	v := NewVideo("https://youtu.be/dQw4w9WgXcQ", "song", "music")
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg", v.ThumbnailURL())
	assert.Empty(t, Video{}.ThumbnailURL())
}

// =============================================================================
// Activity & Session Tests
// =============================================================================

func TestActivitiesSince(t *testing.T) {
	now := time.Now().UTC()
	items := []Activity{
		{ID: "1", Type: ActivityWater, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "2", Type: ActivityWater, CreatedAt: now.Add(-time.Hour)},
		{ID: "3", Type: ActivityGym, CreatedAt: now},
	}

	assert.Len(t, ActivitiesSince(items, now.Add(-24*time.Hour), ""), 2)
	got := ActivitiesSince(items, now.Add(-24*time.Hour), ActivityWater)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	s := Session{AccessToken: "tok", Expiry: now.Add(10 * time.Minute)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(11*time.Minute)))
	assert.True(t, s.ExpiresWithin(now, 15*time.Minute))
	assert.False(t, s.ExpiresWithin(now, 5*time.Minute))
	assert.True(t, Session{Expiry: now.Add(time.Hour)}.Expired(now), "no token means expired")
	assert.Zero(t, s.Remaining(now.Add(time.Hour)))
}

// =============================================================================
// Round Trip Tests
// =============================================================================

func TestHabitsDocumentJSONShape(t *testing.T) {
	doc := HabitsDocument{
		Habits:  []Habit{{ID: "h1", Name: "Read"}},
		Entries: []HabitEntry{{HabitID: "h1", Date: "2024-01-01"}},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "habits")
	assert.Contains(t, raw, "entries")
	assert.Contains(t, string(raw["entries"]), `"habitId":"h1"`)

	var back HabitsDocument
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, doc.Habits[0].ID, back.Habits[0].ID)
	assert.Equal(t, doc.Entries[0].Date, back.Entries[0].Date)
}
