package repo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
)

// =============================================================================
// Notes Tests
// =============================================================================

func TestNotesLifecycle(t *testing.T) {
	h := newHarness(t, time.Hour)
	notes := NewNotes(h.deps)

	a, err := notes.Add("  Groceries ", "milk\r\neggs", []string{"Home", "home", ""})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", a.Title)
	assert.Equal(t, "milk\neggs", a.Content)
	assert.Len(t, a.Tags, 1)

	b, err := notes.Add("Ideas", "ship it", nil)
	require.NoError(t, err)

	pinned, err := notes.TogglePin(a.ID)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)
	assert.Equal(t, a.ID, notes.List()[0].ID, "pinned notes sort first")

	title := "Big ideas"
	updated, err := notes.Update(b.ID[:8], NoteUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Big ideas", updated.Title)
	assert.Equal(t, "ship it", updated.Content)

	assert.Len(t, notes.Search("EGGS"), 1)
	assert.Len(t, notes.Search("home"), 1)
	assert.Len(t, notes.Tagged("HOME"), 1)

	require.NoError(t, notes.Delete(a.ID))
	assert.Len(t, notes.List(), 1)
	assert.True(t, errors.IsUserError(notes.Delete(a.ID)))
}

func TestNotesRejectEmpty(t *testing.T) {
	h := newHarness(t, time.Hour)
	_, err := NewNotes(h.deps).Add("  ", "", nil)
	assert.True(t, errors.IsUserError(err))
}

// =============================================================================
// Habits Tests
// =============================================================================

func TestToggleTwiceRestoresDocument(t *testing.T) {
	h := newHarness(t, time.Hour)
	habits := NewHabits(h.deps)

	run, err := habits.AddHabit("Run", "5k")
	require.NoError(t, err)

	done, err := habits.Toggle("run", "2024-05-01")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, habits.Snapshot().Entries, 1)

	done, err = habits.Toggle(run.ID, "2024-05-01")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, habits.Snapshot().Entries)
}

func TestSetDoneIsIdempotent(t *testing.T) {
	h := newHarness(t, time.Hour)
	habits := NewHabits(h.deps)
	_, err := habits.AddHabit("Run", "")
	require.NoError(t, err)

	changed, err := habits.SetDone("run", "2024-05-01", true)
	require.NoError(t, err)
	assert.True(t, changed)
	first := habits.Snapshot().Entries[0].CompletedAt
	version := habits.version

	changed, err = habits.SetDone("run", "2024-05-01", true)
	require.NoError(t, err)
	assert.False(t, changed)
	require.Len(t, habits.Snapshot().Entries, 1)
	assert.True(t, habits.Snapshot().Entries[0].CompletedAt.Equal(first))
	assert.Equal(t, version, habits.version, "no write when nothing changed")

	changed, err = habits.SetDone("run", "2024-05-01", false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, habits.Snapshot().Entries)

	changed, err = habits.SetDone("run", "2024-05-01", false)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = habits.SetDone("run", "05/01/2024", true)
	assert.True(t, errors.IsUserError(err))
}

func TestDuplicateEntriesAreDroppedOnLoad(t *testing.T) {
	h := newHarness(t, time.Hour)
	habit := model.NewHabit("Read", "")
	h.seedCache(t, model.KeyHabits, model.HabitsDocument{
		Habits: []model.Habit{habit},
		Entries: []model.HabitEntry{
			{HabitID: habit.ID, Date: "2024-05-01"},
			{HabitID: habit.ID, Date: "2024-05-01"},
			{HabitID: "orphan", Date: "2024-05-01"},
		},
	})

	doc := NewHabits(h.deps).LoadCached()
	assert.Len(t, doc.Entries, 1)
}

func TestHabitsRejectDuplicatesAndBadDates(t *testing.T) {
	h := newHarness(t, time.Hour)
	habits := NewHabits(h.deps)

	_, err := habits.AddHabit("Meditate", "")
	require.NoError(t, err)
	_, err = habits.AddHabit("meditate", "")
	assert.True(t, errors.IsUserError(err))

	_, err = habits.Toggle("meditate", "yesterday")
	assert.True(t, errors.IsUserError(err))
	_, err = habits.Toggle("unknown", "2024-05-01")
	assert.True(t, errors.IsUserError(err))
}

func TestHabitStreaksAndArchive(t *testing.T) {
	h := newHarness(t, time.Hour)
	habits := NewHabits(h.deps)
	run, err := habits.AddHabit("Run", "")
	require.NoError(t, err)
	_, err = habits.AddHabit("Swim", "")
	require.NoError(t, err)

	for _, d := range []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-04-20"} {
		_, err := habits.Toggle(run.ID, d)
		require.NoError(t, err)
	}

	streaks := habits.Streaks(model.ParseDateMust("2024-05-03"))
	require.Len(t, streaks, 2)
	assert.Equal(t, "Run", streaks[0].Habit.Name)
	assert.Equal(t, 3, streaks[0].Current)
	assert.Equal(t, 3, streaks[0].Longest)
	assert.Equal(t, 4, streaks[0].Total)
	assert.True(t, streaks[0].Today)

	_, err = habits.Archive("swim", true)
	require.NoError(t, err)
	assert.Len(t, habits.List(false), 1)
	assert.Len(t, habits.List(true), 2)

	renamed, err := habits.Rename(run.ID, "Jog")
	require.NoError(t, err)
	assert.Equal(t, "Jog", renamed.Name)

	require.NoError(t, habits.DeleteHabit("jog"))
	assert.Empty(t, habits.Snapshot().Entries, "entries go with their habit")
}

func TestRapidTogglesCoalesce(t *testing.T) {
	h := newHarness(t, 80*time.Millisecond)
	habits := NewHabits(h.deps)
	run, err := habits.AddHabit("Run", "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := habits.Toggle(run.ID, "2024-05-01")
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return h.mem.Writes() == 1 }, time.Second, 5*time.Millisecond)

	data, ok := h.mem.Content(folder, model.FileHabits)
	require.True(t, ok)
	var doc model.HabitsDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Entries, 1, "an odd number of toggles leaves it completed")
}

// =============================================================================
// Journal, Videos & Activities Tests
// =============================================================================

func TestJournalUpsertByDate(t *testing.T) {
	h := newHarness(t, time.Hour)
	journal := NewJournal(h.deps)

	first, err := journal.Upsert(model.JournalEntry{Date: "2024-05-01", Content: "ok day", Mood: 6})
	require.NoError(t, err)
	second, err := journal.Upsert(model.JournalEntry{Date: "2024-05-01", Content: "better", Mood: 8})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, journal.List(), 1)

	e, ok := journal.ForDate("2024-05-01")
	require.True(t, ok)
	assert.Equal(t, "better", e.Content)
	assert.Equal(t, 8, e.Mood)

	_, err = journal.Upsert(model.JournalEntry{Date: "2024-05-02", Mood: 11})
	assert.True(t, errors.IsUserError(err))

	require.NoError(t, journal.Delete("2024-05-01"))
	assert.Error(t, journal.Delete("2024-05-01"))
}

func TestVideosLifecycle(t *testing.T) {
	h := newHarness(t, time.Hour)
	videos := NewVideos(h.deps)

	v, err := videos.Add("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "Talk", "learning")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", v.VideoID)

	_, err = videos.Add("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "again", "")
	assert.True(t, errors.IsUserError(err))
	_, err = videos.Add("ftp://example.com/x", "", "")
	assert.True(t, errors.IsUserError(err))

	_, err = videos.SetWatched(v.ID, true)
	require.NoError(t, err)
	assert.Empty(t, videos.List(true))
	assert.Len(t, videos.List(false), 1)

	require.NoError(t, videos.Delete(v.ID))
	assert.Error(t, videos.Delete(v.ID))
}

func TestActivitiesSinceAndTotal(t *testing.T) {
	h := newHarness(t, time.Hour)
	acts := NewActivities(h.deps)
	now := time.Now()

	_, err := acts.Log(model.ActivityWater, 2, "", now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = acts.Log(model.ActivityWater, 3, "", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = acts.Log(model.ActivitySleep, 7.5, "", now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = acts.Log("juggling", 1, "", now)
	assert.True(t, errors.IsUserError(err))

	day := now.Add(-24 * time.Hour)
	assert.Len(t, acts.Since(day, ""), 2)
	assert.Len(t, acts.Since(day, model.ActivityWater), 1)
	assert.InDelta(t, 5.0, acts.Total(time.Time{}, model.ActivityWater), 0.001)

	reloaded := NewActivities(h.deps)
	assert.Len(t, reloaded.LoadCached(), 3, "entries survive in the cache")
}
