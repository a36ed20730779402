package repo

import (
	"context"

	"github.com/manav03panchal/personalvault/internal/model"
)

// Syncable is the type-erased view of a repository used by preload, the
// scheduler and the CLI sync commands.
type Syncable interface {
	Name() model.Domain
	LocalOnly() bool
	Warm() int
	Count() int
	Sync(ctx context.Context) (int, error)
	Pending() bool
	ForceFlush(ctx context.Context) error
	Push(ctx context.Context) error
}

func sliceDomain[E any](name model.Domain, key, file string, sortFn func([]E) []E) Domain[[]E] {
	return Domain[[]E]{
		Name:     name,
		CacheKey: key,
		FileName: file,
		Empty:    func() []E { return []E{} },
		Normalize: func(v []E) []E {
			if v == nil {
				return []E{}
			}
			return sortFn(v)
		},
		Clone: func(v []E) []E { return append([]E{}, v...) },
		Count: func(v []E) int { return len(v) },
	}
}

// NotesDomain describes the notes collection.
func NotesDomain() Domain[[]model.Note] {
	d := sliceDomain(model.DomainNotes, model.KeyNotes, model.FileNotes, model.SortNotes)
	d.Clone = func(v []model.Note) []model.Note {
		out := make([]model.Note, len(v))
		for i, n := range v {
			n.Tags = append([]string(nil), n.Tags...)
			out[i] = n
		}
		return out
	}
	return d
}

// HabitsDomain describes the habits document.
func HabitsDomain() Domain[model.HabitsDocument] {
	return Domain[model.HabitsDocument]{
		Name:      model.DomainHabits,
		CacheKey:  model.KeyHabits,
		FileName:  model.FileHabits,
		Empty:     func() model.HabitsDocument { return model.HabitsDocument{Habits: []model.Habit{}, Entries: []model.HabitEntry{}} },
		Normalize: model.NormalizeHabits,
		Clone:     model.HabitsDocument.Clone,
		Count:     func(d model.HabitsDocument) int { return len(d.Habits) },
	}
}

// JournalDomain describes the daily check-ins.
func JournalDomain() Domain[[]model.JournalEntry] {
	d := sliceDomain(model.DomainJournal, model.KeyJournal, model.FileJournal, model.SortJournal)
	d.Clone = func(v []model.JournalEntry) []model.JournalEntry {
		out := make([]model.JournalEntry, len(v))
		for i, e := range v {
			e.Gratitude = append([]string(nil), e.Gratitude...)
			out[i] = e
		}
		return out
	}
	return d
}

// VideosDomain describes the video bookmarks.
func VideosDomain() Domain[[]model.Video] {
	return sliceDomain(model.DomainVideos, model.KeyVideos, model.FileVideos, model.SortVideos)
}

// ActivitiesDomain describes the activity log. It has no remote file.
func ActivitiesDomain() Domain[[]model.Activity] {
	return sliceDomain(model.DomainActivities, model.KeyActivities, "", model.SortActivities)
}

// Set holds one repository per domain.
type Set struct {
	Notes      *Notes
	Habits     *Habits
	Journal    *Journal
	Videos     *Videos
	Activities *Activities
}

// NewSet creates every repository over deps.
func NewSet(deps Deps) *Set {
	return &Set{
		Notes:      NewNotes(deps),
		Habits:     NewHabits(deps),
		Journal:    NewJournal(deps),
		Videos:     NewVideos(deps),
		Activities: NewActivities(deps),
	}
}

// All returns the repositories in preload order.
func (s *Set) All() []Syncable {
	return []Syncable{s.Notes, s.Habits, s.Journal, s.Videos, s.Activities}
}

// Get returns the repository for d.
func (s *Set) Get(d model.Domain) (Syncable, bool) {
	for _, r := range s.All() {
		if r.Name() == d {
			return r, true
		}
	}
	return nil, false
}
