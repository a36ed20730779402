package repo

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/validate"
)

// Notes is the notes collection.
type Notes struct {
	*Repository[[]model.Note]
}

// NewNotes creates the notes repository.
func NewNotes(deps Deps) *Notes {
	return &Notes{New(NotesDomain(), deps)}
}

// NoteUpdate carries the fields Update changes. Nil fields are left alone.
type NoteUpdate struct {
	Title   *string
	Content *string
	Tags    []string
	Color   *string
}

// Add creates a note.
func (n *Notes) Add(title, content string, tags []string) (model.Note, error) {
	note := model.NewNote(validate.SanitizeText(title), validate.SanitizeText(content), validate.SanitizeTags(tags))
	if err := validate.Struct(note); err != nil {
		return model.Note{}, err
	}
	if note.Title == "" && note.Content == "" {
		return model.Note{}, errors.NewUserError("note is empty", "Give the note a title or some content")
	}

	_, err := n.Mutate(func(notes []model.Note) ([]model.Note, error) {
		return append(notes, note), nil
	})
	if err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// Update applies u to the note with id.
func (n *Notes) Update(id string, u NoteUpdate) (model.Note, error) {
	return n.modify(id, func(note *model.Note) error {
		if u.Title != nil {
			note.Title = validate.SanitizeText(*u.Title)
		}
		if u.Content != nil {
			note.Content = validate.SanitizeText(*u.Content)
		}
		if u.Tags != nil {
			note.Tags = validate.SanitizeTags(u.Tags)
		}
		if u.Color != nil {
			note.Color = *u.Color
		}
		return validate.Struct(note)
	})
}

// TogglePin flips the note's pinned flag.
func (n *Notes) TogglePin(id string) (model.Note, error) {
	return n.modify(id, func(note *model.Note) error {
		note.Pinned = !note.Pinned
		return nil
	})
}

// Delete removes the note with id.
func (n *Notes) Delete(id string) error {
	_, err := n.Mutate(func(notes []model.Note) ([]model.Note, error) {
		i := model.FindNote(notes, id)
		if i < 0 {
			return nil, noteNotFound(id)
		}
		return append(notes[:i], notes[i+1:]...), nil
	})
	return err
}

// Get returns the note with id. A unique id prefix is accepted.
func (n *Notes) Get(id string) (model.Note, bool) {
	notes := n.Snapshot()
	if i := model.FindNote(notes, id); i >= 0 {
		return notes[i], true
	}
	var match []model.Note
	for _, note := range notes {
		if strings.HasPrefix(note.ID, id) {
			match = append(match, note)
		}
	}
	if len(match) == 1 {
		return match[0], true
	}
	return model.Note{}, false
}

// List returns every note, pinned first then newest first.
func (n *Notes) List() []model.Note {
	return n.Snapshot()
}

// Search returns notes whose title, content or tags contain query.
func (n *Notes) Search(query string) []model.Note {
	var out []model.Note
	for _, note := range n.Snapshot() {
		if note.Matches(query) {
			out = append(out, note)
		}
	}
	return out
}

// Tagged returns notes carrying tag.
func (n *Notes) Tagged(tag string) []model.Note {
	var out []model.Note
	for _, note := range n.Snapshot() {
		if note.HasTag(tag) {
			out = append(out, note)
		}
	}
	return out
}

func (n *Notes) modify(id string, fn func(*model.Note) error) (model.Note, error) {
	note, ok := n.Get(id)
	if !ok {
		return model.Note{}, noteNotFound(id)
	}

	var updated model.Note
	_, err := n.Mutate(func(notes []model.Note) ([]model.Note, error) {
		i := model.FindNote(notes, note.ID)
		if i < 0 {
			return nil, noteNotFound(id)
		}
		if err := fn(&notes[i]); err != nil {
			return nil, err
		}
		notes[i].Touch()
		updated = notes[i]
		return notes, nil
	})
	return updated, err
}

func noteNotFound(id string) error {
	return errors.NewUserErrorWithField("id", id, fmt.Sprintf("note not found: %s", id),
		"Run 'personalvault note list' to see note ids")
}
