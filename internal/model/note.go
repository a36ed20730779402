package model

import (
	"sort"
	"strings"
	"time"
)

// Note is a free-form text note.
type Note struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title" validate:"max=200"`
	Content   string    `json:"content" validate:"max=100000"`
	Tags      []string  `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	Pinned    bool      `json:"pinned"`
	Color     string    `json:"color,omitempty" validate:"omitempty,max=20"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewNote creates a note stamped with the current time.
func NewNote(title, content string, tags []string) Note {
	now := time.Now().UTC()
	return Note{
		ID:        NewID(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the modification time.
func (n *Note) Touch() {
	n.UpdatedAt = time.Now().UTC()
}

// ModifiedAt returns UpdatedAt, falling back to CreatedAt for old records.
func (n Note) ModifiedAt() time.Time {
	if n.UpdatedAt.IsZero() {
		return n.CreatedAt
	}
	return n.UpdatedAt
}

// HasTag reports whether the note carries tag (case-insensitive).
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Matches reports whether query occurs in the title, content or tags.
func (n Note) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// SortNotes orders notes pinned first, then most recently modified first.
func SortNotes(notes []Note) []Note {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Pinned != notes[j].Pinned {
			return notes[i].Pinned
		}
		return notes[i].ModifiedAt().After(notes[j].ModifiedAt())
	})
	return notes
}

// FindNote returns the index of the note with id, or -1.
func FindNote(notes []Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}
