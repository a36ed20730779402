package model

import (
	"sort"
	"time"
)

// ActivityType enumerates the tracked activity kinds.
type ActivityType string

const (
	ActivitySleep    ActivityType = "sleep"
	ActivityWater    ActivityType = "water"
	ActivityGym      ActivityType = "gym"
	ActivityMood     ActivityType = "mood"
	ActivityWork     ActivityType = "work"
	ActivityLearning ActivityType = "learning"
)

// ActivityTypes lists the accepted activity kinds.
var ActivityTypes = []ActivityType{
	ActivitySleep, ActivityWater, ActivityGym, ActivityMood, ActivityWork, ActivityLearning,
}

// Activity is a local-only log entry.
type Activity struct {
	ID          string       `json:"id" validate:"required"`
	Type        ActivityType `json:"type" validate:"required,oneof=sleep water gym mood work learning"`
	Value       float64      `json:"value" validate:"gte=0"`
	Description string       `json:"description,omitempty" validate:"max=1000"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NewActivity creates an activity entry at when (now if zero).
func NewActivity(typ ActivityType, value float64, description string, when time.Time) Activity {
	if when.IsZero() {
		when = time.Now()
	}
	return Activity{
		ID:          NewID(),
		Type:        typ,
		Value:       value,
		Description: description,
		CreatedAt:   when.UTC(),
	}
}

// SortActivities orders entries newest first.
func SortActivities(items []Activity) []Activity {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items
}

// ActivitiesSince returns entries created at or after since, optionally
// filtered by type.
func ActivitiesSince(items []Activity, since time.Time, typ ActivityType) []Activity {
	var out []Activity
	for _, a := range items {
		if a.CreatedAt.Before(since) {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		out = append(out, a)
	}
	return out
}
