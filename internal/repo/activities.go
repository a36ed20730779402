package repo

import (
	"time"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/validate"
)

// Activities is the local-only activity log.
type Activities struct {
	*Repository[[]model.Activity]
}

// NewActivities creates the activities repository.
func NewActivities(deps Deps) *Activities {
	return &Activities{New(ActivitiesDomain(), deps)}
}

// Log records an activity at when (now if zero).
func (a *Activities) Log(typ model.ActivityType, value float64, description string, when time.Time) (model.Activity, error) {
	entry := model.NewActivity(typ, value, validate.SanitizeText(description), when)
	if err := validate.Struct(entry); err != nil {
		return model.Activity{}, err
	}
	_, err := a.Mutate(func(items []model.Activity) ([]model.Activity, error) {
		return append(items, entry), nil
	})
	if err != nil {
		return model.Activity{}, err
	}
	return entry, nil
}

// Since returns entries at or after since, newest first. An empty typ
// matches every kind.
func (a *Activities) Since(since time.Time, typ model.ActivityType) []model.Activity {
	return model.ActivitiesSince(a.Snapshot(), since, typ)
}

// Total sums the values of entries since since of kind typ.
func (a *Activities) Total(since time.Time, typ model.ActivityType) float64 {
	var sum float64
	for _, e := range a.Since(since, typ) {
		sum += e.Value
	}
	return sum
}
