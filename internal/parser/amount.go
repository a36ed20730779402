package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/personalvault/internal/model"
)

// durationPattern matches "7h", "7h30m", "45 min", "1.5 hours".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes)(?:\s*(\d+)\s*(m|min|mins|minute|minutes))?$`)

// hourTypes record their value in hours.
var hourTypes = map[model.ActivityType]bool{
	model.ActivitySleep:    true,
	model.ActivityWork:     true,
	model.ActivityLearning: true,
}

// ParseHours parses a duration such as "7h30m", "90m" or "1.5 hours" into
// fractional hours. A bare number is taken as hours.
func ParseHours(input string) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, NewHoursError(input)
	}
	if v, err := strconv.ParseFloat(input, 64); err == nil && v >= 0 {
		return v, nil
	}
	if d, err := time.ParseDuration(strings.ReplaceAll(input, " ", "")); err == nil && d >= 0 {
		return d.Hours(), nil
	}

	m := durationPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, NewHoursError(input)
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	d := time.Duration(v * float64(unit(m[2])))
	if m[3] != "" {
		extra, _ := strconv.Atoi(m[3])
		d += time.Duration(extra) * unit(m[4])
	}
	return d.Hours(), nil
}

func unit(s string) time.Duration {
	if strings.HasPrefix(strings.ToLower(s), "h") {
		return time.Hour
	}
	return time.Minute
}

// ParseAmount parses an activity value. Sleep, work and learning accept
// durations; the other types take a plain non-negative number. An empty
// gym value counts one session.
func ParseAmount(typ model.ActivityType, input string) (float64, error) {
	input = strings.TrimSpace(input)
	if hourTypes[typ] {
		return ParseHours(input)
	}
	if input == "" && typ == model.ActivityGym {
		return 1, nil
	}
	v, err := strconv.ParseFloat(input, 64)
	if err != nil || v < 0 {
		return 0, NewAmountError(string(typ), input)
	}
	return v, nil
}

// ParseActivityType accepts an activity kind case-insensitively.
func ParseActivityType(input string) (model.ActivityType, error) {
	want := model.ActivityType(strings.ToLower(strings.TrimSpace(input)))
	for _, t := range model.ActivityTypes {
		if t == want {
			return t, nil
		}
	}
	return "", NewActivityTypeError(input)
}
