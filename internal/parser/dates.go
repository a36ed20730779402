// Package parser turns natural-language command arguments into dates,
// periods and activity amounts.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/manav03panchal/personalvault/internal/model"
)

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

var (
	periodPattern  = regexp.MustCompile(`(?i)^(this|current|last|previous)\s+(day|week|month|year)$`)
	windowPattern  = regexp.MustCompile(`(?i)^(\d+)\s*(d|day|days|w|week|weeks)$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return startOfDay(t).AddDate(0, 0, 1-weekday)
}

// ParseTime parses a point in time such as "now", "2 hours ago",
// "yesterday 9pm" or "2024-05-01 08:30", relative to now.
func ParseTime(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, "now") {
		return now, nil
	}
	cfg := &dateparser.Configuration{CurrentTime: now}
	res, err := dateparser.Parse(cfg, input)
	if err != nil || res.Time.IsZero() {
		return time.Time{}, NewTimeError(input)
	}
	return res.Time, nil
}

// ParseDate resolves input to a local calendar day in YYYY-MM-DD form.
// Empty input means today.
func ParseDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "", "today":
		return model.FormatDate(now), nil
	case "yesterday":
		return model.FormatDate(now.AddDate(0, 0, -1)), nil
	}
	if isoDatePattern.MatchString(input) {
		if _, err := model.ParseDate(input); err != nil {
			return "", NewDateError(input)
		}
		return input, nil
	}

	cfg := &dateparser.Configuration{CurrentTime: now}
	res, err := dateparser.Parse(cfg, input)
	if err != nil || res.Time.IsZero() {
		return "", NewDateError(input)
	}
	return model.FormatDate(res.Time.In(now.Location())), nil
}

// ParsePeriod resolves "today", "yesterday", "this week", "last month",
// "7d" or "2 weeks" to a range ending no later than the end of today.
func ParsePeriod(input string, now time.Time) (Range, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	switch input {
	case "", "today":
		return Range{Start: today, End: tomorrow}, nil
	case "yesterday":
		return Range{Start: today.AddDate(0, 0, -1), End: today}, nil
	}

	if m := windowPattern.FindStringSubmatch(input); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 0 {
			return Range{}, NewPeriodError(input)
		}
		days := n
		if strings.HasPrefix(m[2], "w") {
			days = n * 7
		}
		return Range{Start: tomorrow.AddDate(0, 0, -days), End: tomorrow}, nil
	}

	if m := periodPattern.FindStringSubmatch(input); m != nil {
		last := m[1] == "last" || m[1] == "previous"
		var start time.Time
		var step func(time.Time, int) time.Time
		switch m[2] {
		case "day":
			start, step = today, func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }
		case "week":
			start, step = startOfWeek(now), func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }
		case "month":
			start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
			step = func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
		case "year":
			start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
			step = func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) }
		}
		if last {
			start = step(start, -1)
		}
		return Range{Start: start, End: step(start, 1)}, nil
	}

	// A single point such as "3 days ago" or "2024-04-01" starts the range.
	t, err := ParseTime(input, now)
	if err != nil || !startOfDay(t).Before(tomorrow) {
		return Range{}, NewPeriodError(input)
	}
	return Range{Start: startOfDay(t), End: tomorrow}, nil
}
