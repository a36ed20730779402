package parser

import (
	"testing"

	"github.com/manav03panchal/personalvault/internal/model"
)

// Run with: go test ./internal/parser -fuzz=FuzzParsePeriod -fuzztime=30s
func FuzzParsePeriod(f *testing.F) {
	for _, seed := range []string{"today", "7d", "2 weeks", "last month", "3 days ago", "0d", "", "  THIS   week "} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		r, err := ParsePeriod(input, now)
		if err == nil && !r.End.After(r.Start) {
			t.Fatalf("empty range for %q: %v..%v", input, r.Start, r.End)
		}
	})
}

// Run with: go test ./internal/parser -fuzz=FuzzParseHours -fuzztime=30s
func FuzzParseHours(f *testing.F) {
	for _, seed := range []string{"7.5", "7h30m", "90 min", "1.5 hours", "-3", "h", "1e9"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		if _, err := ParseHours(input); err != nil {
			return
		}
		if _, err := ParseAmount(model.ActivitySleep, input); err != nil {
			t.Fatalf("ParseHours accepted %q but ParseAmount did not: %v", input, err)
		}
	})
}

func FuzzParseDate(f *testing.F) {
	for _, seed := range []string{"today", "yesterday", "2024-02-29", "2023-02-29", "next friday"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		got, err := ParseDate(input, now)
		if err == nil && len(got) < len("2006-01-02") {
			t.Fatalf("ParseDate(%q) = %q", input, got)
		}
	})
}
