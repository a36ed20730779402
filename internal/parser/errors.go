package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
)

// InputError is an argument that could not be parsed. It carries examples
// of accepted input.
type InputError struct {
	Input    string
	Field    string
	Message  string
	Examples []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// Unwrap exposes the UserError form and, for dates and times,
// errors.ErrInvalidDate.
func (e *InputError) Unwrap() []error {
	errs := []error{e.UserError()}
	if e.Field == "date" || e.Field == "time" {
		errs = append(errs, errors.ErrInvalidDate)
	}
	return errs
}

// UserError converts e into a UserError whose suggestion lists examples.
func (e *InputError) UserError() *errors.UserError {
	suggestion := ""
	if len(e.Examples) > 0 {
		n := min(4, len(e.Examples))
		suggestion = "Try: " + strings.Join(e.Examples[:n], ", ")
	}
	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion)
}

// Examples shown with parse errors.
var (
	DateExamples   = []string{"today", "yesterday", "3 days ago", "2024-05-01", "last friday"}
	TimeExamples   = []string{"now", "2 hours ago", "yesterday 9pm", "2024-05-01 08:30"}
	PeriodExamples = []string{"today", "7d", "2 weeks", "this week", "last month"}
	HoursExamples  = []string{"7.5", "7h30m", "90m", "1.5 hours"}
)

// NewDateError reports an unparseable calendar day.
func NewDateError(input string) *InputError {
	return &InputError{Input: input, Field: "date", Message: "could not parse date", Examples: DateExamples}
}

// NewTimeError reports an unparseable point in time.
func NewTimeError(input string) *InputError {
	return &InputError{Input: input, Field: "time", Message: "could not parse time", Examples: TimeExamples}
}

// NewPeriodError reports an unparseable period.
func NewPeriodError(input string) *InputError {
	return &InputError{Input: input, Field: "period", Message: "could not parse period", Examples: PeriodExamples}
}

// NewHoursError reports an unparseable duration.
func NewHoursError(input string) *InputError {
	return &InputError{Input: input, Field: "duration", Message: "could not parse duration", Examples: HoursExamples}
}

// NewAmountError reports a value that is not a non-negative number.
func NewAmountError(typ, input string) *InputError {
	return &InputError{Input: input, Field: typ + " value", Message: "must be a non-negative number", Examples: []string{"1", "2.5", "8"}}
}

// NewActivityTypeError reports an unknown activity kind.
func NewActivityTypeError(input string) *InputError {
	names := make([]string, len(model.ActivityTypes))
	for i, t := range model.ActivityTypes {
		names[i] = string(t)
	}
	return &InputError{Input: input, Field: "activity type", Message: "unknown activity type", Examples: names}
}
