// Package validate checks user input and records before they are cached or
// replicated. Struct rules live in `validate:` tags and are enforced with
// go-playground/validator.
package validate

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/manav03panchal/personalvault/internal/errors"
)

const (
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
	// MaxNameLength bounds habit names and note titles entered on the CLI.
	MaxNameLength = 200
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Struct validates v against its tags and converts the first failure into a
// UserError naming the field.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	return errors.NewUserErrorWithField(
		fe.Field(),
		fmt.Sprint(fe.Value()),
		describe(fe),
		fmt.Sprintf("Check the value of %s.", fe.Field()),
	)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s long", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "url":
		return fe.Field() + " must be a valid URL"
	case "datetime":
		return fmt.Sprintf("%s must use the %s format", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
	}
}

// URL validates a bookmark or service URL: http(s) with a host.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewUserError("URL cannot be empty", "Provide a valid URL")
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewUserError("URL too long", "URLs must be 2048 characters or fewer")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewUserErrorWithField("url", rawURL, "Invalid URL format",
			"Provide a valid URL starting with https://")
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewUserErrorWithField("url", rawURL, "Invalid URL scheme",
			"URLs must use https:// or http://")
	}
	if parsed.Hostname() == "" {
		return errors.NewUserErrorWithField("url", rawURL, "Invalid URL: missing hostname",
			"Provide a valid URL like https://youtu.be/<id>")
	}
	return nil
}

// Name validates a short, required label such as a habit name.
func Name(field, value string) error {
	if err := NonEmpty(field, value); err != nil {
		return err
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return errors.NewUserErrorWithField(field, value, field+" too long",
			fmt.Sprintf("Keep %s under %d characters", field, MaxNameLength))
	}
	return nil
}

// NonEmpty validates that a string is not blank.
func NonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewUserError(field+" cannot be empty", "Provide a value for "+field)
	}
	return nil
}

// InRange validates that an integer is within [lo, hi].
func InRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return errors.NewUserErrorWithField(field, fmt.Sprint(value), field+" out of range",
			fmt.Sprintf("Must be between %d and %d", lo, hi))
	}
	return nil
}
