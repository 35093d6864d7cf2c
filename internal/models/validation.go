package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
)

var (
	validate = validator.New()

	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// fieldErrors accumulates every invalid field before reporting.
type fieldErrors []apperr.FieldError

func (f *fieldErrors) add(field, format string, args ...any) {
	*f = append(*f, apperr.Field(field, fmt.Sprintf(format, args...)))
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation(f...)
}

func (f *fieldErrors) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n < min && min == 1:
		f.add(field, "is required")
	case n < min:
		f.add(field, "must be at least %d characters", min)
	case n > max:
		f.add(field, "must be at most %d characters", max)
	}
}

func (f *fieldErrors) optionalLength(field string, value *string, max int) {
	if value != nil && utf8.RuneCountInString(*value) > max {
		f.add(field, "must be at most %d characters", max)
	}
}

func (f *fieldErrors) email(field, value string) {
	if err := validate.Var(strings.TrimSpace(value), "required,email"); err != nil {
		f.add(field, "must be a valid email address")
	}
}

func (f *fieldErrors) intRange(field string, value *int, min, max int) {
	if value != nil && (*value < min || *value > max) {
		f.add(field, "must be between %d and %d", min, max)
	}
}

func (f *fieldErrors) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	f.add(field, "must be one of %s", strings.Join(allowed, ", "))
}

func (f *fieldErrors) slug(field, value string) {
	switch {
	case len(value) < 2 || len(value) > 48:
		f.add(field, "must be between 2 and 48 characters")
	case !slugPattern.MatchString(value):
		f.add(field, "may contain only lowercase letters, digits and hyphens")
	case IsUUID(value):
		f.add(field, "must not look like an id")
	}
}

// IsUUID reports whether s is a canonical UUID string.
func IsUUID(s string) bool {
	return validate.Var(s, "uuid") == nil
}
