// Package validate holds the field checks shared by request DTOs. Every failure is an
// apperr validation error naming the offending field.
package validate

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"markers-api/internal/platform/apperr"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Required fails when value is blank.
func Required(field, value, message string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation(field, message)
	}
	return nil
}

// Length checks the rune count of value against [min, max].
func Length(field, value string, min, max int, message string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min || n > max {
		return apperr.Validation(field, message)
	}
	return nil
}

// RuneLength checks the rune count of value against [min, max] without trimming. Used for
// secrets, where surrounding spaces are part of the value.
func RuneLength(field, value string, min, max int, message string) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return apperr.Validation(field, message)
	}
	return nil
}

// ByteLength checks the byte length of value against [min, max].
func ByteLength(field, value string, min, max int, message string) error {
	if len(value) < min || len(value) > max {
		return apperr.Validation(field, message)
	}
	return nil
}

// Email checks value against a simple address pattern.
func Email(field, value string) error {
	if !emailPattern.MatchString(value) {
		return apperr.Validation(field, "Please provide a valid email")
	}
	return nil
}

// URI accepts absolute http(s) URLs.
func URI(field, value, message string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Validation(field, message)
	}
	return nil
}

// Range checks that value is a finite number within [min, max].
func Range(field string, value, min, max float64, message string) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < min || value > max {
		return apperr.Validation(field, message)
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
