package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// FieldError represents a validation error on one input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors is a list of field errors reported together.
type Errors []*FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// Result accumulates field errors
type Result struct {
	errors Errors
}

// Add records a failure on field.
func (r *Result) Add(field, format string, args ...interface{}) {
	r.errors = append(r.errors, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Check records a failure on field unless ok holds.
func (r *Result) Check(ok bool, field, format string, args ...interface{}) {
	if !ok {
		r.Add(field, format, args...)
	}
}

// Required fails when value is blank.
func (r *Result) Required(field, value string) {
	r.Check(strings.TrimSpace(value) != "", field, "is required")
}

// Email fails when value is not a valid email address.
func (r *Result) Email(field, value string) {
	r.Check(IsEmail(value), field, "invalid email format %q", value)
}

// NonNegative fails when value is below zero.
func (r *Result) NonNegative(field string, value int64) {
	r.Check(value >= 0, field, "must be zero or positive, got %d", value)
}

// Errors returns the recorded field errors.
func (r *Result) Errors() Errors {
	return r.errors
}

// Err returns nil when no rule failed, otherwise a validation-kind error
// wrapping every field error.
func (r *Result) Err() error {
	if len(r.errors) == 0 {
		return nil
	}
	return apperr.Validation(r.errors)
}
