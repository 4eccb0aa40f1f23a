// Package validation collects field-level input errors.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when a request fails shape validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a failure for field.
func (e *Error) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Has reports whether field already has an error.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when nothing was recorded.
func (e *Error) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Field builds a single-field error.
func Field(field, msg string) error {
	return &Error{Fields: []FieldError{{Field: field, Message: msg}}}
}

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,16}$`)

// IsLogin reports whether s is a well-formed login.
func IsLogin(s string) bool {
	return loginPattern.MatchString(s)
}

// IsPersonName accepts letters of any script with single inner
// separators: hyphen, apostrophe or space.
func IsPersonName(s string) bool {
	if s == "" || len([]rune(s)) > 64 {
		return false
	}
	prevSep := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			prevSep = false
		case r == '-' || r == '\'' || r == ' ':
			if prevSep {
				return false
			}
			prevSep = true
		default:
			return false
		}
	}
	return !prevSep
}

// PasswordProblems lists the complexity rules s violates.
func PasswordProblems(s string) []string {
	var out []string
	if len([]rune(s)) < 8 {
		out = append(out, "must be at least 8 characters")
	}
	var digit, upper, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !digit {
		out = append(out, "must contain a digit")
	}
	if !upper {
		out = append(out, "must contain an uppercase letter")
	}
	if !symbol {
		out = append(out, "must contain a symbol")
	}
	return out
}
