// Package validate holds the result type and length checks shared by the
// feature packages.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Result is the outcome of validating user input.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// OK is a passing result.
func OK() Result { return Result{Valid: true} }

// Fail is a failing result with msg.
func Fail(msg string) Result { return Result{Error: msg} }

// Failf is a failing result with a formatted message.
func Failf(format string, args ...any) Result { return Fail(fmt.Sprintf(format, args...)) }

// Len counts characters the way the browser does for length limits.
func Len(s string) int { return utf8.RuneCountInString(s) }

// Text checks that s is non-blank and at most max characters. field names
// the input in messages, e.g. "Message".
func Text(s, field string, max int) Result {
	if strings.TrimSpace(s) == "" {
		return Failf("%s is required", field)
	}
	if max > 0 && Len(s) > max {
		return Failf("%s must be %d characters or fewer", field, max)
	}
	return OK()
}

// Truncate cuts s to at most max characters.
func Truncate(s string, max int) string {
	if max <= 0 || Len(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// IntRange checks min <= n <= max.
func IntRange(n, min, max int, field string) Result {
	if n < min || n > max {
		return Failf("%s must be between %d and %d", field, min, max)
	}
	return OK()
}
