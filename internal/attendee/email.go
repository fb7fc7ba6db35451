// Package attendee validates and merges attendee emails coming out of model
// responses. Validation is purely syntactic and mirrors what the calendar API
// accepts; names without an address are dropped, never resolved.
package attendee

import (
	"strings"
	"unicode/utf8"

	"smartcal/internal/jstext"
	"smartcal/internal/models"
)

var emailPattern = jstext.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s has exactly one @, a domain with at least two
// labels and a TLD of two or more characters, counted as runes.
func IsValidEmail(s string) bool {
	if s == "" || !emailPattern.MatchString(s) {
		return false
	}
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return false
	}
	labels := strings.Split(parts[1], ".")
	if len(labels) < 2 {
		return false
	}
	return utf8.RuneCountInString(labels[len(labels)-1]) >= 2
}

// EmailOf pulls a candidate address out of one attendee entry. Entries are a
// string, an object with an "email" field, or any other object whose first
// property is taken as the address. A plain map carries no key order, so only
// a single-key map has a first property. The result is trimmed but not
// validated.
func EmailOf(v any) string {
	switch a := v.(type) {
	case string:
		return jstext.TrimSpace(a)
	case models.Attendee:
		return jstext.TrimSpace(a.Email)
	case models.Object:
		if email, ok := a.Values["email"].(string); ok && email != "" {
			return jstext.TrimSpace(email)
		}
		key, ok := a.FirstKey()
		if !ok {
			return ""
		}
		s, _ := a.Values[key].(string)
		return jstext.TrimSpace(s)
	case map[string]any:
		if email, ok := a["email"].(string); ok && email != "" {
			return jstext.TrimSpace(email)
		}
		if len(a) != 1 {
			return ""
		}
		for _, v := range a {
			s, _ := v.(string)
			return jstext.TrimSpace(s)
		}
	}
	return ""
}

// MergeAndValidate concatenates both lists, keeps the entries with a valid
// address and drops case-insensitive duplicates. The first spelling wins and
// order of first occurrence is preserved.
func MergeAndValidate(a, b []any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	valid := make([]string, 0, len(a)+len(b))
	for _, entry := range append(append([]any{}, a...), b...) {
		email := EmailOf(entry)
		if !IsValidEmail(email) {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		valid = append(valid, email)
	}
	return valid
}

// Strings widens a string slice so it can be merged with decoded attendee lists.
func Strings(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}
