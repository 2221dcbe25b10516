// Package sanitize strips markup from user-supplied free text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes every HTML element from s, unescapes the entities the policy
// emits and trims surrounding whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Optional sanitises s and returns nil when the result is empty.
func Optional(s string) *string {
	clean := Text(s)
	if clean == "" {
		return nil
	}
	return &clean
}
