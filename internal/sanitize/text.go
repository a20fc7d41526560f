// Package sanitize strips unsafe markup from user supplied text.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy keeps basic formatting and drops scripts, frames and event handlers.
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML and surrounding whitespace.
// Use for titles, names, locations and feedback messages.
func Text(input string) string {
	return strings.TrimSpace(StrictPolicy.Sanitize(input))
}

// HTML sanitizes HTML content, allowing safe formatting tags.
// Use for event descriptions.
func HTML(input string) string {
	return strings.TrimSpace(UGCPolicy.Sanitize(input))
}

// TextPtr applies Text to a non-nil pointer and returns a new pointer.
func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	s := Text(*input)
	return &s
}
