// Package htmlsanitize strips markup from user-supplied text before it is
// stored on a team document (join request messages, display names).
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding PlainText unwraps.
const maxPasses = 8

// PlainText removes all tags and returns trimmed, unescaped text.
//
// Sanitizing and entity decoding repeat until the value is stable, so markup
// sent entity-encoded (&lt;script&gt;) is stripped rather than decoded back
// into live tags. Input still changing after maxPasses is returned in
// bluemonday's escaped form.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	cur := s
	for i := 0; i < maxPasses; i++ {
		clean := strict.Sanitize(cur)
		next := html.UnescapeString(clean)
		if next == cur {
			return strings.TrimSpace(next)
		}
		cur = next
	}
	return strings.TrimSpace(strict.Sanitize(cur))
}

// Truncate limits s to max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
