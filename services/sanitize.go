package services

import (
	"regexp"
	"strings"
)

// tagRegexp matches an HTML-like tag, non-greedy.
var tagRegexp = regexp.MustCompile(`<[^>]*?>`)

// Sanitize prepares a free-text description for storage and embedding:
// newlines become spaces and HTML-like tags are removed.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")

	// Removing one tag can splice a new one together ("<<b>a>"), so strip
	// until nothing matches.
	for tagRegexp.MatchString(text) {
		text = tagRegexp.ReplaceAllString(text, "")
	}
	return text
}
