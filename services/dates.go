package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FixLaunchDate repairs the directory catalog's malformed launch-date text.
// Strings longer than ten characters keep their first four characters (the
// year) and lose every '0' after them, e.g. "2023 March 05th" becomes
// "2023 March 5th". Shorter strings are returned unchanged.
//
// The rule only reflects the shapes observed in past exports. It corrupts
// days such as the 10th, 20th and 30th, so it must stay confined to the
// directory source.
func FixLaunchDate(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:4] + strings.ReplaceAll(s[4:], "0", "")
}

var listedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-1-2",
	"2006-1-2 15:4:5",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006 January 2",
	"2006 Jan 2",
	"2 January 2006",
}

// ParseListedAt parses a listing date into UTC using a fixed set of layouts.
func ParseListedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	candidates := []string{s}
	if stripped := stripOrdinal(s); stripped != s {
		candidates = append(candidates, stripped)
	}
	for _, c := range candidates {
		for _, layout := range listedAtLayouts {
			if t, err := time.ParseInLocation(layout, c, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// stripOrdinal drops an English ordinal suffix from the day ("5th" -> "5").
func stripOrdinal(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		word, comma := strings.CutSuffix(f, ",")
		for _, suf := range []string{"st", "nd", "rd", "th"} {
			head, ok := strings.CutSuffix(word, suf)
			if ok && head != "" && isDigits(head) {
				word = head
				break
			}
		}
		if comma {
			word += ","
		}
		fields[i] = word
	}
	return strings.Join(fields, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
