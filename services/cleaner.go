package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"catalog-linker/models"
	"catalog-linker/utils"
)

var (
	// countRegexp captures the first numeric value of a count field
	countRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// ratingRegexp captures a numeric rating in the 0.0–5.0 range
	ratingRegexp = regexp.MustCompile(`\b([0-5](?:\.\d{1,2})?)\b`)
)

// DateFixup rewrites a raw listing-date string before it is parsed.
type DateFixup func(string) string

// Cleaner turns joined, natural-key-deduplicated RawListings into a cleaned
// source table: dates parsed, URLs canonicalized and filtered, duplicates by
// canonical URL removed, descriptions sanitized and rows numbered by date.
type Cleaner struct {
	logger *utils.Logger
	filter *URLFilter
}

// NewCleaner creates a Cleaner with the given logger and URL filter.
func NewCleaner(logger *utils.Logger, filter *URLFilter) *Cleaner {
	return &Cleaner{logger: logger, filter: filter}
}

// Clean processes raw listings of one source. A date that cannot be parsed
// after fixup aborts the whole run with a MalformedInputError.
func (c *Cleaner) Clean(source string, raw []*models.RawListing, fixDate DateFixup) ([]*models.CleanedListing, models.ExtractStats, error) {
	var stats models.ExtractStats
	valid := make([]*models.CleanedListing, 0, len(raw))

	for _, r := range raw {
		text := r.ListedAtText
		if fixDate != nil {
			text = fixDate(text)
		}
		listedAt, err := ParseListedAt(text)
		if err != nil {
			return nil, stats, &models.MalformedInputError{
				Source: source,
				File:   r.BatchFile,
				Row:    r.BatchRow,
				Field:  "listed_at",
				Value:  r.ListedAtText,
				Err:    err,
			}
		}

		rawURL := strings.TrimSpace(r.RawURL)
		canonical := ""
		if rawURL != "" {
			canonical = Canonicalize(rawURL)
		}
		if why := c.filter.Check(canonical); why != Accepted {
			stats.RejectedURLs++
			c.logger.Debug("[cleaner] %s: rejected URL %q (%s)", source, rawURL, why)
			continue
		}

		valid = append(valid, &models.CleanedListing{
			CanonicalURL: canonical,
			RawURL:       rawURL,
			NaturalKey:   r.NaturalKey,
			Name:         normaliseText(r.Name),
			Description:  r.Description,
			Counts: models.Counts{
				Primary:   parseCount(r.PrimaryCount),
				Secondary: parseCount(r.SecondaryCount),
			},
			Rating:   parseRating(r.Rating),
			ListedAt: listedAt,
			IsValid:  true,
		})
	}

	result, dups := keepLastBy(valid, func(l *models.CleanedListing) string { return l.CanonicalURL })
	stats.CanonicalURLDups = dups
	for _, l := range result {
		l.Description = Sanitize(l.Description)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ListedAt.Before(result[j].ListedAt)
	})
	for i, l := range result {
		l.SourceRowID = i
	}
	stats.Kept = len(result)

	c.logger.Info("[cleaner] %s: cleaned %d → %d listings (rejected URLs %d, duplicate URLs %d)",
		source, len(raw), len(result), stats.RejectedURLs, stats.CanonicalURLDups)
	return result, stats, nil
}

// keepLastBy drops every item whose key appears again later, so the last
// occurrence survives at its own position. It returns the kept items and
// the number dropped.
func keepLastBy[T any](items []T, key func(T) string) ([]T, int) {
	last := make(map[string]int, len(items))
	for i, it := range items {
		last[key(it)] = i
	}
	out := make([]T, 0, len(last))
	for i, it := range items {
		if last[key(it)] == i {
			out = append(out, it)
		}
	}
	return out, len(items) - len(out)
}

// parseCount extracts a non-negative integer count, 0 when absent.
// Exports sometimes carry floats ("12.0") or thousands separators.
func parseCount(raw string) int64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	match := countRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return int64(val)
}

// parseRating extracts a 0.0–5.0 numeric rating from a raw string.
func parseRating(raw string) float64 {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	if val < 0 || val > 5 {
		return 0
	}
	return val
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
