package services

import (
	"errors"
	"testing"

	"catalog-linker/config"
	"catalog-linker/models"
	"catalog-linker/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func newTestCleaner() *Cleaner {
	return NewCleaner(newTestLogger(), NewURLFilter(config.ValidityRules{
		Substrings: []string{"producthunt.com"},
	}))
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"12", 12},
		{"12.0", 12},
		{"1,234", 1234},
		{" 7 saves", 7},
		{"", 0},
		{"n/a", 0},
	}

	for _, tt := range tests {
		got := parseCount(tt.raw)
		if got != tt.want {
			t.Errorf("parseCount(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"4.85", 4.85},
		{"5.0", 5.0},
		{"3.5 (120 reviews)", 3.5},
		{"", 0},
		{"New", 0},
		{"6.0", 0},
	}

	for _, tt := range tests {
		got := parseRating(tt.raw)
		if got != tt.want {
			t.Errorf("parseRating(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestKeepLastBy(t *testing.T) {
	items := []string{"a1", "b1", "a2", "c1", "b2"}
	got, dropped := keepLastBy(items, func(s string) string { return s[:1] })

	want := []string{"a2", "c1", "b2"}
	if dropped != 2 {
		t.Errorf("dropped = %d; want 2", dropped)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestCleanerDropsInvalidURLs(t *testing.T) {
	c := newTestCleaner()
	raw := []*models.RawListing{
		{NaturalKey: "k1", Name: "No URL", RawURL: "", ListedAtText: "2023-01-01"},
		{NaturalKey: "k2", Name: "Self link", RawURL: "https://www.producthunt.com/posts/x", ListedAtText: "2023-01-02"},
		{NaturalKey: "k3", Name: "Has URL", RawURL: "https://tool.ai/", ListedAtText: "2023-01-03"},
	}

	cleaned, stats, err := c.Clean("test", raw, nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 listing after filtering, got %d", len(cleaned))
	}
	if cleaned[0].CanonicalURL != "tool.ai" || cleaned[0].RawURL != "https://tool.ai/" {
		t.Errorf("unexpected URLs: canonical %q raw %q", cleaned[0].CanonicalURL, cleaned[0].RawURL)
	}
	if stats.RejectedURLs != 2 {
		t.Errorf("RejectedURLs = %d; want 2", stats.RejectedURLs)
	}
}

func TestCleanerDeduplicatesCanonicalURL(t *testing.T) {
	c := newTestCleaner()
	raw := []*models.RawListing{
		{NaturalKey: "old", Name: "A", RawURL: "https://tool.ai/?ref=1", ListedAtText: "2023-01-01"},
		{NaturalKey: "new", Name: "B", RawURL: "https://www.Tool.ai/", ListedAtText: "2023-01-02"},
	}

	cleaned, stats, err := c.Clean("test", raw, nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 listing after deduplication, got %d", len(cleaned))
	}
	if cleaned[0].NaturalKey != "new" {
		t.Errorf("kept %q; want the later row", cleaned[0].NaturalKey)
	}
	if stats.CanonicalURLDups != 1 {
		t.Errorf("CanonicalURLDups = %d; want 1", stats.CanonicalURLDups)
	}
}

func TestCleanerOrdersByListedAt(t *testing.T) {
	c := newTestCleaner()
	raw := []*models.RawListing{
		{NaturalKey: "late", RawURL: "https://late.io", ListedAtText: "2023-03-01", Description: "line\n<b>bold</b>"},
		{NaturalKey: "early", RawURL: "https://early.io", ListedAtText: "2022-12-31"},
		{NaturalKey: "mid", RawURL: "https://mid.io", ListedAtText: "2023-01-15"},
	}

	cleaned, _, err := c.Clean("test", raw, nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	order := []string{"early", "mid", "late"}
	for i, key := range order {
		if cleaned[i].NaturalKey != key || cleaned[i].SourceRowID != i {
			t.Errorf("position %d = (%q, id %d); want (%q, id %d)",
				i, cleaned[i].NaturalKey, cleaned[i].SourceRowID, key, i)
		}
	}
	if got := cleaned[2].Description; got != "line bold" {
		t.Errorf("description not sanitized: %q", got)
	}
}

func TestCleanerAppliesDateFixup(t *testing.T) {
	c := newTestCleaner()
	raw := []*models.RawListing{
		{NaturalKey: "k", RawURL: "https://tool.ai", ListedAtText: "2023 March 05th"},
	}

	cleaned, _, err := c.Clean("test", raw, FixLaunchDate)
	if err != nil {
		t.Fatalf("Clean with fixup: %v", err)
	}
	if got := cleaned[0].ListedAt.Format("2006-01-02"); got != "2023-03-05" {
		t.Errorf("ListedAt = %s; want 2023-03-05", got)
	}
}

func TestCleanerMalformedDateIsFatal(t *testing.T) {
	c := newTestCleaner()
	raw := []*models.RawListing{
		{NaturalKey: "ok", RawURL: "https://tool.ai", ListedAtText: "2023-01-01"},
		{NaturalKey: "bad", RawURL: "https://other.ai", ListedAtText: "someday", BatchFile: "02.csv", BatchRow: 4},
	}

	_, _, err := c.Clean("test", raw, nil)
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	var mie *models.MalformedInputError
	if !errors.As(err, &mie) || mie.File != "02.csv" || mie.Row != 4 {
		t.Errorf("error does not locate the row: %v", err)
	}
}
