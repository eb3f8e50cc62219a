package services

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"catalog-linker/models"
	"catalog-linker/utils"
)

// MergePolicy decides whose name and description a record carries when a
// canonical URL is present in both sources.
type MergePolicy int

const (
	PreferA MergePolicy = iota
	PreferB
	PreferLonger
)

func (p MergePolicy) String() string {
	switch p {
	case PreferB:
		return "prefer_b"
	case PreferLonger:
		return "prefer_longer"
	default:
		return "prefer_a"
	}
}

// ParseMergePolicy maps a config value onto a MergePolicy.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "prefer_a", "":
		return PreferA, nil
	case "prefer_b":
		return PreferB, nil
	case "prefer_longer":
		return PreferLonger, nil
	}
	return PreferA, fmt.Errorf("unknown merge policy %q", s)
}

// MergeOrder decides the order in which merged ids are assigned.
type MergeOrder int

const (
	// OrderInput keeps join order: source A rows first, then B-only rows.
	OrderInput MergeOrder = iota
	// OrderCanonicalURL sorts records by canonical URL.
	OrderCanonicalURL
)

// ParseMergeOrder maps a config value onto a MergeOrder.
func ParseMergeOrder(s string) (MergeOrder, error) {
	switch s {
	case "input", "":
		return OrderInput, nil
	case "url":
		return OrderCanonicalURL, nil
	}
	return OrderInput, fmt.Errorf("unknown merge order %q", s)
}

// MergeEngine links two cleaned source tables into the unified index.
type MergeEngine struct {
	policy MergePolicy
	order  MergeOrder
	logger *utils.Logger
}

// NewMergeEngine creates a MergeEngine.
func NewMergeEngine(policy MergePolicy, order MergeOrder, logger *utils.Logger) *MergeEngine {
	return &MergeEngine{policy: policy, order: order, logger: logger}
}

// Merge full-outer-joins a and b on canonical URL. Records left without a
// description are dropped. When several records still share a canonical
// URL, the one with the longest description wins.
func (e *MergeEngine) Merge(a, b []*models.CleanedListing) ([]*models.MergedRecord, models.MergeStats) {
	stats := models.MergeStats{InputA: len(a), InputB: len(b)}

	bByURL := make(map[string]*models.CleanedListing, len(b))
	for _, l := range b {
		if l.CanonicalURL == "" {
			continue
		}
		bByURL[l.CanonicalURL] = l
	}

	groups := make(map[string][]*models.MergedRecord)
	var keys []string
	add := func(rec *models.MergedRecord) {
		if rec.Description == "" {
			stats.EmptyDescription++
			return
		}
		if _, seen := groups[rec.CanonicalURL]; !seen {
			keys = append(keys, rec.CanonicalURL)
		}
		groups[rec.CanonicalURL] = append(groups[rec.CanonicalURL], rec)
	}

	paired := make(map[*models.CleanedListing]bool)
	for _, la := range a {
		if la.CanonicalURL == "" {
			stats.EmptyURL++
			continue
		}
		lb := bByURL[la.CanonicalURL]
		if lb != nil {
			paired[lb] = true
			stats.Both++
		} else {
			stats.OnlyA++
		}
		add(e.resolve(la, lb))
	}
	for _, lb := range b {
		if lb.CanonicalURL == "" {
			stats.EmptyURL++
			continue
		}
		if paired[lb] {
			continue
		}
		stats.OnlyB++
		add(e.resolve(nil, lb))
	}

	out := make([]*models.MergedRecord, 0, len(keys))
	for _, key := range keys {
		cands := groups[key]
		if len(cands) > 1 {
			stats.Collisions++
			e.logger.Warn("[merge] %d records collide on %q, keeping the longest description", len(cands), key)
		}
		out = append(out, pickLongest(cands))
	}

	if e.order == OrderCanonicalURL {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CanonicalURL < out[j].CanonicalURL })
	}
	for i, rec := range out {
		rec.ID = i
	}
	stats.Output = len(out)

	if len(out) == 0 {
		e.logger.Warn("[merge] no records survived linkage")
	}
	e.logger.Info("[merge] %s: %d in both, %d only A, %d only B, %d without description, %d collisions → %d records",
		e.policy, stats.Both, stats.OnlyA, stats.OnlyB, stats.EmptyDescription, stats.Collisions, stats.Output)
	return out, stats
}

// resolve builds the joined record for one canonical URL. Either side may
// be nil. A side only counts as present for the descriptive fields when its
// description is non-empty.
func (e *MergeEngine) resolve(a, b *models.CleanedListing) *models.MergedRecord {
	rec := &models.MergedRecord{}
	if a != nil {
		id := a.SourceRowID
		rec.SourceAID = &id
		rec.CanonicalURL = a.CanonicalURL
	}
	if b != nil {
		id := b.SourceRowID
		rec.SourceBID = &id
		rec.CanonicalURL = b.CanonicalURL
	}

	chosen, other := e.rank(a, b)
	if chosen == nil || chosen.Description == "" {
		chosen, other = other, chosen
	}
	if chosen != nil {
		rec.Name = chosen.Name
		rec.Description = chosen.Description
	}
	if rec.Name == "" && other != nil {
		rec.Name = other.Name
	}
	rec.DescriptionLength = utf8.RuneCountInString(rec.Description)
	return rec
}

// rank orders the two sides by the merge policy, preferred side first.
func (e *MergeEngine) rank(a, b *models.CleanedListing) (*models.CleanedListing, *models.CleanedListing) {
	switch e.policy {
	case PreferB:
		return b, a
	case PreferLonger:
		if b != nil && (a == nil || utf8.RuneCountInString(b.Description) > utf8.RuneCountInString(a.Description)) {
			return b, a
		}
		return a, b
	default:
		return a, b
	}
}

// pickLongest keeps the last record after a stable ascending sort by
// description length. Source ids missing on the winner are taken from the
// longest other candidate that has them.
func pickLongest(cands []*models.MergedRecord) *models.MergedRecord {
	if len(cands) == 1 {
		return cands[0]
	}
	sorted := append([]*models.MergedRecord(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DescriptionLength < sorted[j].DescriptionLength
	})
	winner := sorted[len(sorted)-1]
	for i := len(sorted) - 2; i >= 0; i-- {
		if winner.SourceAID == nil && sorted[i].SourceAID != nil {
			winner.SourceAID = sorted[i].SourceAID
		}
		if winner.SourceBID == nil && sorted[i].SourceBID != nil {
			winner.SourceBID = sorted[i].SourceBID
		}
	}
	return winner
}
