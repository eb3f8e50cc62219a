package models

import "time"

// RawListing holds one unprocessed row from a per-batch export, already
// projected onto the canonical field names of its source. Every value is
// kept as the exported text; parsing happens in the cleaner.
type RawListing struct {
	Source         string
	NaturalKey     string
	Name           string
	Description    string
	RawURL         string
	PrimaryCount   string
	SecondaryCount string
	Rating         string
	ListedAtText   string
	BatchFile      string
	BatchRow       int
}

// Counts holds the two count-style popularity metrics of a listing.
// Their meaning is source specific (saves/ratings, followers/reviews).
type Counts struct {
	Primary   int64
	Secondary int64
}

// CleanedListing is one row of a cleaned per-source table.
// SourceRowID is the dense 0-based position after sorting by ListedAt.
type CleanedListing struct {
	SourceRowID  int
	CanonicalURL string
	RawURL       string
	NaturalKey   string
	Name         string
	Description  string
	Counts       Counts
	Rating       float64
	ListedAt     time.Time
	IsValid      bool
}

// SourceTable is the full output of one extraction run for one source.
type SourceTable struct {
	Source    string
	Listings  []*CleanedListing
	Unscraped []string
	Stats     ExtractStats
}

// ExtractStats counts what happened to rows during one extraction.
type ExtractStats struct {
	BatchFiles       int
	RawRows          int
	NaturalKeyDups   int
	Unscraped        int
	DetailOnly       int
	RejectedURLs     int
	CanonicalURLDups int
	Kept             int
}

// MergedRecord is one row of the unified search index.
// SourceAID and SourceBID are nil when the listing is absent from that source.
type MergedRecord struct {
	ID                int
	CanonicalURL      string
	Name              string
	Description       string
	DescriptionLength int
	SourceAID         *int
	SourceBID         *int
}

// MergeStats counts the outcome of one linkage run.
type MergeStats struct {
	InputA           int
	InputB           int
	EmptyURL         int
	Both             int
	OnlyA            int
	OnlyB            int
	EmptyDescription int
	Collisions       int
	Output           int
}

// EmbeddedRecord is a merged record with its description embedding attached.
type EmbeddedRecord struct {
	*MergedRecord
	Embedding []float64
}

// RunReport holds the counters of a complete extract + merge run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceSummary
	Merge      MergeStats
}

// SourceSummary pairs a source name with its extraction counters.
type SourceSummary struct {
	Source string
	Stats  ExtractStats
}
