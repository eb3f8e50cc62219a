package storage

import (
	"context"

	"catalog-linker/models"
)

// BatchReader lists and loads raw per-batch export files.
type BatchReader interface {
	ListBatches(dir string) ([]string, error)
	ReadBatch(source, path string, columns []string) ([]map[string]string, error)
}

// TableWriter stages output tables and replaces the previous outputs only
// when every table has been written.
type TableWriter interface {
	WriteSourceTable(path string, schema models.SourceSchema, listings []*models.CleanedListing) error
	WriteUnscraped(path string, schema models.SourceSchema, keys []string) error
	WriteMerged(path string, records []*models.MergedRecord) error
	WriteEmbedded(path string, records []*models.EmbeddedRecord) error
	Commit() error
	Close() error
}

// EmbeddingStore caches description embeddings by derived URL key.
type EmbeddingStore interface {
	Get(key string) ([]float64, bool, error)
	PutMany(vectors map[string][]float64) error
	Close() error
}

// IndexPublisher loads the finished index into a serving database.
type IndexPublisher interface {
	Publish(ctx context.Context, set PublishSet) error
	Close() error
}

// PublishSet is everything written to the serving database in one go.
type PublishSet struct {
	Index   []*models.EmbeddedRecord
	SourceA SourceRows
	SourceB SourceRows
}

// SourceRows pairs a cleaned source table with its schema.
type SourceRows struct {
	Schema   models.SourceSchema
	Listings []*models.CleanedListing
}
