package services

import (
	"fmt"
	"math/rand"

	"catalog-linker/models"
	"catalog-linker/storage"
	"catalog-linker/utils"
)

// Sample draws n records uniformly without replacement. n is clamped to
// the table size; the same seed always yields the same sample.
func Sample(records []*models.MergedRecord, n int, seed int64) []*models.MergedRecord {
	if n > len(records) {
		n = len(records)
	}
	if n <= 0 {
		return []*models.MergedRecord{}
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(records))

	out := make([]*models.MergedRecord, 0, n)
	for _, i := range perm[:n] {
		out = append(out, records[i])
	}
	return out
}

// AttachEmbeddings left-joins vectors onto records by id. Records without a
// vector are dropped.
func AttachEmbeddings(records []*models.MergedRecord, embeddings map[int][]float64) []*models.EmbeddedRecord {
	out := make([]*models.EmbeddedRecord, 0, len(records))
	for _, r := range records {
		vec, ok := embeddings[r.ID]
		if !ok || len(vec) == 0 {
			continue
		}
		out = append(out, &models.EmbeddedRecord{MergedRecord: r, Embedding: vec})
	}
	return out
}

// EmbeddingService attaches externally computed embeddings to a sample,
// backed by a cache keyed on the derived URL key.
type EmbeddingService struct {
	store  storage.EmbeddingStore
	logger *utils.Logger
}

// NewEmbeddingService creates an EmbeddingService over store.
func NewEmbeddingService(store storage.EmbeddingStore, logger *utils.Logger) *EmbeddingService {
	return &EmbeddingService{store: store, logger: logger}
}

// Attach joins fresh vectors (by record id) onto records, falls back to the
// cache for records the fresh set lacks, and stores every fresh vector in
// the cache.
func (s *EmbeddingService) Attach(records []*models.MergedRecord, fresh map[int][]float64) ([]*models.EmbeddedRecord, error) {
	byID := make(map[int][]float64, len(records))
	toStore := make(map[string][]float64)
	cached := 0

	for _, r := range records {
		key := DerivedKey(r.CanonicalURL)
		if vec, ok := fresh[r.ID]; ok && len(vec) > 0 {
			byID[r.ID] = vec
			toStore[key] = vec
			continue
		}
		vec, ok, err := s.store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("embeddings: %w", err)
		}
		if ok {
			byID[r.ID] = vec
			cached++
		}
	}

	if err := s.store.PutMany(toStore); err != nil {
		return nil, fmt.Errorf("embeddings: store: %w", err)
	}

	out := AttachEmbeddings(records, byID)
	if dropped := len(records) - len(out); dropped > 0 {
		s.logger.Warn("[embeddings] %d records have no embedding and were dropped", dropped)
	}
	s.logger.Info("[embeddings] attached %d vectors (%d fresh, %d from cache)", len(out), len(toStore), cached)
	return out, nil
}
