package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var _ EmbeddingStore = (*EmbeddingCache)(nil)

// EmbeddingCache keeps description embeddings in a local SQLite file,
// keyed by the derived URL key so vectors survive re-extraction runs that
// renumber row ids.
type EmbeddingCache struct {
	db *sql.DB
}

// OpenEmbeddingCache opens (or creates) the cache at dbPath.
func OpenEmbeddingCache(dbPath string) (*EmbeddingCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &EmbeddingCache{db: db}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *EmbeddingCache) init() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			key        TEXT PRIMARY KEY,
			vector     TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing embedding cache schema: %w", err)
	}
	return nil
}

// Get returns the cached vector for key, if any.
func (c *EmbeddingCache) Get(key string) ([]float64, bool, error) {
	var raw string
	err := c.db.QueryRow(`SELECT vector FROM embeddings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading embedding %s: %w", key, err)
	}
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false, fmt.Errorf("decoding embedding %s: %w", key, err)
	}
	return vec, true, nil
}

// PutMany upserts all vectors in one transaction.
func (c *EmbeddingCache) PutMany(vectors map[string][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO embeddings (key, vector, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, vec := range vectors {
		raw, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encoding embedding %s: %w", key, err)
		}
		if _, err := stmt.Exec(key, string(raw), now); err != nil {
			return fmt.Errorf("upserting embedding %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of cached vectors.
func (c *EmbeddingCache) Count() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}

func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}
