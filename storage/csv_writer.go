package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"catalog-linker/models"
)

const embeddingColumn = "product_description_embedding"

var mergedHeader = []string{
	"id", "product_name", "product_description", "product_url", "source_a_id", "source_b_id",
}

func sourceTableHeader(schema models.SourceSchema) []string {
	return []string{
		"id", "product_name", "product_description", "product_url", "raw_url",
		schema.PrimaryColumn, schema.SecondaryColumn, "rating",
		schema.PermalinkColumn, "product_listed_at",
	}
}

var _ TableWriter = (*CSVWriter)(nil)

type stagedFile struct {
	tmp  string
	dest string
}

// CSVWriter stages output tables in temporary files next to their
// destinations. Commit renames all of them into place; Close discards
// whatever was not committed, so a failed run leaves earlier outputs intact.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	staged []stagedFile
}

// NewCSVWriter creates an empty CSVWriter.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// WriteSourceTable stages a cleaned per-source table with an id index column.
func (c *CSVWriter) WriteSourceTable(path string, schema models.SourceSchema, listings []*models.CleanedListing) error {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			strconv.Itoa(l.SourceRowID),
			l.Name,
			l.Description,
			l.CanonicalURL,
			l.RawURL,
			strconv.FormatInt(l.Counts.Primary, 10),
			strconv.FormatInt(l.Counts.Secondary, 10),
			formatFloat(l.Rating),
			l.NaturalKey,
			l.ListedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.stage(path, sourceTableHeader(schema), rows)
}

// WriteUnscraped stages the single-column unscraped report.
func (c *CSVWriter) WriteUnscraped(path string, schema models.SourceSchema, keys []string) error {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k})
	}
	return c.stage(path, []string{schema.NaturalKeyColumn}, rows)
}

// WriteMerged stages the unified index. Absent source ids are empty cells.
func (c *CSVWriter) WriteMerged(path string, records []*models.MergedRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, mergedRow(r))
	}
	return c.stage(path, mergedHeader, rows)
}

// WriteEmbedded stages the unified index with an embedding column appended.
func (c *CSVWriter) WriteEmbedded(path string, records []*models.EmbeddedRecord) error {
	header := append(append([]string{}, mergedHeader...), embeddingColumn)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		vec, err := json.Marshal(r.Embedding)
		if err != nil {
			return fmt.Errorf("csv: encode embedding for id %d: %w", r.ID, err)
		}
		rows = append(rows, append(mergedRow(r.MergedRecord), string(vec)))
	}
	return c.stage(path, header, rows)
}

// Commit moves every staged file over its destination as one set. Existing
// destinations are first moved aside; if any step fails, the files already
// placed are removed and the previous outputs are restored.
func (c *CSVWriter) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	type backup struct{ dest, bak string }
	var backups []backup
	var placed []string
	rollback := func() {
		for _, dest := range placed {
			_ = os.Remove(dest)
		}
		for i := len(backups) - 1; i >= 0; i-- {
			_ = os.Rename(backups[i].bak, backups[i].dest)
		}
	}

	for _, f := range c.staged {
		_, err := os.Lstat(f.dest)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			rollback()
			return fmt.Errorf("csv: stat %q: %w", f.dest, err)
		}
		bak := backupPath(f.dest)
		if err := os.Rename(f.dest, bak); err != nil {
			rollback()
			return fmt.Errorf("csv: move aside %q: %w", f.dest, err)
		}
		backups = append(backups, backup{dest: f.dest, bak: bak})
	}

	for _, f := range c.staged {
		if err := os.Rename(f.tmp, f.dest); err != nil {
			rollback()
			return fmt.Errorf("csv: replace %q: %w", f.dest, err)
		}
		placed = append(placed, f.dest)
	}

	for _, b := range backups {
		_ = os.RemoveAll(b.bak)
	}
	c.staged = nil
	return nil
}

// backupPath is where a previous output waits while a new set is committed.
func backupPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".bak")
}

// Close removes any staged files that were not committed.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.staged {
		_ = os.Remove(f.tmp)
	}
	c.staged = nil
	return nil
}

func (c *CSVWriter) stage(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("csv: create temp file for %q: %w", path, err)
	}
	discard := func(err error) error {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return discard(fmt.Errorf("csv: write header: %w", err))
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return discard(fmt.Errorf("csv: write row: %w", err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return discard(fmt.Errorf("csv: flush %q: %w", path, err))
	}
	if err := f.Chmod(0644); err != nil {
		return discard(fmt.Errorf("csv: chmod %q: %w", path, err))
	}
	if err := f.Sync(); err != nil {
		return discard(fmt.Errorf("csv: sync %q: %w", path, err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("csv: close %q: %w", path, err)
	}

	c.mu.Lock()
	c.staged = append(c.staged, stagedFile{tmp: f.Name(), dest: path})
	c.mu.Unlock()
	return nil
}

func mergedRow(r *models.MergedRecord) []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Name,
		r.Description,
		r.CanonicalURL,
		formatNullableInt(r.SourceAID),
		formatNullableInt(r.SourceBID),
	}
}

func formatNullableInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
