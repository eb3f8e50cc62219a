package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalog-linker/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVBatchReader reads raw exports from disk.
type CSVBatchReader struct{}

// NewCSVBatchReader creates a CSVBatchReader.
func NewCSVBatchReader() *CSVBatchReader { return &CSVBatchReader{} }

// ListBatches returns the *.csv regular files in dir in ascending name order.
func (r *CSVBatchReader) ListBatches(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("csv: list batches in %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadBatch loads one export and projects every row onto columns. A header
// missing any of the columns is malformed input.
func (r *CSVBatchReader) ReadBatch(source, path string, columns []string) ([]map[string]string, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, &models.MalformedInputError{Source: source, File: path, Err: err}
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	idx := make([]int, len(columns))
	for i, col := range columns {
		p, ok := pos[col]
		if !ok {
			return nil, &models.MalformedInputError{
				Source: source, File: path, Field: col, Err: errors.New("column missing from header"),
			}
		}
		idx[i] = p
	}

	rows := make([]map[string]string, 0, len(records))
	for n, rec := range records {
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if idx[i] >= len(rec) {
				return nil, &models.MalformedInputError{
					Source: source, File: path, Row: n + 1, Field: col,
					Err: errors.New("row has fewer fields than header"),
				}
			}
			row[col] = rec[idx[i]]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	b = bytes.TrimPrefix(b, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty file, header row expected")
	}
	if err != nil {
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// tableRows reads a file written by CSVWriter into header-keyed rows.
func tableRows(path string, required []string) ([]map[string]string, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	for _, col := range required {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("csv: %q has no %q column", path, col)
		}
	}
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := make(map[string]string, len(header))
		for h, i := range pos {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadSourceTable loads a cleaned source table written by WriteSourceTable.
func ReadSourceTable(path string, schema models.SourceSchema) ([]*models.CleanedListing, error) {
	rows, err := tableRows(path, sourceTableHeader(schema))
	if err != nil {
		return nil, err
	}
	out := make([]*models.CleanedListing, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row["id"])
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: bad id: %w", path, i+1, err)
		}
		primary, err := strconv.ParseInt(row[schema.PrimaryColumn], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: bad %s: %w", path, i+1, schema.PrimaryColumn, err)
		}
		secondary, err := strconv.ParseInt(row[schema.SecondaryColumn], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: bad %s: %w", path, i+1, schema.SecondaryColumn, err)
		}
		rating, err := strconv.ParseFloat(row["rating"], 64)
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: bad rating: %w", path, i+1, err)
		}
		listedAt, err := time.Parse(time.RFC3339, row["product_listed_at"])
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: bad product_listed_at: %w", path, i+1, err)
		}
		out = append(out, &models.CleanedListing{
			SourceRowID:  id,
			CanonicalURL: row["product_url"],
			RawURL:       row["raw_url"],
			NaturalKey:   row[schema.PermalinkColumn],
			Name:         row["product_name"],
			Description:  row["product_description"],
			Counts:       models.Counts{Primary: primary, Secondary: secondary},
			Rating:       rating,
			ListedAt:     listedAt.UTC(),
			IsValid:      true,
		})
	}
	return out, nil
}

// ReadMerged loads a unified index table written by WriteMerged.
func ReadMerged(path string) ([]*models.MergedRecord, error) {
	rows, err := tableRows(path, mergedHeader)
	if err != nil {
		return nil, err
	}
	out := make([]*models.MergedRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := mergedFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: %w", path, i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadEmbedded loads a prepared table written by WriteEmbedded.
func ReadEmbedded(path string) ([]*models.EmbeddedRecord, error) {
	rows, err := tableRows(path, append(append([]string{}, mergedHeader...), embeddingColumn))
	if err != nil {
		return nil, err
	}
	out := make([]*models.EmbeddedRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := mergedFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: %w", path, i+1, err)
		}
		vec, err := parseVector(row[embeddingColumn])
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: %w", path, i+1, err)
		}
		out = append(out, &models.EmbeddedRecord{MergedRecord: rec, Embedding: vec})
	}
	return out, nil
}

// ReadEmbeddings loads an externally produced embeddings file with columns
// id and embedding, the latter a bracketed list of floats.
func ReadEmbeddings(path string) (map[int][]float64, error) {
	rows, err := tableRows(path, []string{"id", "embedding"})
	if err != nil {
		return nil, err
	}
	out := make(map[int][]float64, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(strings.TrimSpace(row["id"]))
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: bad id: %w", path, i+1, err)
		}
		vec, err := parseVector(row["embedding"])
		if err != nil {
			return nil, fmt.Errorf("csv: %q row %d: %w", path, i+1, err)
		}
		out[id] = vec
	}
	return out, nil
}

func mergedFromRow(row map[string]string) (*models.MergedRecord, error) {
	id, err := strconv.Atoi(row["id"])
	if err != nil {
		return nil, fmt.Errorf("bad id: %w", err)
	}
	a, err := parseNullableInt(row["source_a_id"])
	if err != nil {
		return nil, fmt.Errorf("bad source_a_id: %w", err)
	}
	b, err := parseNullableInt(row["source_b_id"])
	if err != nil {
		return nil, fmt.Errorf("bad source_b_id: %w", err)
	}
	desc := row["product_description"]
	return &models.MergedRecord{
		ID:                id,
		CanonicalURL:      row["product_url"],
		Name:              row["product_name"],
		Description:       desc,
		DescriptionLength: len([]rune(desc)),
		SourceAID:         a,
		SourceBID:         b,
	}, nil
}

func parseNullableInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseVector(s string) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &vec); err != nil {
		return nil, fmt.Errorf("bad embedding: %w", err)
	}
	return vec, nil
}
