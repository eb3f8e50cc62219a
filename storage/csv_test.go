package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"catalog-linker/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListBatchesSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.csv"), "x\n")
	writeFile(t, filepath.Join(dir, "a.csv"), "x\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x\n")
	if err := os.Mkdir(filepath.Join(dir, "c.csv"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := NewCSVBatchReader().ListBatches(dir)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.csv" || filepath.Base(files[1]) != "b.csv" {
		t.Errorf("ListBatches = %v; want [a.csv b.csv]", files)
	}
}

func TestReadBatchProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01.csv")
	writeFile(t, path, "\ufeffextra,name,url\nx,Tool,https://tool.ai\ny,\"Multi\nline\",https://other.io\n")

	rows, err := NewCSVBatchReader().ReadBatch("test", path, []string{"url", "name"})
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["name"] != "Tool" || rows[0]["url"] != "https://tool.ai" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if _, ok := rows[0]["extra"]; ok {
		t.Error("unrequested column was projected")
	}
	if rows[1]["name"] != "Multi\nline" {
		t.Errorf("quoted newline lost: %q", rows[1]["name"])
	}
}

func TestReadBatchMalformed(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.csv")
	writeFile(t, missing, "name\nTool\n")
	empty := filepath.Join(dir, "empty.csv")
	writeFile(t, empty, "")
	short := filepath.Join(dir, "short.csv")
	writeFile(t, short, "name,url\nTool,https://tool.ai\nCut short\n")

	r := NewCSVBatchReader()
	for _, path := range []string{missing, empty, short} {
		_, err := r.ReadBatch("test", path, []string{"name", "url"})
		if !errors.Is(err, models.ErrMalformedInput) {
			t.Errorf("ReadBatch(%s) = %v; want ErrMalformedInput", filepath.Base(path), err)
		}
	}
}

func TestCSVWriterCommitAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "search_main.csv")
	records := []*models.MergedRecord{
		{ID: 0, CanonicalURL: "tool.ai", Name: "Tool", Description: "Does, \"things\"", SourceAID: intPtr(3)},
		{ID: 1, CanonicalURL: "other.io", Name: "Other", Description: "B only", SourceBID: intPtr(0)},
	}

	w := NewCSVWriter()
	defer w.Close()
	if err := w.WriteMerged(path, records); err != nil {
		t.Fatalf("WriteMerged: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("destination must not exist before Commit")
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := ReadMerged(path)
	if err != nil {
		t.Fatalf("ReadMerged: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Description != records[0].Description || *got[0].SourceAID != 3 || got[0].SourceBID != nil {
		t.Errorf("record 0 = %+v", got[0])
	}
	if got[1].SourceAID != nil || *got[1].SourceBID != 0 {
		t.Errorf("record 1 = %+v", got[1])
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v; want 0644", info.Mode().Perm())
	}
}

func TestReadBatchLocatesShortRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01.csv")
	writeFile(t, path, "projectName,sourceUrl,postUrl,countSaves\nAlpha,https://alpha.ai,p/alpha\n")

	_, err := NewCSVBatchReader().ReadBatch("directory", path, []string{"postUrl", "countSaves"})
	var mie *models.MalformedInputError
	if !errors.As(err, &mie) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if mie.Row != 1 || mie.Field != "countSaves" {
		t.Errorf("error points at row %d field %q; want row 1 field countSaves", mie.Row, mie.Field)
	}
}

func TestCSVWriterCommitReplacesPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search_main.csv")
	writeFile(t, path, "previous run\n")

	w := NewCSVWriter()
	defer w.Close()
	if err := w.WriteMerged(path, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) == "previous run\n" {
		t.Error("previous output was not replaced")
	}
	if _, err := os.Stat(backupPath(path)); !os.IsNotExist(err) {
		t.Error("backup of the previous output left behind")
	}
}

func TestCSVWriterCommitIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name  string
		block func(t *testing.T, w *CSVWriter, second string)
	}{
		{
			name: "second destination cannot be moved aside",
			block: func(t *testing.T, w *CSVWriter, second string) {
				writeFile(t, second, "OLD MAIN\n")
				writeFile(t, filepath.Join(backupPath(second), "occupied"), "x")
			},
		},
		{
			name: "second staged file is gone",
			block: func(t *testing.T, w *CSVWriter, second string) {
				if err := os.Remove(w.staged[1].tmp); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			first := filepath.Join(dir, "directory_extract.csv")
			second := filepath.Join(dir, "search_main.csv")
			writeFile(t, first, "GOOD OLD\n")

			w := NewCSVWriter()
			defer w.Close()
			if err := w.WriteSourceTable(first, models.DirectorySchema, nil); err != nil {
				t.Fatal(err)
			}
			if err := w.WriteMerged(second, nil); err != nil {
				t.Fatal(err)
			}
			tt.block(t, w, second)

			if err := w.Commit(); err == nil {
				t.Fatal("expected Commit to fail")
			}

			b, err := os.ReadFile(first)
			if err != nil {
				t.Fatalf("first output missing after failed commit: %v", err)
			}
			if string(b) != "GOOD OLD\n" {
				t.Errorf("first output = %q; want the previous contents", b)
			}
			if _, err := os.Stat(backupPath(first)); !os.IsNotExist(err) {
				t.Error("backup of the first output left behind")
			}
		})
	}
}

func TestReadSourceTableRejectsCorruptCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory_extract.csv")
	writeFile(t, path, "id,product_name,product_description,product_url,raw_url,count_save,count_rating,rating,directory_url,product_listed_at\n"+
		"0,Alpha,desc,alpha.ai,https://alpha.ai,lots,4,4.5,p/alpha,2023-03-15T00:00:00Z\n")

	if _, err := ReadSourceTable(path, models.DirectorySchema); err == nil {
		t.Error("expected an error for a non-numeric count")
	}
}

func TestCSVWriterCloseKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search_main.csv")
	writeFile(t, path, "previous run\n")

	w := NewCSVWriter()
	if err := w.WriteMerged(path, nil); err != nil {
		t.Fatalf("WriteMerged: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "previous run\n" {
		t.Errorf("uncommitted write replaced the previous output: %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("staged files left behind: %d entries", len(entries))
	}
}

func TestCSVWriterEmptyTableHasHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	w := NewCSVWriter()
	defer w.Close()
	if err := w.WriteMerged(path, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadMerged(path)
	if err != nil {
		t.Fatalf("ReadMerged on an empty table: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestSourceTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory_extract.csv")
	listedAt := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	in := []*models.CleanedListing{{
		SourceRowID:  0,
		CanonicalURL: "alpha.ai",
		RawURL:       "https://www.alpha.ai/",
		NaturalKey:   "p/alpha",
		Name:         "Alpha",
		Description:  "Alpha does things",
		Counts:       models.Counts{Primary: 12, Secondary: 4},
		Rating:       4.5,
		ListedAt:     listedAt,
		IsValid:      true,
	}}

	w := NewCSVWriter()
	defer w.Close()
	if err := w.WriteSourceTable(path, models.DirectorySchema, in); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	out, err := ReadSourceTable(path, models.DirectorySchema)
	if err != nil {
		t.Fatalf("ReadSourceTable: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(out))
	}
	got := out[0]
	if got.CanonicalURL != "alpha.ai" || got.NaturalKey != "p/alpha" || got.Counts != in[0].Counts ||
		got.Rating != 4.5 || !got.ListedAt.Equal(listedAt) {
		t.Errorf("round trip = %+v", got)
	}

	if _, err := ReadSourceTable(path, models.LaunchboardSchema); err == nil {
		t.Error("reading with the wrong schema should fail")
	}
}

func TestReadEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.csv")
	writeFile(t, path, "id,embedding\n0,\"[0.1, 0.2]\"\n4,[1]\n")

	got, err := ReadEmbeddings(path)
	if err != nil {
		t.Fatalf("ReadEmbeddings: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 || got[4][0] != 1 {
		t.Errorf("ReadEmbeddings = %v", got)
	}

	writeFile(t, path, "id,embedding\n0,not-a-vector\n")
	if _, err := ReadEmbeddings(path); err == nil {
		t.Error("expected an error for a malformed vector")
	}
}

func intPtr(n int) *int { return &n }
