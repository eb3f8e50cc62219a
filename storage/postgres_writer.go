package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"catalog-linker/models"
	"catalog-linker/utils"
)

const searchMainTable = "search_main"

var _ IndexPublisher = (*PostgresWriter)(nil)

// PostgresWriter publishes the unified index and both source tables to
// PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waiting for it with
// retry, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	err = retry.Do(ctx, "postgres ping", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &PostgresWriter{db: db}, nil
}

func sourceTableName(schema models.SourceSchema) string {
	return "source_" + schema.Name
}

func sourceColumns(schema models.SourceSchema) []string {
	return []string{
		"id", "product_url", schema.PrimaryColumn, schema.SecondaryColumn,
		"rating", schema.PermalinkColumn, "product_listed_at",
	}
}

func (pw *PostgresWriter) migrate(ctx context.Context, tx *sql.Tx, set PublishSet) error {
	for _, src := range []SourceRows{set.SourceA, set.SourceB} {
		s := src.Schema
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id                INTEGER      PRIMARY KEY,
				product_url       TEXT         NOT NULL,
				%s                BIGINT       NOT NULL DEFAULT 0,
				%s                BIGINT       NOT NULL DEFAULT 0,
				rating            NUMERIC(4,2) NOT NULL DEFAULT 0,
				%s                TEXT         NOT NULL,
				product_listed_at TIMESTAMPTZ  NOT NULL
			)`,
			pq.QuoteIdentifier(sourceTableName(s)),
			pq.QuoteIdentifier(s.PrimaryColumn),
			pq.QuoteIdentifier(s.SecondaryColumn),
			pq.QuoteIdentifier(s.PermalinkColumn),
		))
		if err != nil {
			return fmt.Errorf("create %s: %w", sourceTableName(s), err)
		}
	}

	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id                            INTEGER  PRIMARY KEY,
			product_name                  TEXT     NOT NULL,
			product_description           TEXT     NOT NULL,
			product_url                   TEXT     UNIQUE NOT NULL,
			product_description_embedding FLOAT8[] NOT NULL,
			%s                            INTEGER  NULL,
			%s                            INTEGER  NULL
		);
		CREATE INDEX IF NOT EXISTS idx_search_main_a ON %s(%s);
		CREATE INDEX IF NOT EXISTS idx_search_main_b ON %s(%s);`,
		searchMainTable,
		pq.QuoteIdentifier(indexIDColumn(set.SourceA.Schema)),
		pq.QuoteIdentifier(indexIDColumn(set.SourceB.Schema)),
		searchMainTable, pq.QuoteIdentifier(indexIDColumn(set.SourceA.Schema)),
		searchMainTable, pq.QuoteIdentifier(indexIDColumn(set.SourceB.Schema)),
	))
	if err != nil {
		return fmt.Errorf("create %s: %w", searchMainTable, err)
	}
	return nil
}

func indexIDColumn(schema models.SourceSchema) string {
	return schema.Name + "_id"
}

// Publish replaces the contents of all three tables inside one transaction.
func (pw *PostgresWriter) Publish(ctx context.Context, set PublishSet) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if err := pw.migrate(ctx, tx, set); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}

	tables := []string{searchMainTable, sourceTableName(set.SourceA.Schema), sourceTableName(set.SourceB.Schema)}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(t)); err != nil {
			return fmt.Errorf("postgres: clear %s: %w", t, err)
		}
	}

	for _, src := range []SourceRows{set.SourceA, set.SourceB} {
		rows := make([][]any, 0, len(src.Listings))
		for _, l := range src.Listings {
			rows = append(rows, []any{
				l.SourceRowID, l.CanonicalURL, l.Counts.Primary, l.Counts.Secondary,
				l.Rating, l.NaturalKey, l.ListedAt,
			})
		}
		if err := insertBatches(ctx, tx, sourceTableName(src.Schema), sourceColumns(src.Schema), rows); err != nil {
			return err
		}
	}

	indexRows := make([][]any, 0, len(set.Index))
	for _, r := range set.Index {
		indexRows = append(indexRows, []any{
			r.ID, r.Name, r.Description, r.CanonicalURL,
			pq.Float64Array(r.Embedding), nullableInt(r.SourceAID), nullableInt(r.SourceBID),
		})
	}
	indexColumns := []string{
		"id", "product_name", "product_description", "product_url",
		"product_description_embedding",
		indexIDColumn(set.SourceA.Schema), indexIDColumn(set.SourceB.Schema),
	}
	if err := insertBatches(ctx, tx, searchMainTable, indexColumns, indexRows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatches(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertBatch(ctx, tx, table, columns, rows[i:end]); err != nil {
			return fmt.Errorf("postgres: insert into %s: %w", table, err)
		}
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, table string, columns []string, batch [][]any) error {
	width := len(columns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)

	for idx, row := range batch {
		placeholders := make([]string, width)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*width+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, row...)
	}

	quoted := make([]string, width)
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s`,
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
