package cmd

import (
	"catalog-linker/models"
	"catalog-linker/storage"
)

const (
	mergedFile   = "search_main.csv"
	sampleFile   = "search_main_sample.csv"
	preparedFile = "search_main_prepared.csv"
)

func sourceTablePath(schema models.SourceSchema) string {
	return cfg.OutPath(schema.Name + "_extract.csv")
}

func unscrapedPath(schema models.SourceSchema) string {
	return cfg.OutPath(schema.Name + "_unscraped.csv")
}

// stageExtracts stages both cleaned source tables and their unscraped
// reports on w.
func stageExtracts(w storage.TableWriter, tables ...*models.SourceTable) error {
	for _, t := range tables {
		schema := schemaFor(t.Source)
		if err := w.WriteSourceTable(sourceTablePath(schema), schema, t.Listings); err != nil {
			return err
		}
		if err := w.WriteUnscraped(unscrapedPath(schema), schema, t.Unscraped); err != nil {
			return err
		}
		if len(t.Listings) == 0 {
			logger.Warn("[output] %s: no listings survived extraction, writing empty table", t.Source)
		}
	}
	return nil
}

func schemaFor(source string) models.SourceSchema {
	if source == models.LaunchboardSchema.Name {
		return models.LaunchboardSchema
	}
	return models.DirectorySchema
}
