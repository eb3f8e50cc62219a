package cmd

import (
	"github.com/spf13/cobra"

	"catalog-linker/services"
	"catalog-linker/storage"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Clean both raw catalogs into per-source tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := services.NewPipeline(cfg, storage.NewCSVBatchReader(), logger)
		if err != nil {
			return err
		}

		a, b, err := pipeline.ExtractAll(cmd.Context())
		if err != nil {
			logger.Error("Extraction failed: %v", err)
			return err
		}

		w := storage.NewCSVWriter()
		defer w.Close()
		if err := stageExtracts(w, a, b); err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}

		logger.Info("Extracts written to %s (%s: %d, %s: %d)",
			cfg.OutDir, a.Source, len(a.Listings), b.Source, len(b.Listings))
		return nil
	},
}
