package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"catalog-linker/services"
	"catalog-linker/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract both catalogs and build the search index in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("=== Catalog linkage starting ===")
		logger.Info("Config: directory=%s | launchboard=%s | out=%s | policy=%s",
			cfg.RawDirs.A, cfg.RawDirs.B, cfg.OutDir, cfg.MergePolicy)

		pipeline, err := services.NewPipeline(cfg, storage.NewCSVBatchReader(), logger)
		if err != nil {
			return err
		}

		result, err := pipeline.Run(cmd.Context())
		if err != nil {
			logger.Error("Run failed, previous outputs left untouched: %v", err)
			return err
		}

		w := storage.NewCSVWriter()
		defer w.Close()
		if err := stageExtracts(w, result.A, result.B); err != nil {
			return err
		}
		if err := w.WriteMerged(cfg.OutPath(mergedFile), result.Merged); err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}

		pipeline.Reports.Print(os.Stdout, result.Report)
		logger.Info("Done. Search index → %s", cfg.OutPath(mergedFile))
		return nil
	},
}
