package cmd

import (
	"github.com/spf13/cobra"

	"catalog-linker/models"
	"catalog-linker/services"
	"catalog-linker/storage"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Link previously extracted source tables into the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := services.ParseMergePolicy(cfg.MergePolicy)
		if err != nil {
			return err
		}
		order, err := services.ParseMergeOrder(cfg.MergeOrder)
		if err != nil {
			return err
		}

		a, err := storage.ReadSourceTable(sourceTablePath(models.DirectorySchema), models.DirectorySchema)
		if err != nil {
			return err
		}
		b, err := storage.ReadSourceTable(sourceTablePath(models.LaunchboardSchema), models.LaunchboardSchema)
		if err != nil {
			return err
		}

		merged, _ := services.NewMergeEngine(policy, order, logger).Merge(a, b)

		w := storage.NewCSVWriter()
		defer w.Close()
		if err := w.WriteMerged(cfg.OutPath(mergedFile), merged); err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}

		logger.Info("Search index written to %s (%d records)", cfg.OutPath(mergedFile), len(merged))
		return nil
	},
}
