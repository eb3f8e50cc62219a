package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"catalog-linker/models"
	"catalog-linker/storage"
	"catalog-linker/utils"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Load the prepared index and source tables into PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := storage.ReadEmbedded(cfg.OutPath(preparedFile))
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

		retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
		var pub storage.IndexPublisher
		pub, err = storage.NewPostgresWriter(cmd.Context(), cfg.DSN(), retry)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			return err
		}
		defer pub.Close()

		err = pub.Publish(cmd.Context(), storage.PublishSet{
			Index:   index,
			SourceA: storage.SourceRows{Schema: models.DirectorySchema, Listings: a},
			SourceB: storage.SourceRows{Schema: models.LaunchboardSchema, Listings: b},
		})
		if err != nil {
			logger.Error("PostgreSQL publish failed: %v", err)
			return err
		}

		logger.Info("Published %d index records, %d + %d source rows", len(index), len(a), len(b))
		return nil
	},
}
