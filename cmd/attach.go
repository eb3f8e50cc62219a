package cmd

import (
	"github.com/spf13/cobra"

	"catalog-linker/services"
	"catalog-linker/storage"
)

var flagEmbeddings string

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach externally computed embeddings to the sample",
	Long: `Joins an embeddings file (columns id, embedding) onto the sampled index.
Records missing from the file are looked up in the local embedding cache;
records with no vector at all are dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := storage.ReadMerged(cfg.OutPath(sampleFile))
		if err != nil {
			return err
		}

		fresh := map[int][]float64{}
		if flagEmbeddings != "" {
			fresh, err = storage.ReadEmbeddings(flagEmbeddings)
			if err != nil {
				return err
			}
		}

		cache, err := storage.OpenEmbeddingCache(cfg.EmbeddingCachePath)
		if err != nil {
			return err
		}
		defer cache.Close()

		prepared, err := services.NewEmbeddingService(cache, logger).Attach(records, fresh)
		if err != nil {
			return err
		}

		w := storage.NewCSVWriter()
		defer w.Close()
		if err := w.WriteEmbedded(cfg.OutPath(preparedFile), prepared); err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}

		cached, err := cache.Count()
		if err != nil {
			return err
		}
		logger.Info("Prepared %d records → %s (cache holds %d vectors)", len(prepared), cfg.OutPath(preparedFile), cached)
		return nil
	},
}

func init() {
	attachCmd.Flags().StringVar(&flagEmbeddings, "embeddings", "", "CSV of id,embedding produced by the embedder")
}
