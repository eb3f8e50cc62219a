package cmd

import (
	"github.com/spf13/cobra"

	"catalog-linker/services"
	"catalog-linker/storage"
)

var (
	flagSampleSize int
	flagSampleSeed int64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw a seeded random sample of the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, seed := cfg.SampleSize, cfg.SampleSeed
		if cmd.Flags().Changed("size") {
			size = flagSampleSize
		}
		if cmd.Flags().Changed("seed") {
			seed = flagSampleSeed
		}

		records, err := storage.ReadMerged(cfg.OutPath(mergedFile))
		if err != nil {
			return err
		}
		sample := services.Sample(records, size, seed)

		w := storage.NewCSVWriter()
		defer w.Close()
		if err := w.WriteMerged(cfg.OutPath(sampleFile), sample); err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}

		logger.Info("Sampled %d of %d records (seed %d) → %s", len(sample), len(records), seed, cfg.OutPath(sampleFile))
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVar(&flagSampleSize, "size", 0, "number of records to sample (default SAMPLE_SIZE)")
	sampleCmd.Flags().Int64Var(&flagSampleSeed, "seed", 0, "random seed (default SAMPLE_SEED)")
}
