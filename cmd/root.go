package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"catalog-linker/config"
	"catalog-linker/utils"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagEnv string

	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "catalog-linker",
	Short: "Reconcile two scraped product catalogs into one search index",
	Long: `catalog-linker extracts the directory and launch board exports, links
them on a canonical product URL and writes a deduplicated search index.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(flagEnv)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = c
		logger = utils.NewLoggerWithMode(c.LogMode)
		if !c.EnvFileLoaded {
			logger.Debug("[config] No .env file found, falling back to system env vars")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "path to env file (default .env)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(publishCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("catalog-linker %s (commit: %s)\n", version, commit)
	},
}

// Execute runs the root command, cancelling on interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// SetVersionInfo is called from main when built with ldflags.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
}
