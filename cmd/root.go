package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recovery-atlas/directory-cli/internal/config"
)

var cfg *config.Config

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "dirctl",
	Short:   "Recovery support services directory builder",
	Long:    "Aggregates per-source extraction files into a deduplicated canonical directory of recovery-support organizations, with stable IDs across runs and a review report for merge conflicts.",
	Version: version,

	// Runtime failures (bad input files, store errors) should not dump the
	// flag help on top of the error.
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
