package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/connections-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "connections-cli",
	Short: "Batch-enrich an exported connections list",
	Long:  "Imports a social-network connections export, submits the contacts to a large-batch inference job, tracks the job in a local ledger, and reconciles results into enriched, geolocated contact records.",
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
