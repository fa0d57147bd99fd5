package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rehabdir/rehabdir/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rehabdir",
	Short: "SIRA rehab-provider directory scraper and geocoder",
	Long:  "Scrapes the NSW SIRA rehab-provider listing, resolves each address to coordinates through a cached, rate-limited geocoding pipeline, and writes an enriched CSV.",
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
