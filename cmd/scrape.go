package main

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rehabdir/rehabdir/internal/export"
	"github.com/rehabdir/rehabdir/internal/scrape"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch the provider listing, geocode addresses, write the enriched CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runID := uuid.NewString()
		log := zap.L().With(
			zap.String("command", "scrape"),
			zap.String("run_id", runID),
		)

		fetcher := scrape.NewFetcher(
			scrape.WithTimeout(sourceTimeout(cfg.Source)),
			scrape.WithUserAgent(cfg.Source.UserAgent),
		)

		log.Info("fetching listing", zap.String("url", cfg.Source.URL))
		html, err := fetcher.Fetch(ctx, cfg.Source.URL)
		if err != nil {
			return eris.Wrap(err, "scrape: fetch listing")
		}

		records, err := scrape.ParseProviders(html)
		if err != nil {
			return eris.Wrap(err, "scrape: parse listing")
		}
		if len(records) == 0 {
			log.Warn("no provider cards found; the page may have changed or failed to render")
			return nil
		}
		log.Info("parsed providers", zap.Int("count", len(records)))

		cache, err := buildCache(cfg.Cache)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		outcome, err := buildPipeline(cfg, cache).Run(ctx, records)
		if err != nil {
			return err
		}

		if err := export.WriteCSVFile(cfg.Output.Path, records); err != nil {
			return err
		}

		log.Info("wrote output",
			zap.String("path", cfg.Output.Path),
			zap.Int("rows", len(records)),
		)
		if outcome.Unresolved > 0 {
			log.Warn("some addresses could not be geocoded",
				zap.Int("unresolved", outcome.Unresolved),
				zap.Int("total", outcome.Total),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
