package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rehabdir/rehabdir/internal/export"
	"github.com/rehabdir/rehabdir/internal/model"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode [csv-file]",
	Short: "Re-geocode a previously scraped CSV",
	Long: `Re-geocode a previously scraped CSV.

Reads the given file (default: the configured output path), resolves any
record without coordinates, and rewrites the file in place. Records whose
addresses are already in the cache never touch the network, so a run after a
complete cache warm finishes without a single request.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path := cfg.Output.Path
		if len(args) == 1 {
			path = args[0]
		}
		log := zap.L().With(zap.String("command", "geocode"), zap.String("path", path))

		records, err := export.ReadCSVFile(path)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			log.Warn("file has no records")
			return nil
		}

		// Records that already carry coordinates keep them; only the rest go
		// through the pipeline.
		pending := make([]model.Provider, 0, len(records))
		pendingIdx := make([]int, 0, len(records))
		for i, rec := range records {
			if !rec.Geocoded {
				pending = append(pending, rec)
				pendingIdx = append(pendingIdx, i)
			}
		}
		log.Info("loaded records",
			zap.Int("total", len(records)),
			zap.Int("pending", len(pending)),
		)
		if len(pending) == 0 {
			return nil
		}

		cache, err := buildCache(cfg.Cache)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		outcome, err := buildPipeline(cfg, cache).Run(ctx, pending)
		if err != nil {
			return err
		}
		for k, idx := range pendingIdx {
			records[idx] = pending[k]
		}

		if err := export.WriteCSVFile(path, records); err != nil {
			return eris.Wrap(err, "geocode: rewrite csv")
		}

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
	rootCmd.AddCommand(geocodeCmd)
}
