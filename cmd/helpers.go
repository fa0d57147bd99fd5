package main

import (
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rehabdir/rehabdir/internal/config"
	"github.com/rehabdir/rehabdir/internal/pipeline"
	"github.com/rehabdir/rehabdir/pkg/geocode"
)

// buildCache opens the configured geocode cache backend and loads it.
// Failures here are fatal to the run: proceeding with a half-read cache risks
// silent duplicate network cost on the next run.
func buildCache(cfg config.CacheConfig) (geocode.Cache, error) {
	var cache geocode.Cache
	switch cfg.Driver {
	case "", "csv":
		cache = geocode.NewFileCache(cfg.Path)
	case "sqlite":
		sc, err := geocode.NewSQLiteCache(cfg.Path)
		if err != nil {
			return nil, err
		}
		cache = sc
	default:
		return nil, eris.Errorf("unknown cache driver %q (valid: csv, sqlite)", cfg.Driver)
	}

	if err := cache.Load(); err != nil {
		return nil, eris.Wrap(err, "load geocode cache")
	}
	return cache, nil
}

// buildPipeline wires the provider cascade, resolver, and pipeline from
// configuration.
func buildPipeline(cfg *config.Config, cache geocode.Cache) *pipeline.Pipeline {
	nominatimOpts := []geocode.NominatimOption{}
	if cfg.Geocode.NominatimURL != "" {
		nominatimOpts = append(nominatimOpts, geocode.WithNominatimBaseURL(cfg.Geocode.NominatimURL))
	}
	if cfg.Geocode.RatePerSec > 0 {
		nominatimOpts = append(nominatimOpts, geocode.WithNominatimLimiter(
			rate.NewLimiter(rate.Limit(cfg.Geocode.RatePerSec), 1),
		))
	}

	providers := []geocode.Provider{geocode.NewNominatim(nominatimOpts...)}
	if cfg.Geocode.GoogleAPIKey != "" {
		providers = append(providers, geocode.NewGoogle(cfg.Geocode.GoogleAPIKey))
	}

	resolver := geocode.NewResolver(cache, providers...)
	return pipeline.New(resolver, cache,
		pipeline.WithCacheWorkers(cfg.Geocode.CacheWorkers),
		pipeline.WithProgressBar(cfg.Geocode.Progress),
	)
}

// sourceTimeout converts the configured fetch timeout.
func sourceTimeout(cfg config.SourceConfig) time.Duration {
	if cfg.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.TimeoutSecs) * time.Second
}
