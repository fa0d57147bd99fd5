// Package pipeline orchestrates coordinate resolution over a full record
// list: a bounded-concurrency pass over cache-satisfiable records, a strictly
// sequential pass over records needing the network, and a single end-of-run
// cache flush.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rehabdir/rehabdir/internal/model"
	"github.com/rehabdir/rehabdir/pkg/geocode"
)

// DefaultCacheWorkers bounds the concurrent cache-hit phase.
const DefaultCacheWorkers = 8

// Outcome summarizes a completed run.
type Outcome struct {
	Total       int
	FromCache   int
	FromNetwork int
	Unresolved  int
	Elapsed     time.Duration
}

// Pipeline resolves coordinates for provider records.
type Pipeline struct {
	resolver     *geocode.Resolver
	cache        geocode.Cache
	cacheWorkers int
	showProgress bool
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithCacheWorkers bounds the concurrent cache-hit phase (default 8).
func WithCacheWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.cacheWorkers = n
		}
	}
}

// WithProgressBar toggles the terminal progress bar over the network phase.
func WithProgressBar(enabled bool) Option {
	return func(p *Pipeline) {
		p.showProgress = enabled
	}
}

// New creates a Pipeline. The cache must already be loaded; the pipeline owns
// the single end-of-run Flush.
func New(resolver *geocode.Resolver, cache geocode.Cache, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:     resolver,
		cache:        cache,
		cacheWorkers: DefaultCacheWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// partition labels each record cache-hit or network-required. Candidate lists
// are built once and retained for the network phase.
type partition struct {
	resolutions  []geocode.Resolution // indexed by original record position
	networkIdx   []int                // original indices needing the network
	candidates   [][]string           // candidate lists for networkIdx entries
	cacheHitIdx  []int                // original indices satisfiable from cache
	cacheHitCand [][]string
}

// Run resolves coordinates for every record, in place, preserving input
// order and length. No per-record failure escapes; the returned error covers
// only the cache flush, which is fatal because silently losing the cache
// doubles the network cost of the next run.
func (p *Pipeline) Run(ctx context.Context, records []model.Provider) (Outcome, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	start := time.Now()

	part := p.partition(records)
	log.Info("partitioned records",
		zap.Int("total", len(records)),
		zap.Int("cache_hit", len(part.cacheHitIdx)),
		zap.Int("network_required", len(part.networkIdx)),
	)

	p.runCachePhase(part)
	p.runNetworkPhase(ctx, part, records)

	// Merge: attach coordinates by original index.
	outcome := Outcome{Total: len(records)}
	for i := range records {
		res := part.resolutions[i]
		if !res.Resolved {
			outcome.Unresolved++
			continue
		}
		records[i].SetCoordinate(res.Coordinate.Latitude, res.Coordinate.Longitude)
		if res.FromCache {
			outcome.FromCache++
		} else {
			outcome.FromNetwork++
		}
	}

	if err := p.cache.Flush(); err != nil {
		return outcome, eris.Wrap(err, "pipeline: flush cache")
	}

	outcome.Elapsed = time.Since(start)
	log.Info("run complete",
		zap.Int("total", outcome.Total),
		zap.Int("from_cache", outcome.FromCache),
		zap.Int("from_network", outcome.FromNetwork),
		zap.Int("unresolved", outcome.Unresolved),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

// partition evaluates candidates against the cache only; no network calls.
func (p *Pipeline) partition(records []model.Provider) *partition {
	part := &partition{
		resolutions: make([]geocode.Resolution, len(records)),
	}
	for i, rec := range records {
		cands := geocode.Candidates(rec)
		if _, ok := p.resolver.FromCacheOnly(cands); ok {
			part.cacheHitIdx = append(part.cacheHitIdx, i)
			part.cacheHitCand = append(part.cacheHitCand, cands)
		} else {
			part.networkIdx = append(part.networkIdx, i)
			part.candidates = append(part.candidates, cands)
		}
	}
	return part
}

// runCachePhase resolves cache-hit records concurrently. Reads are the only
// cache access here, so the bounded pool needs no ordering or cancellation;
// results land in the resolutions slice by original index.
func (p *Pipeline) runCachePhase(part *partition) {
	if len(part.cacheHitIdx) == 0 {
		return
	}

	var eg errgroup.Group
	eg.SetLimit(p.cacheWorkers)
	for k, idx := range part.cacheHitIdx {
		eg.Go(func() error {
			res, _ := p.resolver.FromCacheOnly(part.cacheHitCand[k])
			part.resolutions[idx] = res
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors
}

// runNetworkPhase processes network-required records one at a time, in
// original order. Cache writes from earlier records are visible to later
// ones, so two records sharing a candidate cost one network call.
func (p *Pipeline) runNetworkPhase(ctx context.Context, part *partition, records []model.Provider) {
	total := len(part.networkIdx)
	if total == 0 {
		return
	}
	log := zap.L().With(zap.String("component", "pipeline"))

	var bar *progressbar.ProgressBar
	if p.showProgress {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var elapsed time.Duration
	for k, idx := range part.networkIdx {
		recStart := time.Now()
		res := p.resolver.Resolve(ctx, part.candidates[k])
		part.resolutions[idx] = res
		elapsed += time.Since(recStart)

		processed := k + 1
		avg := elapsed / time.Duration(processed)
		eta := avg * time.Duration(total-processed)

		// Observational only; not part of the data contract.
		fields := []zap.Field{
			zap.Int("processed", processed),
			zap.Int("remaining", total-processed),
			zap.Duration("eta", eta.Round(time.Second)),
			zap.String("record", records[idx].Name),
		}
		if res.Resolved {
			fields = append(fields,
				zap.Float64("lat", res.Coordinate.Latitude),
				zap.Float64("lon", res.Coordinate.Longitude),
				zap.String("source", res.Source),
			)
			log.Info("resolved", fields...)
		} else {
			log.Info("unresolved", fields...)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
}
