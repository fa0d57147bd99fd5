package geocode

import (
	"context"

	"go.uber.org/zap"
)

// Resolver applies the per-record resolution policy: for each candidate
// query, in order, consult the cache first, then each available provider;
// stop at the first success. A network success is written back to the cache
// so later records sharing the candidate resolve without another call.
//
// Resolve never returns an error for a single record: transport failures,
// provider rejections, and empty result sets all advance the cascade, and an
// exhausted cascade is the normal "absent" outcome.
type Resolver struct {
	cache     Cache
	providers []Provider
}

// Resolution is the outcome for one record.
type Resolution struct {
	Coordinate Coordinate
	Resolved   bool
	FromCache  bool   // satisfied without any network call
	Source     string // provider name, or "cache"
}

// NewResolver creates a Resolver over the given cache and provider cascade.
func NewResolver(cache Cache, providers ...Provider) *Resolver {
	return &Resolver{cache: cache, providers: providers}
}

// FromCacheOnly evaluates candidates against the cache alone, with no network
// calls and no rate-limit delay. Used by the pipeline's partition step.
func (r *Resolver) FromCacheOnly(candidates []string) (Resolution, bool) {
	for _, query := range candidates {
		if coord, ok := r.cache.Lookup(query); ok {
			return Resolution{Coordinate: coord, Resolved: true, FromCache: true, Source: "cache"}, true
		}
	}
	return Resolution{}, false
}

// Resolve runs the full cache-then-network policy over the candidate list.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) Resolution {
	for _, query := range candidates {
		if coord, ok := r.cache.Lookup(query); ok {
			return Resolution{Coordinate: coord, Resolved: true, FromCache: true, Source: "cache"}
		}

		for _, p := range r.providers {
			if !p.Available() {
				continue
			}
			result, err := p.Geocode(ctx, query)
			if err != nil {
				// Transient provider failure is indistinguishable from "no
				// result" for this candidate; move on rather than retry.
				zap.L().Debug("geocode: provider error, advancing",
					zap.String("provider", p.Name()),
					zap.String("query", query),
					zap.Error(err),
				)
				continue
			}
			if result != nil && result.Matched {
				coord := Coordinate{Latitude: result.Latitude, Longitude: result.Longitude}
				r.cache.Store(query, coord)
				return Resolution{Coordinate: coord, Resolved: true, Source: result.Source}
			}
		}
	}

	// All candidates exhausted; absent is an expected outcome, surfaced only
	// as an aggregate count at run end.
	return Resolution{}
}
