// Package geocode resolves free-text postal addresses to coordinates via
// Nominatim (primary) and Google (optional fallback), with a durable
// query-keyed cache in front of every network call.
package geocode

import (
	"context"
)

// Coordinate is a resolved latitude/longitude pair in floating-point degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Result holds the outcome of a single provider call. An unmatched query is
// not an error: Matched is false and the coordinate fields are meaningless.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "nominatim" or "google"
	Matched   bool
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// Cache maps normalized query strings to coordinates. Implementations must be
// safe for concurrent Lookup during the parallel cache-hit phase; Store and
// Flush are only called from the single-threaded network phase and run end.
//
// Only successful resolutions are stored. Unresolved queries are never cached
// as negatives, so they are retried on every run.
type Cache interface {
	// Load reads the persisted table. Malformed or incomplete rows are
	// skipped silently. A missing backing file is an empty cache, not an
	// error.
	Load() error

	// Lookup is an exact string match; callers are expected to have trimmed
	// and collapsed whitespace already (see model.CollapseSpace).
	Lookup(query string) (Coordinate, bool)

	// Store inserts or overwrites; last write wins when the same query
	// resolves twice in one run.
	Store(query string, c Coordinate)

	// Flush serializes the full mapping to durable storage, replacing any
	// prior contents. Called exactly once, after all resolutions complete. A
	// run that dies before Flush loses only the unflushed portion; the next
	// run re-resolves anything not yet persisted. Flush leaves the backend
	// open; repeated calls are allowed.
	Flush() error

	// Close releases backend resources after the final Flush. A no-op for
	// backends that hold no handle between flushes.
	Close() error

	// Len reports the number of cached entries.
	Len() int
}
