package geocode

import (
	"database/sql"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteCache implements Cache over modernc.org/sqlite for installations that
// prefer a single database file over the flat CSV. Semantics match FileCache:
// the table is read fully into memory on Load, lookups are exact-string, and
// Flush upserts the in-memory mapping in one transaction.
type SQLiteCache struct {
	db *sql.DB

	mu      sync.RWMutex
	entries map[string]Coordinate
}

const sqliteCacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query     TEXT PRIMARY KEY,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL
);
`

// NewSQLiteCache opens (or creates) a SQLite cache database at the given path
// and configures WAL mode.
func NewSQLiteCache(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteCacheMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite cache: migrate")
	}
	return &SQLiteCache{
		db:      db,
		entries: make(map[string]Coordinate),
	}, nil
}

// Load reads the full table into memory. Rows with NULL coordinates cannot
// exist under the schema, so unlike FileCache there is nothing to skip.
func (c *SQLiteCache) Load() error {
	rows, err := c.db.Query("SELECT query, latitude, longitude FROM geocode_cache")
	if err != nil {
		return eris.Wrap(err, "sqlite cache: load")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var query string
		var lat, lon float64
		if err := rows.Scan(&query, &lat, &lon); err != nil {
			// Malformed row; skip like the file backend does.
			continue
		}
		c.entries[query] = Coordinate{Latitude: lat, Longitude: lon}
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite cache: scan")
	}

	zap.L().Debug("geocode cache loaded", zap.String("backend", "sqlite"), zap.Int("entries", len(c.entries)))
	return nil
}

// Lookup returns the cached coordinate for an exact query string.
func (c *SQLiteCache) Lookup(query string) (Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coord, ok := c.entries[query]
	return coord, ok
}

// Store inserts or overwrites an entry in memory; durability comes at Flush.
func (c *SQLiteCache) Store(query string, coord Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[query] = coord
}

// Len reports the number of cached entries.
func (c *SQLiteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush upserts every in-memory entry in a single transaction. The database
// stays open; call Close when done.
func (c *SQLiteCache) Flush() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, err := c.db.Begin()
	if err != nil {
		return eris.Wrap(err, "sqlite cache: begin flush")
	}
	stmt, err := tx.Prepare(`
		INSERT INTO geocode_cache (query, latitude, longitude)
		VALUES (?, ?, ?)
		ON CONFLICT (query) DO UPDATE SET
			latitude  = excluded.latitude,
			longitude = excluded.longitude`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrap(err, "sqlite cache: prepare upsert")
	}
	for query, coord := range c.entries {
		if _, err := stmt.Exec(query, coord.Latitude, coord.Longitude); err != nil {
			stmt.Close()  //nolint:errcheck
			tx.Rollback() //nolint:errcheck
			return eris.Wrapf(err, "sqlite cache: upsert %q", query)
		}
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrap(err, "sqlite cache: close statement")
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite cache: commit flush")
	}

	zap.L().Debug("geocode cache flushed", zap.String("backend", "sqlite"), zap.Int("entries", len(c.entries)))
	return nil
}

// Close releases the database handle.
func (c *SQLiteCache) Close() error {
	return eris.Wrap(c.db.Close(), "sqlite cache: close")
}
