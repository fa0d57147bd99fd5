package geocode

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FileCache is the default Cache backed by a headerless CSV file with exactly
// three columns per row: query string, latitude, longitude. The whole mapping
// lives in memory during a run and is rewritten wholesale on Flush.
type FileCache struct {
	path string

	mu      sync.RWMutex
	entries map[string]Coordinate
}

// NewFileCache creates a FileCache persisting to the given path. Call Load
// before first use.
func NewFileCache(path string) *FileCache {
	return &FileCache{
		path:    path,
		entries: make(map[string]Coordinate),
	}
}

// Load reads the cache file. A missing file is an empty cache. Rows that are
// short, blank, or whose coordinate columns fail to parse are skipped
// silently so a schema drift or a truncated write never poisons a run.
func (c *FileCache) Load() error {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "cache: open %s", c.path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	loaded, skipped := 0, 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structurally broken row; drop it and keep going.
			skipped++
			continue
		}
		if len(row) < 3 || row[0] == "" || row[1] == "" || row[2] == "" {
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(row[1], 64)
		lon, lonErr := strconv.ParseFloat(row[2], 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		c.entries[row[0]] = Coordinate{Latitude: lat, Longitude: lon}
		loaded++
	}

	zap.L().Debug("geocode cache loaded",
		zap.String("path", c.path),
		zap.Int("entries", loaded),
		zap.Int("skipped_rows", skipped),
	)
	return nil
}

// Lookup returns the cached coordinate for an exact query string.
func (c *FileCache) Lookup(query string) (Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coord, ok := c.entries[query]
	return coord, ok
}

// Store inserts or overwrites an entry.
func (c *FileCache) Store(query string, coord Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[query] = coord
}

// Close is a no-op: the backing file is only held open inside Flush.
func (c *FileCache) Close() error {
	return nil
}

// Len reports the number of cached entries.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush rewrites the full mapping, superseding the prior file. The write goes
// to a temp file in the same directory and is renamed into place so a crash
// mid-flush leaves the previous cache intact.
func (c *FileCache) Flush() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	queries := make([]string, 0, len(c.entries))
	for q := range c.entries {
		queries = append(queries, q)
	}
	sort.Strings(queries) // stable file contents across runs

	for _, q := range queries {
		coord := c.entries[q]
		row := []string{
			q,
			strconv.FormatFloat(coord.Latitude, 'f', -1, 64),
			strconv.FormatFloat(coord.Longitude, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()           //nolint:errcheck
			os.Remove(tmpName)    //nolint:errcheck
			return eris.Wrap(err, "cache: write row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "cache: flush rows")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "cache: close temp file")
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "cache: rename into %s", c.path)
	}

	zap.L().Debug("geocode cache flushed",
		zap.String("path", c.path),
		zap.Int("entries", len(c.entries)),
	)
	return nil
}
