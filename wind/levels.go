package wind

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownLevel is returned for a level that is not in the manifest.
var ErrUnknownLevel = errors.New("wind: unknown level")

// ManifestFile lists the levels available in a data directory.
const ManifestFile = "levels.json"

// Manifest is the content of ManifestFile.
type Manifest struct {
	Levels []int `json:"levels"`
}

// LevelFile returns the grid file name of a level.
func LevelFile(level int) string {
	return fmt.Sprintf("uv_level_%03d.json", level)
}

// ReadManifest reads the manifest of a data directory.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%s: %w", ManifestFile, err)
	}
	return m, nil
}

// WriteManifest writes the manifest of a data directory.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644)
}

// LoaderFunc loads the grid of one level.
type LoaderFunc func(level int) (*Grid, error)

// Store loads level grids on demand and keeps the most recently used ones.
// It is safe for concurrent use.
type Store struct {
	levels []int
	load   LoaderFunc
	log    *slog.Logger

	cache  *lru.Cache[int, *Grid]
	flight singleflight.Group
}

// NewStore returns a store over the given levels. cacheSize < 1 keeps one grid.
func NewStore(levels []int, load LoaderFunc, cacheSize int, logger *slog.Logger) *Store {
	if cacheSize < 1 {
		cacheSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[int, *Grid](cacheSize)
	return &Store{
		levels: slices.Clone(levels),
		load:   load,
		log:    logger,
		cache:  cache,
	}
}

// OpenStore opens a data directory holding a manifest and per-level grid files.
func OpenStore(dir string, cacheSize int, logger *slog.Logger) (*Store, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("open wind store: %w", err)
	}
	if len(m.Levels) == 0 {
		return nil, fmt.Errorf("open wind store: %s lists no levels", filepath.Join(dir, ManifestFile))
	}
	load := func(level int) (*Grid, error) {
		return LoadGrid(filepath.Join(dir, LevelFile(level)))
	}
	return NewStore(m.Levels, load, cacheSize, logger), nil
}

// Levels returns the available levels in manifest order.
func (s *Store) Levels() []int {
	return slices.Clone(s.levels)
}

// Has reports whether level is in the manifest.
func (s *Store) Has(level int) bool {
	return slices.Contains(s.levels, level)
}

// Load returns the grid of a level, from cache when possible. Concurrent
// loads of the same level share one read. A caller whose context ends stops
// waiting, but the read itself completes and is cached.
func (s *Store) Load(ctx context.Context, level int) (*Grid, error) {
	if !s.Has(level) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g, ok := s.cache.Get(level); ok {
		return g, nil
	}

	ch := s.flight.DoChan(strconv.Itoa(level), func() (any, error) {
		g, err := s.load(level)
		if err != nil {
			return nil, err
		}
		s.log.Info("loaded wind level", "level", level, "rows", g.Rows(), "cols", g.Cols())
		s.cache.Add(level, g)
		return g, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load level %d: %w", level, res.Err)
		}
		return res.Val.(*Grid), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cached reports whether a level is currently held in memory. It does not
// affect eviction order.
func (s *Store) Cached(level int) bool {
	return s.cache.Contains(level)
}

// Prefetch loads up to n levels following level in manifest order, one at a
// time, so that stepping through levels hits the cache. Failures are logged
// and skipped.
func (s *Store) Prefetch(ctx context.Context, level, n int) {
	idx := slices.Index(s.levels, level)
	if idx < 0 {
		return
	}
	for k := idx + 1; k < len(s.levels) && k <= idx+n; k++ {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Load(ctx, s.levels[k]); err != nil {
			s.log.Warn("prefetch failed", "level", s.levels[k], "err", err)
		}
	}
}
