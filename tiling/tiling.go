// Package tiling partitions a lat/lon grid into z/x/y tiles. Zoom z splits
// each axis into 2^z tiles; x runs along longitude columns and y along
// latitude rows.
package tiling

import (
	"errors"
	"fmt"
	"math"

	"windglobe/wind"
)

// ErrOutOfRange is returned for tile coordinates outside the zoom level.
var ErrOutOfRange = errors.New("tile out of range")

// MaxZoom bounds the zoom so that 1<<zoom stays well inside int.
const MaxZoom = 30

// Range is a half-open index range [Min, Max).
type Range struct {
	Min, Max int
}

// Len returns Max - Min.
func (r Range) Len() int { return r.Max - r.Min }

// Box returns the column and row ranges of tile x, y at zoom for a grid of
// width columns and height rows. Edges are floored and ceiled from an even
// float split, so the tiles of one zoom cover the grid without gaps.
func Box(width, height, zoom, x, y int) (cols, rows Range, err error) {
	if zoom < 0 || zoom > MaxZoom {
		return cols, rows, fmt.Errorf("%w: zoom %d", ErrOutOfRange, zoom)
	}
	tiles := 1 << zoom
	if x < 0 || x >= tiles || y < 0 || y >= tiles {
		return cols, rows, fmt.Errorf("%w: (%d,%d) at zoom %d", ErrOutOfRange, x, y, zoom)
	}

	tileW := float64(width) / float64(tiles)
	tileH := float64(height) / float64(tiles)

	cols = Range{
		Min: int(math.Floor(float64(x) * tileW)),
		Max: min(width, int(math.Ceil(float64(x+1)*tileW))),
	}
	rows = Range{
		Min: int(math.Floor(float64(y) * tileH)),
		Max: min(height, int(math.Ceil(float64(y+1)*tileH))),
	}
	return cols, rows, nil
}

// Cut returns the sub-grid of tile x, y at zoom. Each tile keeps one extra
// sample past its far edges, where the grid has one, so neighbouring tiles
// share their boundary and interpolate seamlessly. Tiles narrower than two
// samples are widened to two.
func Cut(g *wind.Grid, zoom, x, y int) (*wind.Grid, error) {
	cols, rows, err := Box(g.Cols(), g.Rows(), zoom, x, y)
	if err != nil {
		return nil, err
	}
	cols = widen(cols, g.Cols())
	rows = widen(rows, g.Rows())
	return g.Subgrid(rows.Min, rows.Max, cols.Min, cols.Max)
}

func widen(r Range, n int) Range {
	if r.Max < n {
		r.Max++
	}
	if r.Len() < 2 {
		r.Min = max(0, r.Max-2)
	}
	return r
}
