// Package wind samples, traces and summarizes U/V wind fields stored on a
// rectangular latitude/longitude grid.
//
// A Grid is immutable once built. Samples with a non-finite U or V are
// missing and are never treated as zero: Sample reports them with ok ==
// false, the integrator stops on them and the glyph generator skips them.
package wind

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"windglobe/core"
)

var (
	// ErrShape is returned when coordinate and component arrays disagree.
	ErrShape = errors.New("wind: grid shape mismatch")
	// ErrNotMonotonic is returned when an axis is not strictly ordered.
	ErrNotMonotonic = errors.New("wind: grid axis not monotonic")
	// ErrAxisValue is returned for a non-finite coordinate or a latitude
	// outside [-90, 90].
	ErrAxisValue = errors.New("wind: bad grid coordinate")
)

// Meta carries the opaque time and level tags of a grid snapshot.
type Meta struct {
	Time  json.RawMessage `json:"time,omitempty"`
	Level json.RawMessage `json:"level,omitempty"`
}

// LevelLabel returns the level tag for display, or "" when there is none.
func (m Meta) LevelLabel() string {
	return rawLabel(m.Level)
}

// TimeLabel returns the time tag for display, or "" when there is none.
func (m Meta) TimeLabel() string {
	return rawLabel(m.Time)
}

func rawLabel(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Grid is one snapshot of a vector field at a single time and level.
// U and V are indexed [lat index][lon index].
type Grid struct {
	Lats []float64
	Lons []float64
	U    [][]float64
	V    [][]float64
	Meta Meta

	latAscending bool
	lon360       bool
}

// NewGrid validates the axes and component arrays and returns a grid that
// shares the given slices. Latitudes may ascend or descend, longitudes must
// ascend.
func NewGrid(lats, lons []float64, u, v [][]float64, meta Meta) (*Grid, error) {
	if len(lats) < 2 || len(lons) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 latitudes and 2 longitudes, got %d x %d", ErrShape, len(lats), len(lons))
	}
	if len(u) != len(lats) || len(v) != len(lats) {
		return nil, fmt.Errorf("%w: %d latitudes but u has %d rows and v has %d rows", ErrShape, len(lats), len(u), len(v))
	}
	for j := range lats {
		if len(u[j]) != len(lons) || len(v[j]) != len(lons) {
			return nil, fmt.Errorf("%w: row %d has %d u and %d v values, want %d", ErrShape, j, len(u[j]), len(v[j]), len(lons))
		}
	}

	for j, lat := range lats {
		if !core.IsFinite(lat) || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("%w: latitude %d (%v)", ErrAxisValue, j, lat)
		}
	}
	for i, lon := range lons {
		if !core.IsFinite(lon) {
			return nil, fmt.Errorf("%w: longitude %d (%v)", ErrAxisValue, i, lon)
		}
	}

	ascending := lats[1] > lats[0]
	for j := 1; j < len(lats); j++ {
		if (ascending && lats[j] <= lats[j-1]) || (!ascending && lats[j] >= lats[j-1]) {
			return nil, fmt.Errorf("%w: latitude %d (%v)", ErrNotMonotonic, j, lats[j])
		}
	}
	for i := 1; i < len(lons); i++ {
		if lons[i] <= lons[i-1] {
			return nil, fmt.Errorf("%w: longitude %d (%v)", ErrNotMonotonic, i, lons[i])
		}
	}

	return &Grid{
		Lats:         lats,
		Lons:         lons,
		U:            u,
		V:            v,
		Meta:         meta,
		latAscending: ascending,
		lon360:       lons[0] >= 0 && lons[len(lons)-1] > 180,
	}, nil
}

// Rows returns the number of latitudes.
func (g *Grid) Rows() int { return len(g.Lats) }

// Cols returns the number of longitudes.
func (g *Grid) Cols() int { return len(g.Lons) }

// At returns the raw sample at row j and column i. ok is false for a
// missing sample or an index outside the grid.
func (g *Grid) At(j, i int) (u, v float64, ok bool) {
	if j < 0 || j >= len(g.Lats) || i < 0 || i >= len(g.Lons) {
		return 0, 0, false
	}
	u, v = g.U[j][i], g.V[j][i]
	if !core.IsFinite(u) || !core.IsFinite(v) {
		return 0, 0, false
	}
	return u, v, true
}

// LatRange returns the smallest and largest latitude of the grid.
func (g *Grid) LatRange() (lo, hi float64) {
	a, b := g.Lats[0], g.Lats[len(g.Lats)-1]
	return math.Min(a, b), math.Max(a, b)
}

// LonRange returns the first and last longitude of the grid.
func (g *Grid) LonRange() (lo, hi float64) {
	return g.Lons[0], g.Lons[len(g.Lons)-1]
}

// Speeds returns the magnitude of every finite sample.
func (g *Grid) Speeds() []float64 {
	speeds := make([]float64, 0, len(g.Lats)*len(g.Lons))
	for j := range g.Lats {
		for i := range g.Lons {
			if u, v, ok := g.At(j, i); ok {
				speeds = append(speeds, math.Hypot(u, v))
			}
		}
	}
	return speeds
}

// Scale returns a copy with every component multiplied by f. Missing samples
// stay missing.
func (g *Grid) Scale(f float64) *Grid {
	scale := func(src [][]float64) [][]float64 {
		out := make([][]float64, len(src))
		for j, row := range src {
			out[j] = make([]float64, len(row))
			for i, x := range row {
				out[j][i] = x * f
			}
		}
		return out
	}

	c := *g
	c.U = scale(g.U)
	c.V = scale(g.V)
	return &c
}

// Subgrid returns the rows [j0, j1) and columns [i0, i1) as a new grid.
func (g *Grid) Subgrid(j0, j1, i0, i1 int) (*Grid, error) {
	if j0 < 0 || i0 < 0 || j1 > len(g.Lats) || i1 > len(g.Lons) || j1-j0 < 2 || i1-i0 < 2 {
		return nil, fmt.Errorf("%w: subgrid rows [%d,%d) cols [%d,%d) of %d x %d", ErrShape, j0, j1, i0, i1, len(g.Lats), len(g.Lons))
	}

	u := make([][]float64, 0, j1-j0)
	v := make([][]float64, 0, j1-j0)
	for j := j0; j < j1; j++ {
		u = append(u, append([]float64(nil), g.U[j][i0:i1]...))
		v = append(v, append([]float64(nil), g.V[j][i0:i1]...))
	}
	lats := append([]float64(nil), g.Lats[j0:j1]...)
	lons := append([]float64(nil), g.Lons[i0:i1]...)
	return NewGrid(lats, lons, u, v, g.Meta)
}
