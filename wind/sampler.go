package wind

import (
	"math"

	"windglobe/core"
)

// Vector is an eastward (U) / northward (V) pair in the grid's units.
type Vector struct {
	U, V float64
}

// Speed returns the magnitude of the vector.
func (v Vector) Speed() float64 {
	return math.Hypot(v.U, v.V)
}

// Field is anything that can be sampled at a geographic position.
// ok is false when the value is missing there.
type Field interface {
	Sample(lat, lon float64) (vec Vector, ok bool)
}

// Sample bilinearly interpolates the grid at lat/lon in degrees.
//
// Queries are clamped into the grid; nothing is extrapolated and the
// longitude seam is not interpolated across. On a [0, 360) grid a negative
// longitude is shifted by +360 first. The result is missing when any corner
// that carries weight in the interpolation is missing.
func (g *Grid) Sample(lat, lon float64) (Vector, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Vector{}, false
	}

	if g.lon360 && lon < 0 {
		lon += 360
	}
	lonLo, lonHi := g.LonRange()
	lon = core.Clamp(lon, lonLo, lonHi)
	latLo, latHi := g.LatRange()
	lat = core.Clamp(lat, latLo, latHi)

	j, ty := findCell(g.Lats, lat, g.latAscending)
	i, tx := findCell(g.Lons, lon, true)

	weights := [4]float64{
		(1 - tx) * (1 - ty),
		tx * (1 - ty),
		(1 - tx) * ty,
		tx * ty,
	}
	corners := [4][2]int{{j, i}, {j, i + 1}, {j + 1, i}, {j + 1, i + 1}}

	var out Vector
	for k, w := range weights {
		if w == 0 {
			continue
		}
		u, v := g.U[corners[k][0]][corners[k][1]], g.V[corners[k][0]][corners[k][1]]
		if !core.IsFinite(u) || !core.IsFinite(v) {
			return Vector{}, false
		}
		out.U += w * u
		out.V += w * v
	}
	return out, true
}

// findCell returns the index k of the cell [axis[k], axis[k+1]] containing x
// and the fraction of x across it. x must already be clamped into the axis.
// A linear scan is fine for the few hundred cells per axis in use.
func findCell(axis []float64, x float64, ascending bool) (int, float64) {
	last := len(axis) - 2
	k := last
	for c := 0; c < last; c++ {
		a, b := axis[c], axis[c+1]
		if (ascending && x >= a && x <= b) || (!ascending && x <= a && x >= b) {
			k = c
			break
		}
	}

	span := axis[k+1] - axis[k]
	if span == 0 {
		return k, 0
	}
	return k, core.Clamp((x-axis[k])/span, 0, 1)
}
