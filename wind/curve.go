package wind

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"windglobe/core"
)

// Curve is a polyline parametrized by normalized arc length.
type Curve struct {
	points []mgl64.Vec3
	speeds []float64
	cum    []float64 // cumulative length at each point
}

// NewCurve builds a curve through points. speeds is aligned with points and
// may be nil.
func NewCurve(points []mgl64.Vec3, speeds []float64) *Curve {
	c := &Curve{
		points: points,
		speeds: alignSpeeds(speeds, len(points)),
		cum:    make([]float64, len(points)),
	}
	for k := 1; k < len(points); k++ {
		c.cum[k] = c.cum[k-1] + points[k].Sub(points[k-1]).Len()
	}
	return c
}

// Length returns the total arc length.
func (c *Curve) Length() float64 {
	if len(c.cum) == 0 {
		return 0
	}
	return c.cum[len(c.cum)-1]
}

// locate returns the segment k and the fraction along it for t in [0, 1].
func (c *Curve) locate(t float64) (int, float64) {
	if len(c.points) < 2 {
		return 0, 0
	}
	total := c.Length()
	if total == 0 {
		return 0, 0
	}

	d := core.Clamp(t, 0, 1) * total
	// first point whose cumulative length is >= d
	k := sort.SearchFloat64s(c.cum, d)
	if k == 0 {
		return 0, 0
	}
	if k >= len(c.cum) {
		k = len(c.cum) - 1
	}
	seg := k - 1
	span := c.cum[k] - c.cum[seg]
	if span == 0 {
		return seg, 1
	}
	return seg, (d - c.cum[seg]) / span
}

// PointAt returns the position at normalized arc length t.
func (c *Curve) PointAt(t float64) mgl64.Vec3 {
	switch len(c.points) {
	case 0:
		return mgl64.Vec3{}
	case 1:
		return c.points[0]
	}
	if t >= 1 {
		return c.points[len(c.points)-1]
	}
	seg, f := c.locate(t)
	a, b := c.points[seg], c.points[seg+1]
	return a.Add(b.Sub(a).Mul(f))
}

// TangentAt returns the unit direction of travel at t. It is the zero vector
// for a curve without length.
func (c *Curve) TangentAt(t float64) mgl64.Vec3 {
	if c.Length() == 0 {
		return mgl64.Vec3{}
	}
	seg, _ := c.locate(t)
	// skip zero-length segments
	for s := seg; s < len(c.points)-1; s++ {
		if d := c.points[s+1].Sub(c.points[s]); d.Len() > 0 {
			return d.Normalize()
		}
	}
	for s := seg - 1; s >= 0; s-- {
		if d := c.points[s+1].Sub(c.points[s]); d.Len() > 0 {
			return d.Normalize()
		}
	}
	return mgl64.Vec3{}
}

// SpeedAt returns the interpolated speed at t.
func (c *Curve) SpeedAt(t float64) float64 {
	switch len(c.speeds) {
	case 0:
		return 0
	case 1:
		return c.speeds[0]
	}
	if t >= 1 {
		return c.speeds[len(c.speeds)-1]
	}
	seg, f := c.locate(t)
	return c.speeds[seg] + (c.speeds[seg+1]-c.speeds[seg])*f
}
