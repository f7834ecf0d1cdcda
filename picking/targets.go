package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Target is an invisible pick sphere at a glyph anchor.
type Target struct {
	Index  int // index of the glyph the target stands for
	Center mgl64.Vec3
}

// Targets is the pick target set of one glyph field.
type Targets struct {
	Radius float64
	Items  []Target
}

// BuildTargets places a target of the given radius at every anchor. With
// avoidOverlap, anchors are visited in order and one closer than 2*radius to
// an already placed target is dropped.
func BuildTargets(anchors []mgl64.Vec3, radius float64, avoidOverlap bool) *Targets {
	ts := &Targets{Radius: radius, Items: make([]Target, 0, len(anchors))}
	minDist2 := 4 * radius * radius

	for k, a := range anchors {
		if avoidOverlap && ts.crowded(a, minDist2) {
			continue
		}
		ts.Items = append(ts.Items, Target{Index: k, Center: a})
	}
	return ts
}

func (ts *Targets) crowded(p mgl64.Vec3, minDist2 float64) bool {
	for _, t := range ts.Items {
		d := p.Sub(t.Center)
		if d.Dot(d) < minDist2 {
			return true
		}
	}
	return false
}

// Pick returns the target nearest along r. With occluderRadius > 0 a globe of
// that radius at the origin hides targets whose sphere is entered behind the
// globe surface.
func (ts *Targets) Pick(r Ray, occluderRadius float64) (Target, bool) {
	if ts == nil {
		return Target{}, false
	}
	limit := math.Inf(1)
	if occluderRadius > 0 {
		if t, ok := RaySphere(r, mgl64.Vec3{}, occluderRadius); ok {
			limit = t
		}
	}

	best, bestT, found := Target{}, math.Inf(1), false
	for _, target := range ts.Items {
		t, ok := RaySphere(r, target.Center, ts.Radius)
		if !ok || t > limit || t >= bestT {
			continue
		}
		best, bestT, found = target, t, true
	}
	return best, found
}

// Len returns the number of targets.
func (ts *Targets) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.Items)
}
