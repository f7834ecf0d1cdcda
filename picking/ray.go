// Package picking turns pointer clicks into glyph selections: it unprojects
// normalized device coordinates into world rays and tests them against
// invisible spherical proxies placed at glyph anchors.
package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ray is a half line in world space. Dir is unit length.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// RayFromNDC builds the world-space ray through normalized device
// coordinates x, y in [-1, 1] (y up) for the given view and projection.
// ok is false when the camera transform cannot be inverted.
func RayFromNDC(x, y float64, view, proj mgl64.Mat4) (Ray, bool) {
	viewProj := proj.Mul4(view)
	if det := viewProj.Det(); det == 0 || math.IsNaN(det) {
		return Ray{}, false
	}
	invViewProj := viewProj.Inv()

	// Near and far points in NDC
	nearWorld := invViewProj.Mul4x1(mgl64.Vec4{x, y, -1, 1})
	farWorld := invViewProj.Mul4x1(mgl64.Vec4{x, y, 1, 1})
	if nearWorld[3] == 0 || farWorld[3] == 0 {
		return Ray{}, false
	}

	// Perspective divide
	nearWorld = nearWorld.Mul(1 / nearWorld[3])
	farWorld = farWorld.Mul(1 / farWorld[3])

	origin := mgl64.Vec3{nearWorld[0], nearWorld[1], nearWorld[2]}
	dir := mgl64.Vec3{
		farWorld[0] - nearWorld[0],
		farWorld[1] - nearWorld[1],
		farWorld[2] - nearWorld[2],
	}
	if dir.Len() == 0 {
		return Ray{}, false
	}
	return Ray{Origin: origin, Dir: dir.Normalize()}, true
}

// RayFromScreen converts window pixel coordinates (origin top left) to NDC
// and calls RayFromNDC.
func RayFromScreen(px, py float64, width, height int, view, proj mgl64.Mat4) (Ray, bool) {
	if width <= 0 || height <= 0 {
		return Ray{}, false
	}
	x := 2*px/float64(width) - 1
	y := 1 - 2*py/float64(height) // Flip Y
	return RayFromNDC(x, y, view, proj)
}

// RaySphere returns the distance along r to the first intersection with the
// sphere at center. A ray starting inside the sphere reports the exit point.
func RaySphere(r Ray, center mgl64.Vec3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	a := r.Dir.Dot(r.Dir)
	if a == 0 {
		return 0, false
	}
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}

	sqrtD := math.Sqrt(discriminant)
	t := (-b - sqrtD) / (2 * a)
	if t < 0 {
		t = (-b + sqrtD) / (2 * a)
		if t < 0 {
			return 0, false
		}
	}
	return t, true
}
