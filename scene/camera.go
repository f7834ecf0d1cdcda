package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"windglobe/core"
	"windglobe/picking"
)

// Pitch is kept short of the poles so LookAt never sees a parallel up vector.
const maxPitch = 1.5

// OrbitCamera looks at the globe center from a point on a sphere around it.
// Yaw turns around the globe axis, pitch tilts towards the poles.
type OrbitCamera struct {
	Yaw, Pitch  float64 // radians
	Distance    float64
	MinDistance float64
	MaxDistance float64
	FovY        float64 // radians
	Aspect      float64
	Near, Far   float64

	AutoRotate      bool
	AutoRotateSpeed float64 // radians per second
}

// NewOrbitCamera returns a camera looking at a globe of the given radius from
// three radii away, autorotating.
func NewOrbitCamera(radius, aspect, autoRotateSpeed float64) *OrbitCamera {
	return &OrbitCamera{
		Distance:        radius * 3,
		MinDistance:     radius * 1.2,
		MaxDistance:     radius * 10,
		FovY:            mgl64.DegToRad(45),
		Aspect:          aspect,
		Near:            radius * 0.01,
		Far:             radius * 100,
		AutoRotate:      true,
		AutoRotateSpeed: autoRotateSpeed,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() mgl64.Vec3 {
	cosPitch := math.Cos(c.Pitch)
	return mgl64.Vec3{
		c.Distance * cosPitch * math.Cos(c.Yaw),
		c.Distance * math.Sin(c.Pitch),
		c.Distance * cosPitch * math.Sin(c.Yaw),
	}
}

// View returns the view matrix looking at the origin, Y up.
func (c *OrbitCamera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position(), mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
}

// Projection returns the perspective projection matrix.
func (c *OrbitCamera) Projection() mgl64.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// Ray returns the world ray through NDC x, y.
func (c *OrbitCamera) Ray(x, y float64) (picking.Ray, bool) {
	return picking.RayFromNDC(x, y, c.View(), c.Projection())
}

// Rotate adds to yaw and pitch. Pitch is clamped to ±1.5 rad.
func (c *OrbitCamera) Rotate(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = core.Clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// Zoom scales the distance, as a scroll wheel does: factor < 1 moves closer.
func (c *OrbitCamera) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	d := c.Distance * factor
	if c.MinDistance > 0 {
		d = math.Max(d, c.MinDistance)
	}
	if c.MaxDistance > 0 {
		d = math.Min(d, c.MaxDistance)
	}
	c.Distance = d
}

// Tick advances autorotation by dt seconds.
func (c *OrbitCamera) Tick(dt float64) {
	if c.AutoRotate {
		c.Rotate(c.AutoRotateSpeed*dt, 0)
	}
}

// LookAt turns the camera to face lat/lon, keeping its distance.
func (c *OrbitCamera) LookAt(lat, lon float64) {
	c.Yaw = core.DegreesToRadians(lon)
	c.Pitch = core.Clamp(core.DegreesToRadians(lat), -maxPitch, maxPitch)
}
