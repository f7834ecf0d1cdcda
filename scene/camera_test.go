package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"windglobe/core"
)

func TestOrbitCameraPosition(t *testing.T) {
	c := NewOrbitCamera(1, 1, 0.1)
	assert.InDelta(t, 0, c.Position().Sub(mgl64.Vec3{3, 0, 0}).Len(), 1e-12)

	c.LookAt(30, 60)
	assert.InDelta(t, 0, c.Position().Sub(core.ToCartesian(30, 60, 3)).Len(), 1e-12)

	// the view looks at the globe center
	r, ok := c.Ray(0, 0)
	if assert.True(t, ok) {
		toCenter := c.Position().Mul(-1).Normalize()
		assert.InDelta(t, 0, r.Dir.Sub(toCenter).Len(), 1e-9)
	}
}

func TestOrbitCameraRotateClampsPitch(t *testing.T) {
	c := NewOrbitCamera(1, 1, 0)
	c.Rotate(0.5, 3)
	assert.Equal(t, 1.5, c.Pitch)
	c.Rotate(0, -10)
	assert.Equal(t, -1.5, c.Pitch)
	assert.Equal(t, 0.5, c.Yaw)

	c.Rotate(2*math.Pi, 0)
	assert.InDelta(t, 0.5, c.Yaw, 1e-12)
}

func TestOrbitCameraZoom(t *testing.T) {
	c := NewOrbitCamera(1, 1, 0)
	c.Zoom(0.5)
	assert.InDelta(t, 1.5, c.Distance, 1e-12)
	c.Zoom(0.1)
	assert.InDelta(t, 1.2, c.Distance, 1e-12, "never inside the globe")
	c.Zoom(100)
	assert.InDelta(t, 10, c.Distance, 1e-12)
	c.Zoom(-1)
	assert.InDelta(t, 10, c.Distance, 1e-12)
}

func TestOrbitCameraAutoRotate(t *testing.T) {
	c := NewOrbitCamera(1, 1, 0.2)
	c.Tick(2)
	assert.InDelta(t, 0.4, c.Yaw, 1e-12)

	c.AutoRotate = false
	c.Tick(2)
	assert.InDelta(t, 0.4, c.Yaw, 1e-12)
}
