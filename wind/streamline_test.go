package wind

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func globalGrid(t *testing.T, fn func(lat, lon float64) (float64, float64)) *Grid {
	t.Helper()
	return makeGrid(t, axis(-90, 90, 5), axis(-180, 175, 5), fn)
}

var testOpts = IntegrateOptions{MaxSteps: 200, StepSize: 0.1, StepScale: 0.3, MinSpeed: 1, Radius: 1}

func TestIntegrateCalmSeed(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) { return 0.5, 0 })
	path, err := Integrate(g, 10, 10, testOpts)
	assert.ErrorIs(t, err, ErrShortPath)
	assert.Empty(t, path.Points)
	assert.Equal(t, StopCalm, path.Stop)

	tracer := &Tracer{Field: g, Options: testOpts, MaxAngle: 0.01}
	s, err := tracer.Trace(10, 10)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrShortPath)
}

func TestIntegrateEastwardSteps(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) { return 10, 0 })
	path, err := Integrate(g, 20, 0, IntegrateOptions{MaxSteps: 5, StepSize: 0.1, StepScale: 0.3, MinSpeed: 1})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, StopMaxSteps, path.Stop)
	assert.Len(t, path.Points, 5)
	for k, p := range path.Points {
		assert.InDelta(t, 20, p.Lat, 1e-12)
		assert.InDelta(t, 0.3*float64(k), p.Lon, 1e-9)
		assert.InDelta(t, 10, path.Speeds[k], 1e-9)
	}
}

func TestIntegrateDeterministic(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) {
		return 15 * math.Cos(lat*math.Pi/90), 6 * math.Sin(lon*math.Pi/60)
	})
	a, errA := Integrate(g, -12.5, 33.3, testOpts)
	b, errB := Integrate(g, -12.5, 33.3, testOpts)
	assert.NoError(t, errA)
	assert.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestIntegrateLongitudeRollover(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) { return 20, 0 })
	path, err := Integrate(g, 0, 178, IntegrateOptions{MaxSteps: 10, StepSize: 1, StepScale: 0.3, MinSpeed: 1})
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, path.Points, 10)
	for _, p := range path.Points {
		assert.GreaterOrEqual(t, p.Lon, -180.0)
		assert.LessOrEqual(t, p.Lon, 180.0)
	}
	assert.Less(t, path.Points[len(path.Points)-1].Lon, 0.0, "crossed the antimeridian")
}

func TestIntegrateStopsAtPole(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) { return 0, 30 })
	path, err := Integrate(g, 80, 0, IntegrateOptions{MaxSteps: 1000, StepSize: 1, StepScale: 0.3, MinSpeed: 1})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, StopOutOfBounds, path.Stop)
	for _, p := range path.Points {
		assert.LessOrEqual(t, p.Lat, 90.0)
	}
	assert.Less(t, len(path.Points), 1000)
}

func TestIntegrateStopsOnMissing(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) {
		if lon >= 30 {
			return math.NaN(), 0
		}
		return 10, 0
	})
	path, err := Integrate(g, 0, 0, IntegrateOptions{MaxSteps: 1000, StepSize: 1, StepScale: 0.3, MinSpeed: 1})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, StopMissing, path.Stop)
	last := path.Points[len(path.Points)-1]
	assert.Less(t, last.Lon, 25.0, "must not step into a cell touching missing data")
}

func TestTraceDensifiesAndNormalizes(t *testing.T) {
	g := globalGrid(t, func(lat, lon float64) (float64, float64) { return 10 + lon/10, 0 })
	tracer := &Tracer{
		Field:      g,
		Options:    IntegrateOptions{MaxSteps: 20, StepSize: 1, StepScale: 0.3, MinSpeed: 1, Radius: 1},
		Normalizer: Normalizer{Low: 10, High: 15},
		MaxAngle:   0.2 * math.Pi / 180,
	}
	s, err := tracer.Trace(0, 0)
	if !assert.NoError(t, err) {
		return
	}

	raw, _ := Integrate(g, 0, 0, tracer.Options)
	assert.Greater(t, len(s.Points), len(raw.Points))
	assert.Equal(t, raw.Points[0], s.Points[0])
	assert.Equal(t, raw.Points[len(raw.Points)-1], s.Points[len(s.Points)-1])
	assert.Len(t, s.Speeds, len(s.Points))
	assert.Len(t, s.Normalized, len(s.Points))
	for _, n := range s.Normalized {
		assert.GreaterOrEqual(t, n, 0.0)
		assert.LessOrEqual(t, n, 1.0)
	}
	assert.InDelta(t, 0, s.Curve.PointAt(0).Sub(raw.Points[0].Position).Len(), 1e-12)
}
