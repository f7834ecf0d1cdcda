package selection

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windglobe/core"
	"windglobe/wind"
)

type fakeHost struct {
	ready     bool
	rotating  bool
	log       []string
	lines     int
	particles []*fakeParticle
}

type fakeRelease struct {
	host *fakeHost
	name string
}

func (r *fakeRelease) Release() { r.host.log = append(r.host.log, "release "+r.name) }

type fakeParticle struct {
	fakeRelease
	position, forward mgl64.Vec3
	opacity           float64
}

func (p *fakeParticle) SetTransform(position, forward mgl64.Vec3) {
	p.position, p.forward = position, forward
}

func (p *fakeParticle) SetOpacity(o float64) { p.opacity = o }

func (h *fakeHost) ParticleReady() bool { return h.ready }

func (h *fakeHost) ShowStreamline(s *wind.Streamline, colors wind.Palette) Handle {
	h.lines++
	name := fmt.Sprintf("line%d", h.lines)
	h.log = append(h.log, "show "+name)
	return &fakeRelease{host: h, name: name}
}

func (h *fakeHost) SpawnParticle() Particle {
	p := &fakeParticle{fakeRelease: fakeRelease{host: h, name: fmt.Sprintf("leaf%d", len(h.particles)+1)}}
	h.particles = append(h.particles, p)
	h.log = append(h.log, "spawn "+p.name)
	return p
}

func (h *fakeHost) SetAutoRotate(on bool) { h.rotating = on }

type recorder struct {
	events  []Event
	cleared int
}

func (r *recorder) LocationChanged(e Event) { r.events = append(r.events, e) }
func (r *recorder) SelectionCleared()       { r.cleared++ }

func uniformLayer(t *testing.T, u, v float64) Layer {
	t.Helper()
	var lats, lons []float64
	for lat := -90.0; lat <= 90; lat += 5 {
		lats = append(lats, lat)
	}
	for lon := -180.0; lon < 180; lon += 5 {
		lons = append(lons, lon)
	}
	us := make([][]float64, len(lats))
	vs := make([][]float64, len(lats))
	for j := range lats {
		us[j] = make([]float64, len(lons))
		vs[j] = make([]float64, len(lons))
		for i := range lons {
			us[j][i], vs[j][i] = u, v
		}
	}
	g, err := wind.NewGrid(lats, lons, us, vs, wind.Meta{Level: json.RawMessage("7")})
	require.NoError(t, err)

	return Layer{
		Level: g.Meta.LevelLabel(),
		Tracer: &wind.Tracer{
			Field:      g,
			Options:    wind.IntegrateOptions{MaxSteps: 50, StepSize: 1, StepScale: 0.3, MinSpeed: 1, Radius: 1},
			Normalizer: wind.Normalizer{Low: 0, High: 20},
			MaxAngle:   core.DegreesToRadians(0.5),
		},
		Palette: wind.DefaultPalette(),
	}
}

var testGlyph = wind.Glyph{Lat: 20, Lon: 0, Speed: 10, Normalized: 0.5, Color: colorful.Color{R: 1}}

func newTestController(t *testing.T, opts AnimationOptions) (*Controller, *fakeHost, *recorder) {
	host := &fakeHost{ready: true, rotating: true}
	c := New(host, opts, nil, nil)
	c.SetLayer(uniformLayer(t, 10, 0))
	rec := &recorder{}
	c.Subscribe(rec)
	return c, host, rec
}

func TestSelectNotReady(t *testing.T) {
	c, host, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	host.ready = false

	assert.ErrorIs(t, c.Select(testGlyph), ErrNotReady)
	assert.Equal(t, Idle, c.State())
	assert.True(t, host.rotating)
	assert.Empty(t, host.log)
	assert.Empty(t, rec.events)
}

func TestSelectBuildsStreamline(t *testing.T) {
	c, host, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})

	require.NoError(t, c.Select(testGlyph))
	assert.Equal(t, Selected, c.State())
	assert.False(t, host.rotating, "ambient rotation suspended")
	assert.Equal(t, []string{"show line1", "spawn leaf1"}, host.log)

	sel := c.Selection()
	require.NotNil(t, sel.ActiveStreamline)
	assert.Equal(t, 20.0, sel.ActiveGlyph.Lat)

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, 20.0, e.Lat)
	assert.Equal(t, 0.0, e.Lon)
	assert.Equal(t, 10.0, e.Speed)
	assert.Equal(t, 0.5, e.NormalizedSpeed)
	assert.Equal(t, "7", e.Level)
	assert.Equal(t, "#ff0000", e.Color)
	assert.Equal(t, "Northern", e.Hemisphere)
	assert.Equal(t, "tropics", e.Zone)

	leaf := host.particles[0]
	assert.InDelta(t, 0, leaf.position.Sub(core.ToCartesian(20, 0, 1)).Len(), 1e-9)
	assert.Equal(t, 1.0, leaf.opacity)
}

func TestReselectReleasesFirst(t *testing.T) {
	c, host, _ := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	require.NoError(t, c.Select(testGlyph))

	other := testGlyph
	other.Lat = -30
	require.NoError(t, c.Select(other))

	assert.Equal(t, []string{
		"show line1", "spawn leaf1",
		"release leaf1", "release line1",
		"show line2", "spawn leaf2",
	}, host.log)
	assert.Equal(t, -30.0, c.Selection().ActiveGlyph.Lat)
}

func TestTickReportsCurveLocation(t *testing.T) {
	c, host, rec := newTestController(t, AnimationOptions{
		Duration:     5,
		Loop:         true,
		BobAmplitude: 0.01,
		BobFrequency: 1,
	})
	require.NoError(t, c.Select(testGlyph))
	curve := c.Selection().ActiveStreamline.Curve

	c.Tick(0.25)
	require.Len(t, rec.events, 2)
	e := rec.events[1]
	assert.InDelta(t, 20, e.Lat, 1e-3, "bob does not move the reported location")
	assert.Greater(t, e.Lon, 0.0)
	assert.Equal(t, "7", e.Level)
	assert.Equal(t, 0.25, c.Selection().Clock)

	onCurve := curve.PointAt(0.05)
	leaf := host.particles[0]
	assert.InDelta(t, onCurve.Len()+0.01, leaf.position.Len(), 1e-9, "leaf bobs above the curve")
	assert.InDelta(t, 0, leaf.forward.Sub(curve.TangentAt(0.05)).Len(), 1e-12)

	loc, ok := c.Location()
	assert.True(t, ok)
	assert.Equal(t, e, loc)
}

func TestTickWrapsClock(t *testing.T) {
	c, host, _ := newTestController(t, AnimationOptions{Duration: 2, Loop: true})
	require.NoError(t, c.Select(testGlyph))

	c.Tick(1)
	mid := host.particles[0].position
	c.Tick(2)
	assert.InDelta(t, 0, host.particles[0].position.Sub(mid).Len(), 1e-12, "t = (clock mod duration) / duration")
}

func TestOpacityFade(t *testing.T) {
	c := New(&fakeHost{}, AnimationOptions{Duration: 5, FadeStart: 0.8}, nil, nil)
	assert.Equal(t, 1.0, c.Opacity(0.5))
	assert.Equal(t, 1.0, c.Opacity(0.8))
	assert.InDelta(t, 0.5, c.Opacity(0.9), 1e-12)
	assert.InDelta(t, 0, c.Opacity(1), 1e-12)

	noFade := New(&fakeHost{}, AnimationOptions{Duration: 5, FadeStart: 1}, nil, nil)
	assert.Equal(t, 1.0, noFade.Opacity(0.99))
	assert.Equal(t, 0.0, noFade.Opacity(1), "gone once the traversal ends")

	looping := New(&fakeHost{}, AnimationOptions{Duration: 5, Loop: true, FadeStart: 0.8}, nil, nil)
	assert.Equal(t, 1.0, looping.Opacity(0.95))
}

func TestTickFadesWithoutLoop(t *testing.T) {
	c, host, _ := newTestController(t, AnimationOptions{Duration: 10, FadeStart: 0.8})
	require.NoError(t, c.Select(testGlyph))
	c.Tick(9)
	assert.InDelta(t, 0.5, host.particles[0].opacity, 1e-9)
}

func TestTickWithoutLoopStaysHiddenAfterTraversal(t *testing.T) {
	c, host, _ := newTestController(t, AnimationOptions{Duration: 10, FadeStart: 0.8})
	require.NoError(t, c.Select(testGlyph))
	curve := c.Selection().ActiveStreamline.Curve
	leaf := host.particles[0]

	c.Tick(9.99)
	assert.Greater(t, leaf.opacity, 0.0)

	for _, dt := range []float64{0.5, 3, 25} {
		c.Tick(dt)
		assert.Equal(t, 0.0, leaf.opacity, "clock %v", c.Selection().Clock)
		assert.InDelta(t, 0, leaf.position.Sub(curve.PointAt(1)).Len(), 1e-12, "held at the end of the curve")
	}
}

func TestDeselect(t *testing.T) {
	c, host, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	require.NoError(t, c.Select(testGlyph))

	c.Deselect()
	assert.Equal(t, Idle, c.State())
	assert.True(t, host.rotating)
	assert.Equal(t, 1, rec.cleared)
	assert.Equal(t, []string{"show line1", "spawn leaf1", "release leaf1", "release line1"}, host.log)
	_, ok := c.Location()
	assert.False(t, ok)

	// deselecting from idle still reports cleared
	c.Deselect()
	assert.Equal(t, 2, rec.cleared)
	assert.Len(t, host.log, 4, "nothing released twice")

	c.Tick(1)
	assert.Len(t, rec.events, 1, "no ticks while idle")
}

func TestSelectWithoutPath(t *testing.T) {
	host := &fakeHost{ready: true, rotating: true}
	c := New(host, AnimationOptions{Duration: 5, Loop: true}, nil, nil)
	c.SetLayer(uniformLayer(t, 0.2, 0)) // below MinSpeed everywhere
	rec := &recorder{}
	c.Subscribe(rec)

	require.NoError(t, c.Select(testGlyph))
	assert.Equal(t, Selected, c.State())
	assert.Nil(t, c.Selection().ActiveStreamline)
	assert.Empty(t, host.log, "no streamline or leaf for a short path")
	assert.Len(t, rec.events, 1, "static glyph info still reported")

	c.Tick(1)
	assert.Len(t, rec.events, 1)
}

func TestSetLayerClearsSelection(t *testing.T) {
	c, host, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	require.NoError(t, c.Select(testGlyph))

	c.SetLayer(uniformLayer(t, 5, 5))
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, rec.cleared)
	assert.Contains(t, host.log, "release leaf1")
	assert.Contains(t, host.log, "release line1")
}

func TestUnsubscribe(t *testing.T) {
	c, _, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	var cleared int
	unsubscribe := c.Subscribe(ObserverFuncs{OnCleared: func() { cleared++ }})

	c.Deselect()
	unsubscribe()
	c.Deselect()
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 2, rec.cleared)
}

func TestEventJSON(t *testing.T) {
	c, _, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	require.NoError(t, c.Select(testGlyph))

	data, err := json.Marshal(rec.events[0])
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"lat", "lon", "speed", "normalizedSpeed", "level", "color", "hemisphere", "zone", "sector", "narrative", "landmarks"} {
		assert.Contains(t, decoded, key)
	}
}

func TestSelectReportsWrappedLongitude(t *testing.T) {
	c, _, rec := newTestController(t, AnimationOptions{Duration: 5, Loop: true})
	east := testGlyph
	east.Lon = 200 // glyph from a [0, 360) grid

	require.NoError(t, c.Select(east))
	c.Tick(0.01)
	require.Len(t, rec.events, 2)
	assert.Equal(t, -160.0, rec.events[0].Lon)
	for _, e := range rec.events {
		assert.GreaterOrEqual(t, e.Lon, -180.0)
		assert.Less(t, e.Lon, 180.0)
	}
	assert.InDelta(t, rec.events[0].Lon, rec.events[1].Lon, 1, "same convention on select and tick")
}

func TestObserversNotifiedInSubscriptionOrder(t *testing.T) {
	c := New(&fakeHost{ready: true}, AnimationOptions{Duration: 5}, nil, nil)
	var order []int
	unsubscribe := make([]func(), 6)
	for k := range unsubscribe {
		unsubscribe[k] = c.Subscribe(ObserverFuncs{OnCleared: func() { order = append(order, k) }})
	}

	c.Deselect()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)

	unsubscribe[2]()
	unsubscribe[4]()
	order = nil
	c.Deselect()
	assert.Equal(t, []int{0, 1, 3, 5}, order)
}
