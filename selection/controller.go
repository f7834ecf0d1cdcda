// Package selection owns the selected glyph and its animated leaf: it builds
// the streamline for a pick, moves the leaf along it on every tick and tells
// observers where the leaf is.
package selection

import (
	"errors"
	"log/slog"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"windglobe/core"
	"windglobe/regions"
	"windglobe/wind"
)

// ErrNotReady is returned by Select while the host cannot spawn particles yet.
var ErrNotReady = errors.New("selection: particle asset not ready")

// State of the controller.
type State int

const (
	Idle State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "idle"
}

// Handle is a host resource that must be released exactly once.
type Handle interface {
	Release()
}

// Particle is the animated leaf.
type Particle interface {
	Handle
	SetTransform(position, forward mgl64.Vec3)
	SetOpacity(opacity float64)
}

// Host is the scene side of the controller: it draws streamlines, spawns
// particles and runs the ambient globe rotation.
type Host interface {
	ParticleReady() bool
	ShowStreamline(s *wind.Streamline, colors wind.Palette) Handle
	SpawnParticle() Particle
	SetAutoRotate(on bool)
}

// AnimationOptions controls the leaf animation.
type AnimationOptions struct {
	Duration      float64 // seconds per traversal
	Loop          bool
	FadeStart     float64 // fraction of the traversal where fading starts when not looping
	BobAmplitude  float64 // radial offset, globe units
	BobFrequency  float64 // Hz
	SwayAmplitude float64 // sideways offset, globe units
	SwayFrequency float64 // Hz
}

// Layer is what the controller needs from the current wind level.
type Layer struct {
	Level   string
	Tracer  *wind.Tracer
	Palette wind.Palette
}

// SelectionState is the glyph and streamline of the current selection.
// ActiveStreamline is nil when no path could be built from the glyph.
type SelectionState struct {
	ActiveGlyph      *wind.Glyph
	ActiveStreamline *wind.Streamline
	Clock            float64
}

// Controller is the Idle/Selected state machine. It is not safe for
// concurrent use; the scene host drives it from its frame loop.
type Controller struct {
	host      Host
	opts      AnimationOptions
	describer regions.Describer
	log       *slog.Logger

	layer     Layer
	state     SelectionState
	line      Handle
	particle  Particle
	observers []subscription
	nextID    int
	last      *Event
}

// New returns an idle controller. A nil describer classifies positions by
// coordinates only.
func New(host Host, opts AnimationOptions, describer regions.Describer, logger *slog.Logger) *Controller {
	if describer == nil {
		describer = regions.DescriberFunc(regions.Classify)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Duration <= 0 {
		opts.Duration = 5
	}
	return &Controller{
		host:      host,
		opts:      opts,
		describer: describer,
		log:       logger,
	}
}

type subscription struct {
	id int
	o  Observer
}

// Subscribe registers an observer and returns the function removing it.
// Observers are notified in subscription order.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	id := c.nextID
	c.nextID++
	c.observers = append(c.observers, subscription{id: id, o: o})
	return func() {
		c.observers = slices.DeleteFunc(c.observers, func(s subscription) bool { return s.id == id })
	}
}

// State returns Idle or Selected.
func (c *Controller) State() State {
	if c.state.ActiveGlyph == nil {
		return Idle
	}
	return Selected
}

// Selection returns a copy of the current selection state.
func (c *Controller) Selection() SelectionState {
	return c.state
}

// Location returns the last reported location, if any.
func (c *Controller) Location() (Event, bool) {
	if c.last == nil {
		return Event{}, false
	}
	return *c.last, true
}

// SetLayer switches to a new wind level. Any selection made against the old
// level is cleared first, releasing its streamline and particle.
func (c *Controller) SetLayer(l Layer) {
	if c.State() == Selected {
		c.Deselect()
	}
	c.layer = l
}

// Select makes g the active glyph. The previous streamline and particle are
// released before the new ones are created. When the host has no particle
// asset yet the call returns ErrNotReady and nothing changes. A glyph from
// which no streamline can be traced is still selected and reported, without
// animation.
func (c *Controller) Select(g wind.Glyph) error {
	if !c.host.ParticleReady() {
		c.log.Warn("pick ignored, particle asset not ready", "lat", g.Lat, "lon", g.Lon)
		return ErrNotReady
	}

	c.host.SetAutoRotate(false)
	c.release()
	c.state = SelectionState{ActiveGlyph: &g}

	if c.layer.Tracer != nil {
		s, err := c.layer.Tracer.Trace(g.Lat, g.Lon)
		switch {
		case err != nil:
			c.log.Warn("no streamline from glyph", "lat", g.Lat, "lon", g.Lon, "err", err)
		default:
			c.state.ActiveStreamline = s
			c.line = c.host.ShowStreamline(s, c.layer.Palette)
			c.particle = c.host.SpawnParticle()
			c.log.Debug("streamline built", "lat", g.Lat, "lon", g.Lon, "points", len(s.Points), "stop", s.Stop)
		}
	}

	if c.particle != nil {
		c.placeParticle()
	}
	c.emit(Event{
		Lat:             g.Lat,
		Lon:             core.WrapLongitude(g.Lon),
		Speed:           g.Speed,
		NormalizedSpeed: g.Normalized,
		Color:           g.Color.Hex(),
	})
	return nil
}

// Deselect clears the selection, resumes ambient rotation and notifies
// observers. It always notifies, even when nothing was selected.
func (c *Controller) Deselect() {
	c.release()
	c.state = SelectionState{}
	c.last = nil
	c.host.SetAutoRotate(true)
	for _, s := range c.observers {
		s.o.SelectionCleared()
	}
}

// Tick advances the leaf animation by dt seconds.
func (c *Controller) Tick(dt float64) {
	s := c.state.ActiveStreamline
	if s == nil || c.particle == nil {
		return
	}
	c.state.Clock += dt

	t := c.progress()
	pos := s.Curve.PointAt(t)
	speed := s.Curve.SpeedAt(t)
	norm := c.layer.Tracer.Normalizer.Normalize(speed)
	palette := c.layer.Palette
	if len(palette) == 0 {
		palette = wind.DefaultPalette()
	}
	color := palette.At(norm)

	c.placeParticle()
	loc := core.FromCartesian(pos)
	c.emit(Event{
		Lat:             loc.Lat,
		Lon:             loc.Lon,
		Speed:           speed,
		NormalizedSpeed: norm,
		Color:           color.Hex(),
	})
}

// progress returns the curve parameter for the current clock, in [0, 1).
// Without looping it holds at 1 once the first traversal is over.
func (c *Controller) progress() float64 {
	if !c.opts.Loop && c.state.Clock >= c.opts.Duration {
		return 1
	}
	return math.Mod(c.state.Clock, c.opts.Duration) / c.opts.Duration
}

// Opacity returns the leaf opacity at curve parameter t.
func (c *Controller) Opacity(t float64) float64 {
	if c.opts.Loop || t <= c.opts.FadeStart {
		return 1
	}
	if t >= 1 {
		return 0
	}
	return core.Clamp(1-(t-c.opts.FadeStart)/(1-c.opts.FadeStart), 0, 1)
}

// placeParticle moves the particle to the current clock. Bob and sway offset
// only the drawn position.
func (c *Controller) placeParticle() {
	curve := c.state.ActiveStreamline.Curve
	t := c.progress()
	pos := curve.PointAt(t)
	forward := curve.TangentAt(t)

	up := pos
	if up.Len() > 0 {
		up = up.Normalize()
	}
	side := forward.Cross(up)
	if side.Len() > 0 {
		side = side.Normalize()
	}

	clock := c.state.Clock
	bob := c.opts.BobAmplitude * math.Sin(2*math.Pi*c.opts.BobFrequency*clock)
	sway := c.opts.SwayAmplitude * math.Sin(2*math.Pi*c.opts.SwayFrequency*clock)
	drawn := pos.Add(up.Mul(bob)).Add(side.Mul(sway))

	c.particle.SetTransform(drawn, forward)
	c.particle.SetOpacity(c.Opacity(t))
}

func (c *Controller) emit(e Event) {
	e.Level = c.layer.Level
	e.Descriptor = c.describer.Describe(e.Lat, e.Lon)
	c.last = &e
	for _, s := range c.observers {
		s.o.LocationChanged(e)
	}
}

// release frees the streamline and particle of the current selection.
func (c *Controller) release() {
	if c.particle != nil {
		c.particle.Release()
		c.particle = nil
	}
	if c.line != nil {
		c.line.Release()
		c.line = nil
	}
}
