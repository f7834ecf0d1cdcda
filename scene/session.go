// Package scene ties the wind pipeline to one viewer: it owns the camera, the
// glyph field of the current level with its pick targets, and the selection
// controller, and advances them once per frame.
package scene

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"windglobe/config"
	"windglobe/picking"
	"windglobe/regions"
	"windglobe/selection"
	"windglobe/wind"
)

// LevelSource loads level grids, usually a *wind.Store.
type LevelSource interface {
	Load(ctx context.Context, level int) (*wind.Grid, error)
	Prefetch(ctx context.Context, level, n int)
}

// Renderer draws what the session decides. ShowGlyphs replaces the glyphs of
// the previous level.
type Renderer interface {
	ParticleReady() bool
	ShowGlyphs(level int, field *wind.GlyphField)
	ShowStreamline(s *wind.Streamline, colors wind.Palette) selection.Handle
	SpawnParticle() selection.Particle
}

// Options configures a Session.
type Options struct {
	Settings  config.Settings
	Levels    LevelSource
	Renderer  Renderer
	Describer regions.Describer // nil classifies by coordinates
	Logger    *slog.Logger
	Aspect    float64 // viewport width / height
}

type loadResult struct {
	seq   int
	level int
	grid  *wind.Grid
	err   error
}

// Session is one interactive globe. All methods except RequestLevel's
// background load run on the caller's frame loop and must not be called
// concurrently.
type Session struct {
	Camera *OrbitCamera

	settings config.Settings
	levels   LevelSource
	render   Renderer
	log      *slog.Logger
	ctrl     *selection.Controller

	level   int
	grid    *wind.Grid
	field   *wind.GlyphField
	targets *picking.Targets
	palette wind.Palette

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	seq     int
	pending *loadResult
	onError func(level int, err error)
}

// NewSession returns a session with no level loaded.
func NewSession(o Options) *Session {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Camera:   NewOrbitCamera(o.Settings.Globe.Radius, o.Aspect, o.Settings.Globe.AutoRotateSpeed),
		settings: o.Settings,
		levels:   o.Levels,
		render:   o.Renderer,
		log:      logger,
		level:    -1,
		palette:  o.Settings.Palette(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.ctrl = selection.New(sessionHost{s}, o.Settings.AnimationOptions(), o.Describer, logger)
	return s
}

// sessionHost lets the controller drive the renderer and the camera.
type sessionHost struct{ s *Session }

func (h sessionHost) ParticleReady() bool { return h.s.render.ParticleReady() }

func (h sessionHost) ShowStreamline(st *wind.Streamline, colors wind.Palette) selection.Handle {
	return h.s.render.ShowStreamline(st, colors)
}

func (h sessionHost) SpawnParticle() selection.Particle { return h.s.render.SpawnParticle() }

func (h sessionHost) SetAutoRotate(on bool) { h.s.Camera.AutoRotate = on }

// Subscribe registers a selection observer.
func (s *Session) Subscribe(o selection.Observer) (unsubscribe func()) {
	return s.ctrl.Subscribe(o)
}

// OnLoadError sets a callback for failed background loads, called from Tick.
func (s *Session) OnLoadError(fn func(level int, err error)) {
	s.onError = fn
}

// Controller returns the selection controller.
func (s *Session) Controller() *selection.Controller { return s.ctrl }

// Level returns the current level, -1 before the first one is applied.
func (s *Session) Level() int { return s.level }

// Grid returns the grid of the current level.
func (s *Session) Grid() *wind.Grid { return s.grid }

// Field returns the glyph field of the current level.
func (s *Session) Field() *wind.GlyphField { return s.field }

// Targets returns the pick targets of the current level.
func (s *Session) Targets() *picking.Targets { return s.targets }

// LoadLevel loads a level and applies it immediately. Use it before the frame
// loop starts; during the loop use RequestLevel.
func (s *Session) LoadLevel(ctx context.Context, level int) error {
	g, err := s.levels.Load(ctx, level)
	if err != nil {
		return err
	}
	s.applyLevel(level, g)
	s.prefetch(level)
	return nil
}

// RequestLevel starts loading a level in the background. The new grid is
// swapped in at the start of the next Tick after it arrives; a later request
// supersedes an earlier one still in flight.
func (s *Session) RequestLevel(level int) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		g, err := s.levels.Load(s.ctx, level)
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		if seq == s.seq {
			s.pending = &loadResult{seq: seq, level: level, grid: g, err: err}
		}
		s.mu.Unlock()

		if err == nil {
			s.levels.Prefetch(s.ctx, level, s.settings.Data.Prefetch)
		}
	}()
}

// Wait blocks until background loads and prefetches have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) prefetch(level int) {
	if s.settings.Data.Prefetch < 1 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.levels.Prefetch(s.ctx, level, s.settings.Data.Prefetch)
	}()
}

// Tick advances one frame by dt seconds. A level that finished loading is
// applied first, so nothing in this frame sees the old grid.
func (s *Session) Tick(dt float64) {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		if p.err != nil {
			s.log.Warn("level load failed", "level", p.level, "err", p.err)
			if s.onError != nil {
				s.onError(p.level, p.err)
			}
		} else {
			s.applyLevel(p.level, p.grid)
		}
	}

	s.Camera.Tick(dt)
	s.ctrl.Tick(dt)
}

// applyLevel swaps in a new grid. The selection built on the old grid is
// released before the new glyphs and pick targets exist.
func (s *Session) applyLevel(level int, g *wind.Grid) {
	if s.ctrl.State() == selection.Selected {
		s.ctrl.Deselect()
	}

	field := wind.BuildGlyphs(g, s.settings.GlyphOptions(), s.palette)
	anchors := make([]mgl64.Vec3, len(field.Glyphs))
	for k, gl := range field.Glyphs {
		anchors[k] = gl.Anchor
	}
	pick := s.settings.Picking
	targets := picking.BuildTargets(anchors, pick.HitboxRadius*s.settings.Globe.Radius, pick.AvoidHitboxOverlap)

	label := g.Meta.LevelLabel()
	if label == "" {
		label = strconv.Itoa(level)
	}
	s.ctrl.SetLayer(selection.Layer{
		Level: label,
		Tracer: &wind.Tracer{
			Field:      g,
			Options:    s.settings.IntegrateOptions(),
			Normalizer: field.Normalizer,
			MaxAngle:   s.settings.MaxSegmentAngle(),
		},
		Palette: s.palette,
	})

	s.level, s.grid, s.field, s.targets = level, g, field, targets
	s.render.ShowGlyphs(level, field)
	s.log.Info("level applied", "level", level, "glyphs", len(field.Glyphs), "targets", targets.Len())
}

// Click handles a pointer click at NDC x, y with the session camera.
func (s *Session) Click(x, y float64) error {
	r, ok := s.Camera.Ray(x, y)
	if !ok {
		return errors.New("scene: camera cannot be inverted")
	}
	return s.PickRay(r)
}

// PickRay selects the glyph hit by r, or clears the selection when r hits
// nothing. A click while the leaf asset is loading returns
// selection.ErrNotReady and changes nothing, even on empty space.
func (s *Session) PickRay(r picking.Ray) error {
	if !s.render.ParticleReady() {
		s.log.Warn("click ignored, leaf asset not ready")
		return selection.ErrNotReady
	}
	occluder := 0.0
	if s.settings.Picking.Occlude {
		occluder = s.settings.Globe.Radius
	}
	target, ok := s.targets.Pick(r, occluder)
	if !ok {
		s.ctrl.Deselect()
		return nil
	}
	g := s.field.Glyphs[target.Index]
	s.log.Debug("glyph picked", "lat", g.Lat, "lon", g.Lon, "speed", g.Speed)
	return s.ctrl.Select(g)
}

// Close stops background loads and releases the selection.
func (s *Session) Close() {
	s.cancel()
	s.Wait()
	if s.ctrl.State() == selection.Selected {
		s.ctrl.Deselect()
	}
}
