package main

import (
	"math"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"windglobe/selection"
	"windglobe/wind"
)

// leafSize is the drawn size of the leaf in globe radii.
const leafSize = 0.02

type glyphLine struct {
	start, end rl.Vector3
	color      rl.Color
}

type polyline struct {
	points []rl.Vector3
	colors []rl.Color
}

// globeRenderer draws the scene with raylib. It must be used on the thread
// that owns the window.
type globeRenderer struct {
	glyphOpacity float64
	leafColor    rl.Color

	level  int
	glyphs []glyphLine

	nextID int
	lines  map[int]*polyline

	leafModel rl.Model
	modelOK   bool
	leaf      *leaf
}

func newGlobeRenderer(glyphOpacity float64) *globeRenderer {
	return &globeRenderer{
		glyphOpacity: glyphOpacity,
		leafColor:    rl.NewColor(214, 140, 50, 255),
		lines:        make(map[int]*polyline),
	}
}

// loadLeaf loads the leaf model from path, or builds a flat quad when path
// is empty. A missing file leaves the particle not ready.
func (r *globeRenderer) loadLeaf(path string) error {
	if path == "" {
		mesh := rl.GenMeshPlane(1, 0.5, 1, 1)
		r.leafModel = rl.LoadModelFromMesh(mesh)
		r.modelOK = true
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	r.leafModel = rl.LoadModel(path)
	r.modelOK = r.leafModel.MeshCount > 0
	return nil
}

func (r *globeRenderer) unload() {
	if r.modelOK {
		rl.UnloadModel(r.leafModel)
		r.modelOK = false
	}
}

func (r *globeRenderer) ParticleReady() bool { return r.modelOK }

func (r *globeRenderer) ShowGlyphs(level int, field *wind.GlyphField) {
	r.level = level
	r.glyphs = r.glyphs[:0]
	for _, g := range field.Glyphs {
		r.glyphs = append(r.glyphs, glyphLine{
			start: toRL(g.Position),
			end:   toRL(g.Tip()),
			color: toColor(g.Color, r.glyphOpacity),
		})
	}
}

func (r *globeRenderer) ShowStreamline(s *wind.Streamline, colors wind.Palette) selection.Handle {
	if len(colors) == 0 {
		colors = wind.DefaultPalette()
	}
	line := &polyline{
		points: make([]rl.Vector3, len(s.Points)),
		colors: make([]rl.Color, len(s.Points)),
	}
	for k, p := range s.Points {
		line.points[k] = toRL(p.Position)
		line.colors[k] = toColor(colors.At(s.Normalized[k]), 1)
	}
	r.nextID++
	id := r.nextID
	r.lines[id] = line
	return releaseFunc(func() { delete(r.lines, id) })
}

func (r *globeRenderer) SpawnParticle() selection.Particle {
	l := &leaf{r: r, opacity: 1, forward: mgl64.Vec3{1, 0, 0}}
	r.leaf = l
	return l
}

// draw renders inside BeginMode3D.
func (r *globeRenderer) draw(radius float64) {
	rl.DrawSphere(rl.Vector3{}, float32(radius), rl.NewColor(18, 32, 58, 255))
	rl.DrawSphereWires(rl.Vector3{}, float32(radius*1.001), 18, 36, rl.Fade(rl.SkyBlue, 0.15))

	for _, g := range r.glyphs {
		rl.DrawLine3D(g.start, g.end, g.color)
	}
	for _, line := range r.lines {
		for k := 1; k < len(line.points); k++ {
			rl.DrawLine3D(line.points[k-1], line.points[k], line.colors[k])
		}
	}
	if l := r.leaf; l != nil && r.modelOK {
		axis, angle := rotationTo(l.forward)
		s := float32(leafSize * radius)
		rl.DrawModelEx(r.leafModel, toRL(l.position), axis, angle, rl.NewVector3(s, s, s), rl.Fade(r.leafColor, float32(l.opacity)))
	}
}

type releaseFunc func()

func (f releaseFunc) Release() { f() }

type leaf struct {
	r                 *globeRenderer
	position, forward mgl64.Vec3
	opacity           float64
}

func (l *leaf) SetTransform(position, forward mgl64.Vec3) {
	l.position = position
	if forward.Len() > 0 {
		l.forward = forward.Normalize()
	}
}

func (l *leaf) SetOpacity(opacity float64) { l.opacity = opacity }

func (l *leaf) Release() {
	if l.r.leaf == l {
		l.r.leaf = nil
	}
}

// rotationTo returns the axis and angle in degrees turning +X onto dir.
func rotationTo(dir mgl64.Vec3) (rl.Vector3, float32) {
	x := mgl64.Vec3{1, 0, 0}
	axis := x.Cross(dir)
	if axis.Len() < 1e-9 {
		if dir.X() < 0 {
			return rl.NewVector3(0, 1, 0), 180
		}
		return rl.NewVector3(0, 1, 0), 0
	}
	angle := math.Acos(mgl64.Clamp(x.Dot(dir), -1, 1))
	return toRL(axis.Normalize()), float32(mgl64.RadToDeg(angle))
}

func toRL(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}

func toColor(c colorful.Color, alpha float64) rl.Color {
	r, g, b := c.Clamped().RGB255()
	return rl.NewColor(r, g, b, uint8(math.Round(255*mgl64.Clamp(alpha, 0, 1))))
}
