package wind

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/ojrac/opensimplex-go"

	"windglobe/core"
)

// GlyphOptions controls glyph seeding over a grid.
type GlyphOptions struct {
	Stride         int     // latitude row step, in grid rows
	PoleStrideMul  float64 // extra longitude thinning towards the poles
	Jitter         float64 // visual offset as a fraction of the glyph cell
	SpeedThreshold float64 // samples slower than this are skipped
	LowPercentile  float64
	HighPercentile float64
	MinLength      float64 // glyph length at normalized speed 0
	MaxLength      float64 // glyph length at normalized speed 1
	Radius         float64 // globe radius for positions
	Seed           int64   // jitter noise seed
}

// Glyph is one sampled vector of a glyph field.
type Glyph struct {
	Position   mgl64.Vec3 // rendered, jittered position
	Anchor     mgl64.Vec3 // grid-aligned position used for picking
	Lat, Lon   float64    // grid-aligned coordinates
	U, V       float64
	Speed      float64
	Normalized float64
	Direction  mgl64.Vec3 // unit tangent at Position
	Length     float64
	Color      colorful.Color
	Row, Col   int
}

// Tip returns the end point of the glyph segment.
func (g Glyph) Tip() mgl64.Vec3 {
	return g.Position.Add(g.Direction.Mul(g.Length))
}

// GlyphField is the glyph set built for one grid.
type GlyphField struct {
	Glyphs     []Glyph
	Normalizer Normalizer
	Palette    Palette
}

// BuildGlyphs seeds a sparse glyph set over g. Rows are taken every Stride
// rows; within a row the longitude step grows towards the poles as
// round(Stride * (1 + PoleStrideMul * (1 - cos(lat)))) and alternate rows are
// shifted by half a step. Missing and slow samples are skipped. Length and
// color come from percentile normalization over every finite speed in g.
func BuildGlyphs(g *Grid, opts GlyphOptions, palette Palette) *GlyphField {
	stride := opts.Stride
	if stride < 1 {
		stride = 1
	}
	radius := opts.Radius
	if radius == 0 {
		radius = 1
	}
	if len(palette) == 0 {
		palette = DefaultPalette()
	}

	field := &GlyphField{
		Normalizer: NewNormalizer(g.Speeds(), opts.LowPercentile, opts.HighPercentile),
		Palette:    palette,
	}
	noise := opensimplex.New(opts.Seed)

	for row, j := 0, 0; j < g.Rows(); row, j = row+1, j+stride {
		lat := g.Lats[j]
		lonStep := int(math.Round(float64(stride) * (1 + opts.PoleStrideMul*(1-math.Cos(core.DegreesToRadians(lat))))))
		if lonStep < 1 {
			lonStep = 1
		}
		offset := 0
		if row%2 == 1 {
			offset = lonStep / 2
		}

		latCell := float64(stride) * axisSpacing(g.Lats, j)
		for i := offset; i < g.Cols(); i += lonStep {
			u, v, ok := g.At(j, i)
			if !ok {
				continue
			}
			speed := math.Hypot(u, v)
			if speed < opts.SpeedThreshold {
				continue
			}

			lon := g.Lons[i]
			lonCell := float64(lonStep) * axisSpacing(g.Lons, i)
			jLat := core.Clamp(lat+0.5*opts.Jitter*latCell*unitNoise(noise, j, i, 0), -90, 90)
			jLon := core.WrapLongitude(lon + 0.5*opts.Jitter*lonCell*unitNoise(noise, j, i, 1))

			dir, ok := core.TangentDirection(jLat, jLon, u, v)
			if !ok {
				continue
			}

			norm := field.Normalizer.Normalize(speed)
			field.Glyphs = append(field.Glyphs, Glyph{
				Position:   core.ToCartesian(jLat, jLon, radius),
				Anchor:     core.ToCartesian(lat, lon, radius),
				Lat:        lat,
				Lon:        lon,
				U:          u,
				V:          v,
				Speed:      speed,
				Normalized: norm,
				Direction:  dir,
				Length:     opts.MinLength + norm*(opts.MaxLength-opts.MinLength),
				Color:      palette.At(norm),
				Row:        j,
				Col:        i,
			})
		}
	}
	return field
}

// axisSpacing returns the absolute spacing of axis around index k.
func axisSpacing(axis []float64, k int) float64 {
	if k+1 < len(axis) {
		return math.Abs(axis[k+1] - axis[k])
	}
	return math.Abs(axis[k] - axis[k-1])
}

// unitNoise returns deterministic noise in [-1, 1] for a grid cell and channel.
func unitNoise(n opensimplex.Noise, j, i, channel int) float64 {
	x := float64(i)*0.731 + float64(channel)*101.3
	y := float64(j)*0.593 - float64(channel)*57.1
	return core.Clamp(n.Eval2(x, y), -1, 1)
}
