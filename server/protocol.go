package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"windglobe/selection"
	"windglobe/wind"
)

// Command is a client message. Type selects which fields are used:
//
//	click  X, Y (NDC), View, Proj (column-major; omitted -> server camera)
//	level  Level
//	close
//	ready  Particle
type Command struct {
	Type     string    `json:"type"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	View     []float64 `json:"view,omitempty"`
	Proj     []float64 `json:"proj,omitempty"`
	Level    int       `json:"level,omitempty"`
	Particle *bool     `json:"particle,omitempty"`
}

// Message is a server message.
type Message struct {
	Type string `json:"type"`

	Level    *int             `json:"level,omitempty"`
	Glyphs   []GlyphData      `json:"glyphs,omitempty"`
	ID       int              `json:"id,omitempty"`
	Points   [][3]float64     `json:"points,omitempty"`
	Colors   []string         `json:"colors,omitempty"`
	Event    *selection.Event `json:"event,omitempty"`
	Position *[3]float64      `json:"position,omitempty"`
	Forward  *[3]float64      `json:"forward,omitempty"`
	Opacity  *float64         `json:"opacity,omitempty"`
	Error    string           `json:"message,omitempty"`
}

// GlyphData is one glyph as sent to clients.
type GlyphData struct {
	Lat      float64    `json:"lat"`
	Lon      float64    `json:"lon"`
	Position [3]float64 `json:"position"`
	Tip      [3]float64 `json:"tip"`
	Speed    float64    `json:"speed"`
	Norm     float64    `json:"normalizedSpeed"`
	Color    string     `json:"color"`
}

const (
	msgGlyphs     = "glyphs"
	msgStreamline = "streamline"
	msgSelection  = "selection"
	msgCleared    = "cleared"
	msgLeaf       = "leaf"
	msgRelease    = "release"
	msgError      = "error"
)

func vec3(v mgl64.Vec3) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}

// mat4 reads a column-major matrix; ok is false unless there are 16 values.
func mat4(values []float64) (mgl64.Mat4, bool) {
	var m mgl64.Mat4
	if len(values) != 16 {
		return m, false
	}
	copy(m[:], values)
	return m, true
}

func glyphsMessage(level int, field *wind.GlyphField) Message {
	glyphs := make([]GlyphData, len(field.Glyphs))
	for k, g := range field.Glyphs {
		glyphs[k] = GlyphData{
			Lat:      g.Lat,
			Lon:      g.Lon,
			Position: vec3(g.Position),
			Tip:      vec3(g.Tip()),
			Speed:    g.Speed,
			Norm:     g.Normalized,
			Color:    g.Color.Hex(),
		}
	}
	return Message{Type: msgGlyphs, Level: &level, Glyphs: glyphs}
}

func streamlineMessage(id int, s *wind.Streamline, palette wind.Palette) Message {
	if len(palette) == 0 {
		palette = wind.DefaultPalette()
	}
	points := make([][3]float64, len(s.Points))
	colors := make([]string, len(s.Points))
	for k, p := range s.Points {
		points[k] = vec3(p.Position)
		colors[k] = palette.At(s.Normalized[k]).Hex()
	}
	return Message{Type: msgStreamline, ID: id, Points: points, Colors: colors}
}
