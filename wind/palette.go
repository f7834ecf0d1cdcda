package wind

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"windglobe/core"
)

// DefaultPaletteHex runs from calm blue through green and yellow to red.
var DefaultPaletteHex = []string{"#2c7bb6", "#00a6ca", "#00ccbc", "#90eb9d", "#f9d057", "#f29e2e", "#d7191c"}

// Palette maps a normalized speed to a color by blending evenly spaced stops
// in HCL space.
type Palette []colorful.Color

// ParsePalette builds a palette from hex stops.
func ParsePalette(hex []string) (Palette, error) {
	if len(hex) == 0 {
		return nil, fmt.Errorf("palette needs at least one color")
	}
	p := make(Palette, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette stop %d: %w", i, err)
		}
		p[i] = c
	}
	return p, nil
}

// DefaultPalette returns the built-in palette.
func DefaultPalette() Palette {
	p, err := ParsePalette(DefaultPaletteHex)
	if err != nil {
		panic(err)
	}
	return p
}

// At returns the color for t in [0, 1]; t outside is clamped.
func (p Palette) At(t float64) colorful.Color {
	switch len(p) {
	case 0:
		return colorful.Color{R: 1, G: 1, B: 1}
	case 1:
		return p[0]
	}

	t = core.Clamp(t, 0, 1)
	pos := t * float64(len(p)-1)
	k := int(pos)
	if k >= len(p)-1 {
		return p[len(p)-1]
	}
	return p[k].BlendHcl(p[k+1], pos-float64(k)).Clamped()
}
