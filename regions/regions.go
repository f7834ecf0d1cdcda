// Package regions resolves a globe position into the descriptor shown next to
// a selected glyph: hemisphere, climate zone, longitude sector, a short
// narrative line and any named landmarks containing the point.
package regions

import (
	"fmt"
	"math"

	"windglobe/core"
)

// Descriptor is the narrative context of one position.
type Descriptor struct {
	Hemisphere string   `json:"hemisphere,omitempty"`
	Zone       string   `json:"zone,omitempty"`
	Sector     string   `json:"sector,omitempty"`
	Narrative  string   `json:"narrative,omitempty"`
	Landmarks  []string `json:"landmarks"`
}

// Describer resolves positions into descriptors.
type Describer interface {
	Describe(lat, lon float64) Descriptor
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(lat, lon float64) Descriptor

// Describe calls f.
func (f DescriberFunc) Describe(lat, lon float64) Descriptor {
	return f(lat, lon)
}

// Latitude limits of the climate zones, in degrees from the equator.
const (
	TropicLat    = 23.44
	SubtropicLat = 35
	MidLat       = 60
	ArcticLat    = 66.56
)

// SectorWidth is the longitude span of one sector, in degrees.
const SectorWidth = 45

// Classify describes a position from its coordinates alone. Landmarks is
// empty, never nil.
func Classify(lat, lon float64) Descriptor {
	lat = core.Clamp(lat, -90, 90)
	lon = core.WrapLongitude(lon)

	d := Descriptor{
		Hemisphere: hemisphere(lat),
		Zone:       zone(lat),
		Sector:     sector(lon),
		Landmarks:  []string{},
	}
	d.Narrative = fmt.Sprintf("%s hemisphere, %s, %s", d.Hemisphere, d.Zone, d.Sector)
	return d
}

func hemisphere(lat float64) string {
	if lat < 0 {
		return "Southern"
	}
	return "Northern"
}

func zone(lat float64) string {
	a := math.Abs(lat)
	switch {
	case a < TropicLat:
		return "tropics"
	case a < SubtropicLat:
		return "subtropics"
	case a < MidLat:
		return "mid-latitudes"
	case a < ArcticLat:
		return "subpolar"
	}
	return "polar"
}

// sector labels the SectorWidth wide longitude band containing lon.
func sector(lon float64) string {
	k := math.Floor((lon + 180) / SectorWidth)
	from := -180 + k*SectorWidth
	return fmt.Sprintf("%s to %s", lonLabel(from), lonLabel(from+SectorWidth))
}

func lonLabel(lon float64) string {
	switch {
	case lon == 0 || lon == 180 || lon == -180:
		return fmt.Sprintf("%.0f°", math.Abs(lon))
	case lon < 0:
		return fmt.Sprintf("%.0f°W", -lon)
	}
	return fmt.Sprintf("%.0f°E", lon)
}
