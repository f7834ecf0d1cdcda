package regions

import (
	"fmt"
	"os"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Atlas is a set of named areas read from a GeoJSON feature collection.
// Feature properties used: "name" (string), "narrative" (string) and
// "landmarks" (array of strings). Polygon and MultiPolygon geometries are
// supported; other geometries are ignored.
type Atlas struct {
	areas []area
}

type area struct {
	name      string
	narrative string
	landmarks []string
	polygons  []*s2.Polygon
}

// ParseAtlas decodes a GeoJSON feature collection.
func ParseAtlas(data []byte) (*Atlas, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse atlas: %w", err)
	}

	a := &Atlas{}
	for _, feature := range fc.Features {
		if feature.Geometry == nil {
			continue
		}
		var polygons []*s2.Polygon
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, toS2Polygon(g))
		case orb.MultiPolygon:
			for _, p := range g {
				polygons = append(polygons, toS2Polygon(p))
			}
		default:
			continue
		}

		a.areas = append(a.areas, area{
			name:      feature.Properties.MustString("name", ""),
			narrative: feature.Properties.MustString("narrative", ""),
			landmarks: stringList(feature.Properties["landmarks"]),
			polygons:  polygons,
		})
	}
	return a, nil
}

// LoadAtlas reads a GeoJSON atlas file.
func LoadAtlas(path string) (*Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAtlas(data)
}

// Len returns the number of areas.
func (a *Atlas) Len() int {
	return len(a.areas)
}

// Describe classifies the position and adds every area containing it: the
// area name and its landmarks go to Landmarks, the first area narrative
// replaces the generic one.
func (a *Atlas) Describe(lat, lon float64) Descriptor {
	d := Classify(lat, lon)
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))

	narrated := false
	for _, ar := range a.areas {
		if !ar.contains(p) {
			continue
		}
		if ar.name != "" {
			d.Landmarks = append(d.Landmarks, ar.name)
		}
		d.Landmarks = append(d.Landmarks, ar.landmarks...)
		if !narrated && ar.narrative != "" {
			d.Narrative = ar.narrative
			narrated = true
		}
	}
	return d
}

func (ar area) contains(p s2.Point) bool {
	for _, poly := range ar.polygons {
		if poly.ContainsPoint(p) {
			return true
		}
	}
	return false
}

// toS2Polygon converts GeoJSON rings into s2 loops. The closing vertex is
// dropped and every loop is normalized to enclose at most half the sphere,
// so ring winding in the file does not matter.
func toS2Polygon(polygon orb.Polygon) *s2.Polygon {
	loops := make([]*s2.Loop, 0, len(polygon))
	for _, ring := range polygon {
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			continue
		}
		points := make([]s2.Point, len(ring))
		for k, pt := range ring {
			points[k] = s2.PointFromLatLng(s2.LatLngFromDegrees(pt.Lat(), pt.Lon()))
		}
		loop := s2.LoopFromPoints(points)
		loop.Normalize()
		loops = append(loops, loop)
	}
	return s2.PolygonFromLoops(loops)
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
