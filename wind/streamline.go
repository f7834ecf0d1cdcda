package wind

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"windglobe/core"
)

// ErrShortPath is returned when integration accepts fewer than two points.
var ErrShortPath = errors.New("wind: streamline shorter than two points")

// Termination records why integration stopped.
type Termination int

const (
	StopMaxSteps Termination = iota
	StopMissing
	StopCalm
	StopOutOfBounds
)

func (t Termination) String() string {
	switch t {
	case StopMaxSteps:
		return "max-steps"
	case StopMissing:
		return "missing"
	case StopCalm:
		return "calm"
	case StopOutOfBounds:
		return "out-of-bounds"
	}
	return fmt.Sprintf("Termination(%d)", int(t))
}

// IntegrateOptions controls forward Euler integration. A step moves
// v*StepSize*StepScale degrees north and u*StepSize*StepScale degrees east.
type IntegrateOptions struct {
	MaxSteps  int
	StepSize  float64
	StepScale float64
	MinSpeed  float64
	Radius    float64 // radius used for the 3D positions
}

// PathPoint is one accepted integration sample.
type PathPoint struct {
	Position mgl64.Vec3
	Lat, Lon float64
}

// RawPath is the undensified integration output.
type RawPath struct {
	Points []PathPoint
	Speeds []float64
	Stop   Termination
}

// Integrate traces a streamline forward from the seed. It stops on a missing
// sample, on a speed below MinSpeed (the seed included), when latitude leaves
// [-90, 90] or after MaxSteps points. Longitude rolls over at ±180.
// Fewer than two accepted points returns ErrShortPath together with the
// partial path.
func Integrate(f Field, seedLat, seedLon float64, opts IntegrateOptions) (*RawPath, error) {
	radius := opts.Radius
	if radius == 0 {
		radius = 1
	}
	scale := opts.StepSize * opts.StepScale

	path := &RawPath{Stop: StopMaxSteps}
	lat, lon := seedLat, seedLon
	for step := 0; step < opts.MaxSteps; step++ {
		vec, ok := f.Sample(lat, lon)
		if !ok {
			path.Stop = StopMissing
			break
		}
		speed := vec.Speed()
		if speed < opts.MinSpeed {
			path.Stop = StopCalm
			break
		}

		path.Points = append(path.Points, PathPoint{
			Position: core.ToCartesian(lat, lon, radius),
			Lat:      lat,
			Lon:      lon,
		})
		path.Speeds = append(path.Speeds, speed)

		lat += vec.V * scale
		lon += vec.U * scale
		if lat > 90 || lat < -90 {
			path.Stop = StopOutOfBounds
			break
		}
		if lon > 180 {
			lon -= 360
		} else if lon < -180 {
			lon += 360
		}
	}

	if len(path.Points) < 2 {
		return path, fmt.Errorf("%w: %d points, stopped on %s", ErrShortPath, len(path.Points), path.Stop)
	}
	return path, nil
}

// Streamline is a densified path ready for rendering and animation. Points,
// Speeds and Normalized are aligned by index.
type Streamline struct {
	Points     []PathPoint
	Speeds     []float64
	Normalized []float64
	Curve      *Curve
	Stop       Termination
}

// Tracer builds streamlines over one field with fixed settings.
type Tracer struct {
	Field      Field
	Options    IntegrateOptions
	Normalizer Normalizer
	MaxAngle   float64 // densification limit in radians
}

// Trace integrates from lat/lon and densifies the result.
func (t *Tracer) Trace(lat, lon float64) (*Streamline, error) {
	raw, err := Integrate(t.Field, lat, lon, t.Options)
	if err != nil {
		return nil, err
	}

	positions := make([]mgl64.Vec3, len(raw.Points))
	for k, p := range raw.Points {
		positions[k] = p.Position
	}
	dense, speeds := Densify(positions, raw.Speeds, t.MaxAngle)

	s := &Streamline{
		Points:     make([]PathPoint, len(dense)),
		Speeds:     speeds,
		Normalized: make([]float64, len(dense)),
		Curve:      NewCurve(dense, speeds),
		Stop:       raw.Stop,
	}
	for k, p := range dense {
		g := core.FromCartesian(p)
		s.Points[k] = PathPoint{Position: p, Lat: g.Lat, Lon: g.Lon}
		s.Normalized[k] = t.Normalizer.Normalize(speeds[k])
	}
	// keep the exact integration coordinates at the ends
	s.Points[0] = raw.Points[0]
	s.Points[len(s.Points)-1] = raw.Points[len(raw.Points)-1]
	return s, nil
}
