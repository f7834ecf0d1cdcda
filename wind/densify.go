package wind

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"windglobe/core"
)

// Densify subdivides every segment of a polyline on the sphere so that no
// piece spans more than maxAngle radians as seen from the globe center.
// Positions and speeds are interpolated linearly. The first and last input
// points are kept exactly and the output is never shorter than the input.
// speeds must be aligned with points; a missing speed is taken as 0.
func Densify(points []mgl64.Vec3, speeds []float64, maxAngle float64) ([]mgl64.Vec3, []float64) {
	if len(points) < 2 {
		return append([]mgl64.Vec3(nil), points...), alignSpeeds(speeds, len(points))
	}
	speeds = alignSpeeds(speeds, len(points))

	densePoints := []mgl64.Vec3{points[0]}
	denseSpeeds := []float64{speeds[0]}
	for k := 1; k < len(points); k++ {
		a, b := points[k-1], points[k]
		sa, sb := speeds[k-1], speeds[k]

		steps := 1
		if maxAngle > 0 {
			steps = int(math.Ceil(core.AngleBetween(a, b) / maxAngle))
			if steps < 1 {
				steps = 1
			}
		}

		for s := 1; s < steps; s++ {
			t := float64(s) / float64(steps)
			densePoints = append(densePoints, a.Add(b.Sub(a).Mul(t)))
			denseSpeeds = append(denseSpeeds, sa+(sb-sa)*t)
		}
		densePoints = append(densePoints, b)
		denseSpeeds = append(denseSpeeds, sb)
	}
	return densePoints, denseSpeeds
}

func alignSpeeds(speeds []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, speeds)
	return out
}
