package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Geographic represents a position on the globe in degrees
type Geographic struct {
	Lat float64 // Latitude in degrees [-90, 90], positive = north
	Lon float64 // Longitude in degrees [-180, 180), positive = east
}

// Origin at globe center, Y points to north pole, X to 0° longitude at the
// equator and Z to 90°E at the equator.

// DegreesToRadians converts degrees to radians
func DegreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// RadiansToDegrees converts radians to degrees
func RadiansToDegrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// ToCartesian converts a lat/lon pair in degrees to a point at the given radius.
func ToCartesian(lat, lon, radius float64) mgl64.Vec3 {
	latRad := DegreesToRadians(lat)
	lonRad := DegreesToRadians(lon)
	cosLat := math.Cos(latRad)

	return mgl64.Vec3{
		radius * cosLat * math.Cos(lonRad),
		radius * math.Sin(latRad),
		radius * cosLat * math.Sin(lonRad),
	}
}

// FromCartesian converts a point to geographic coordinates. The radius of the
// point does not matter. The origin maps to 0°, 0°.
func FromCartesian(p mgl64.Vec3) Geographic {
	r := p.Len()
	if r < 1e-12 {
		return Geographic{}
	}

	return Geographic{
		Lat: RadiansToDegrees(math.Asin(Clamp(p[1]/r, -1, 1))),
		Lon: RadiansToDegrees(math.Atan2(p[2], p[0])),
	}
}

// EastNorth returns the local unit east and north vectors at lat/lon.
func EastNorth(lat, lon float64) (east, north mgl64.Vec3) {
	sinLat, cosLat := math.Sincos(DegreesToRadians(lat))
	sinLon, cosLon := math.Sincos(DegreesToRadians(lon))

	east = mgl64.Vec3{-sinLon, 0, cosLon}
	north = mgl64.Vec3{-sinLat * cosLon, cosLat, -sinLat * sinLon}
	return east, north
}

// TangentDirection converts an eastward/northward vector at lat/lon into a unit
// tangent on the sphere. ok is false for a zero-length or non-finite vector.
func TangentDirection(lat, lon, u, v float64) (dir mgl64.Vec3, ok bool) {
	east, north := EastNorth(lat, lon)
	d := east.Mul(u).Add(north.Mul(v))
	l := d.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}, false
	}
	return d.Mul(1 / l), true
}

// AngleBetween returns the angle in radians between the directions from the
// globe center to a and b. Zero-length inputs give 0.
func AngleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	angle := math.Acos(Clamp(a.Dot(b)/(la*lb), -1, 1))
	if math.IsNaN(angle) {
		return 0
	}
	return angle
}

// WrapLongitude brings a longitude in degrees into [-180, 180).
func WrapLongitude(lon float64) float64 {
	for lon < -180.0 {
		lon += 360.0
	}
	for lon >= 180.0 {
		lon -= 360.0
	}
	return lon
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
