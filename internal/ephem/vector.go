package ephem

import (
	"math"

	"github.com/soniakeys/unit"
)

// AUKm is the Astronomical Unit in kilometers.
const AUKm = 149597870.7

// lightDaysPerAU is the one-way light time across 1 AU, in days.
const lightDaysPerAU = 499.004784 / 86400

// Vec3 is a rectangular vector in AU, in whatever frame the caller uses.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns the sum of two vectors.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{X: v.X + u.X, Y: v.Y + u.Y, Z: v.Z + u.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{X: v.X - u.X, Y: v.Y - u.Y, Z: v.Z - u.Z}
}

// Spherical returns longitude, latitude and radius. For an equatorial
// vector these are right ascension, declination and distance.
func (v Vec3) Spherical() (lon, lat unit.Angle, r float64) {
	r = v.Norm()
	if r == 0 {
		return 0, 0, 0
	}
	lon = unit.Angle(math.Atan2(v.Y, v.X)).Mod1()
	lat = unit.Angle(math.Asin(v.Z / r))
	return lon, lat, r
}

// vecFromSpherical builds a rectangular vector from longitude, latitude and
// radius.
func vecFromSpherical(lon, lat unit.Angle, r float64) Vec3 {
	sl, cl := lon.Sincos()
	sb, cb := lat.Sincos()
	return Vec3{X: r * cb * cl, Y: r * cb * sl, Z: r * sb}
}

// LightTimeDays returns the one-way light time for a distance in AU.
func LightTimeDays(au float64) float64 {
	return au * lightDaysPerAU
}
