// Package astro provides astronomical coordinate transformations and sky math.
package astro

import (
	"fmt"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// Angle is an immutable angle. Radians are the canonical value used for all
// math; the degree and hour views are kept exact for whichever unit the angle
// was constructed from, so ByDegree(90).Degrees() is exactly 90.
type Angle struct {
	rad   float64
	deg   float64
	hours float64
}

// ByDegree creates an angle from degrees.
func ByDegree(deg float64) Angle {
	return Angle{
		rad:   unit.AngleFromDeg(deg).Rad(),
		deg:   deg,
		hours: deg / 15,
	}
}

// ByHours creates an angle from hours (1h = 15°).
func ByHours(hours float64) Angle {
	return Angle{
		rad:   unit.HourAngleFromHour(hours).Rad(),
		deg:   hours * 15,
		hours: hours,
	}
}

// ByRadians creates an angle from radians.
func ByRadians(rad float64) Angle {
	a := unit.Angle(rad)
	return Angle{
		rad:   rad,
		deg:   a.Deg(),
		hours: a.HourAngle().Hour(),
	}
}

// Radians returns the angle in radians.
func (a Angle) Radians() float64 { return a.rad }

// Degrees returns the angle in degrees.
func (a Angle) Degrees() float64 { return a.deg }

// Hours returns the angle in hours.
func (a Angle) Hours() float64 { return a.hours }

// ArcMinutes returns the angle in arcminutes.
func (a Angle) ArcMinutes() float64 { return a.deg * 60 }

// ArcSeconds returns the angle in arcseconds.
func (a Angle) ArcSeconds() float64 { return a.deg * 3600 }

// Unit returns the angle as a soniakeys/unit Angle.
func (a Angle) Unit() unit.Angle { return unit.Angle(a.rad) }

func (a Angle) Sin() float64 { return math.Sin(a.rad) }
func (a Angle) Cos() float64 { return math.Cos(a.rad) }
func (a Angle) Tan() float64 { return math.Tan(a.rad) }

// Add returns a+b. The result keeps degree precision when both operands do.
func (a Angle) Add(b Angle) Angle {
	return Angle{rad: a.rad + b.rad, deg: a.deg + b.deg, hours: a.hours + b.hours}
}

// Sub returns a-b.
func (a Angle) Sub(b Angle) Angle {
	return Angle{rad: a.rad - b.rad, deg: a.deg - b.deg, hours: a.hours - b.hours}
}

// Neg returns -a.
func (a Angle) Neg() Angle {
	return Angle{rad: -a.rad, deg: -a.deg, hours: -a.hours}
}

// Mul scales the angle by f.
func (a Angle) Mul(f float64) Angle {
	return Angle{rad: a.rad * f, deg: a.deg * f, hours: a.hours * f}
}

// Abs returns |a|.
func (a Angle) Abs() Angle {
	if a.rad < 0 {
		return a.Neg()
	}
	return a
}

// IsNaN reports whether the angle is undefined.
func (a Angle) IsNaN() bool { return math.IsNaN(a.rad) }

// String formats the angle as sexagesimal degrees.
func (a Angle) String() string {
	return fmt.Sprintf("%v", sexa.FmtAngle(a.Unit()))
}

// Asin returns the angle whose sine is x.
func Asin(x float64) Angle { return ByRadians(math.Asin(x)) }

// Acos returns the angle whose cosine is x.
func Acos(x float64) Angle { return ByRadians(math.Acos(x)) }

// Atan returns the angle whose tangent is x, in (-90°, 90°).
func Atan(x float64) Angle { return ByRadians(math.Atan(x)) }

// Atan2 returns the full-circle angle of the point (x, y).
func Atan2(y, x float64) Angle { return ByRadians(math.Atan2(y, x)) }

// EuclidianModulus maps x into [0, y) for y > 0. For y < 0 the result is
// mirrored into (y, 0], so EuclidianModulus(x, -y) == -EuclidianModulus(-x, y).
// A zero modulus yields NaN.
func EuclidianModulus(x, y float64) float64 {
	if y == 0 || math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	if y < 0 {
		return -EuclidianModulus(-x, -y)
	}
	m := x - y*math.Floor(x/y)
	// x slightly below a multiple of y can round up to y itself
	if m >= y {
		m = 0
	}
	return m
}

// normalizeHours maps an hour value into [0, 24).
func normalizeHours(h float64) float64 {
	return EuclidianModulus(h, 24)
}

// normalizeDegrees maps a degree value into [0, 360).
func normalizeDegrees(d float64) float64 {
	return EuclidianModulus(d, 360)
}

// wrapDegrees maps a degree value into (-180, 180].
func wrapDegrees(d float64) float64 {
	w := EuclidianModulus(d, 360)
	if w > 180 {
		w -= 360
	}
	return w
}
