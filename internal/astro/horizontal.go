package astro

import (
	"math"
)

// Altitude returns the altitude of an object with hour angle ha and
// declination dec, seen from latitude lat.
//
//	sin(Alt) = sin(Dec)sin(Lat) + cos(Dec)cos(Lat)cos(H)
func Altitude(ha, lat, dec Angle) Angle {
	sinAlt := dec.Sin()*lat.Sin() + dec.Cos()*lat.Cos()*ha.Cos()
	return Asin(clampUnit(sinAlt))
}

// Azimuth returns the azimuth (0° = North, 90° = East) for an object at hour
// angle ha, altitude alt and declination dec, seen from latitude lat.
func Azimuth(ha, alt, lat, dec Angle) Angle {
	cosAz := (dec.Sin() - alt.Sin()*lat.Sin()) / (alt.Cos() * lat.Cos())
	// Clamp cosAz to [-1, 1] to handle floating point errors
	az := Acos(clampUnit(cosAz))

	// East of the meridian while the hour angle is negative
	if ha.Sin() < 0 {
		return ByDegree(normalizeDegrees(az.Degrees()))
	}
	return ByDegree(normalizeDegrees(360 - az.Degrees()))
}

// HourAngle returns siderealTime - ra, normalized into [0, 24) hours.
func HourAngle(siderealTime, ra Angle) Angle {
	return ByHours(normalizeHours(siderealTime.Hours() - ra.Hours()))
}

// RAFromHourAngle recovers the right ascension from an hour angle and the
// sidereal time, normalized into [0, 24) hours.
func RAFromHourAngle(ha, siderealTime Angle) Angle {
	return ByHours(normalizeHours(siderealTime.Hours() - ha.Hours()))
}

// HourAngleFromHorizontal inverts Altitude/Azimuth: it returns the hour angle
// in [0, 24) hours and the declination for a horizontal position.
// Undefined at the zenith and at the poles.
func HourAngleFromHorizontal(alt, az, lat Angle) (ha, dec Angle) {
	sinDec := lat.Sin()*alt.Sin() + lat.Cos()*alt.Cos()*az.Cos()
	dec = Asin(clampUnit(sinDec))

	y := -az.Sin() * alt.Cos()
	x := lat.Cos()*alt.Sin() - lat.Sin()*alt.Cos()*az.Cos()
	h := math.Atan2(y, x)
	return ByHours(normalizeHours(ByRadians(h).Hours())), dec
}

// PositionAngle returns the position angle between two points (a1, d1) and
// (a2, d2).
//
//	PA = atan(sin(Δa) / (cos(d2)tan(d1) - sin(d2)cos(Δa)))
//
// The result is limited to (-90°, 90°) because atan is used instead of atan2.
func PositionAngle(a1, a2, d1, d2 Angle) Angle {
	da := a1.Sub(a2)
	return Atan(da.Sin() / (d2.Cos()*d1.Tan() - d2.Sin()*da.Cos()))
}

// Separation returns the angular distance between two equatorial positions
// using the spherical law of cosines.
func Separation(ra1, dec1, ra2, dec2 Angle) Angle {
	cosSep := dec1.Sin()*dec2.Sin() + dec1.Cos()*dec2.Cos()*ra1.Sub(ra2).Cos()
	return Acos(clampUnit(cosSep))
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
