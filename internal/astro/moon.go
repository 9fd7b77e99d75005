package astro

import (
	"math"
)

// MoonPhase is one of eight 45° phase sectors.
type MoonPhase int

const (
	MoonPhaseUnknown MoonPhase = iota
	NewMoon
	WaxingCrescent
	FirstQuarter
	WaxingGibbous
	FullMoon
	WaningGibbous
	LastQuarter
	WaningCrescent
)

// String returns the display name of the phase.
func (p MoonPhase) String() string {
	switch p {
	case NewMoon:
		return "New Moon"
	case WaxingCrescent:
		return "Waxing Crescent"
	case FirstQuarter:
		return "First Quarter"
	case WaxingGibbous:
		return "Waxing Gibbous"
	case FullMoon:
		return "Full Moon"
	case WaningGibbous:
		return "Waning Gibbous"
	case LastQuarter:
		return "Last Quarter"
	case WaningCrescent:
		return "Waning Crescent"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p MoonPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// MoonPositionAngle returns the Moon's angular distance east of the Sun in
// right ascension, in degrees wrapped to (-180, 180]. Positive values mean a
// waxing Moon.
func MoonPositionAngle(moonRA, sunRA Angle) float64 {
	return wrapDegrees(moonRA.Degrees() - sunRA.Degrees())
}

// MoonPhaseFromPositionAngle buckets a moon position angle (degrees) into
// eight equal sectors, with New Moon centred on 0° and Full Moon on 180°.
func MoonPhaseFromPositionAngle(deg float64) MoonPhase {
	if math.IsNaN(deg) {
		return MoonPhaseUnknown
	}
	a := wrapDegrees(deg)
	switch {
	case a >= -22.5 && a < 22.5:
		return NewMoon
	case a >= 22.5 && a < 67.5:
		return WaxingCrescent
	case a >= 67.5 && a < 112.5:
		return FirstQuarter
	case a >= 112.5 && a < 157.5:
		return WaxingGibbous
	case a >= 157.5 || a < -157.5:
		return FullMoon
	case a >= -157.5 && a < -112.5:
		return WaningGibbous
	case a >= -112.5 && a < -67.5:
		return LastQuarter
	default:
		return WaningCrescent
	}
}

// PhaseAngle returns the Sun-Moon-Earth angle from the Sun-Moon elongation
// and the geocentric distances of Sun and Moon (same units).
//
//	i = atan2(dSun·sin(φ), dMoon - dSun·cos(φ))
func PhaseAngle(elongation Angle, dSun, dMoon float64) Angle {
	return Atan2(dSun*elongation.Sin(), dMoon-dSun*elongation.Cos())
}

// IlluminatedFraction returns the lit fraction of the lunar disk, in [0, 1].
func IlluminatedFraction(phaseAngle Angle) float64 {
	k := (1 + phaseAngle.Cos()) / 2
	return math.Max(0, math.Min(1, k))
}
