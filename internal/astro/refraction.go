package astro

import (
	"math"
)

// RefractionCoefficients are the A and B terms (radians) of the two-term
// refraction model
//
//	Z_vac = Z_obs + A·tan(Z_obs) + B·tan³(Z_obs)
//
// where Z_obs is the refracted (observed) zenith distance.
type RefractionCoefficients struct {
	A float64
	B float64
}

// RefractionSearch controls the fixed-point search for the observed zenith
// distance.
type RefractionSearch struct {
	StepArcsec    float64 // decrement per iteration
	MaxIterations int
}

// DefaultRefractionSearch steps one arcsecond at a time, up to one degree of
// refraction.
func DefaultRefractionSearch() RefractionSearch {
	return RefractionSearch{StepArcsec: 1, MaxIterations: 3600}
}

// CalculateRefractedAltitude converts a vacuum altitude to the altitude the
// observer actually sees. The model is only defined from observed to vacuum,
// so the observed zenith distance is searched by stepping down from the
// vacuum zenith distance until the model reaches the target; the result is
// within one step of the exact solution.
//
// Returns NaN for altitudes outside [0°, 90°], non-finite input, or when the
// search does not converge within MaxIterations.
func CalculateRefractedAltitude(alt Angle, coef RefractionCoefficients, search RefractionSearch) Angle {
	deg := alt.Degrees()
	if math.IsNaN(deg) || math.IsInf(deg, 0) || deg < 0 || deg > 90 {
		return ByRadians(math.NaN())
	}
	if deg == 90 {
		return alt
	}
	if search.StepArcsec <= 0 || search.MaxIterations <= 0 {
		search = DefaultRefractionSearch()
	}

	target := ByDegree(90 - deg).Radians()
	step := ByDegree(search.StepArcsec / 3600).Radians()

	z := target
	for i := 0; i <= search.MaxIterations; i++ {
		t := math.Tan(z)
		if z+coef.A*t+coef.B*t*t*t <= target {
			return ByDegree(90 - ByRadians(z).Degrees())
		}
		z -= step
		if z < 0 {
			break
		}
	}
	return ByRadians(math.NaN())
}
