package ephem

import (
	"math"

	"github.com/litescript/ls-nightsky/internal/astro"
)

// refractionCoefficients computes the A and B terms of the tan Z / tan³ Z
// refraction model for pressure p (hPa), temperature tc (°C), relative
// humidity rh (0-1) and wavelength wl (µm). Wavelengths above 100 µm are
// treated as radio. This is the IAU SOFA refco model; inputs are clamped to
// the ranges where it holds.
func refractionCoefficients(p, tc, rh, wl float64) astro.RefractionCoefficients {
	optical := wl <= 100

	t := math.Max(-150, math.Min(200, tc))
	p = math.Max(0, math.Min(10000, p))
	r := math.Max(0, math.Min(1, rh))
	w := math.Max(0.1, math.Min(1e6, wl))

	// Water vapour pressure at the observer.
	var pw float64
	if p > 0 {
		ps := math.Pow(10, (0.7859+0.03477*t)/(1+0.00412*t)) * (1 + p*(4.5e-6+6e-10*t*t))
		pw = r * ps / (1 - (1-r)*ps/p)
	}

	// Refractive index minus 1 at the observer.
	tk := t + 273.15
	var gamma float64
	if optical {
		w2 := w * w
		gamma = ((77.53484e-6+(4.39108e-7+3.666e-9/w2)/w2)*p - 11.2684e-6*pw) / tk
	} else {
		gamma = (77.6890e-6*p - (6.3938e-6-0.375463/tk)*pw) / tk
	}

	// Formula for beta from Stone, with empirical adjustments.
	beta := 4.4474e-6 * tk
	if !optical {
		beta -= 0.0074 * pw * beta
	}

	return astro.RefractionCoefficients{
		A: gamma * (1 - beta),
		B: -gamma * (beta - gamma/2),
	}
}
