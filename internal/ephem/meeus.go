package ephem

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/elliptic"
	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/parallax"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/litescript/ls-nightsky/internal/astro"
)

// jdeB1950 is the Besselian epoch B1950.0.
const jdeB1950 = 2433282.4235

// MeeusBackend computes positions from the analytical theories in Meeus,
// Astronomical Algorithms. Sun and Moon are always available; planets need
// the VSOP87B data files.
type MeeusBackend struct {
	earth   *pp.V87Planet
	planets map[int]*pp.V87Planet
}

// NewMeeusBackend creates a Meeus backend. vsop87Dir may be empty, in which
// case only the Sun and Moon are available.
func NewMeeusBackend(vsop87Dir string) (*MeeusBackend, error) {
	m := &MeeusBackend{planets: make(map[int]*pp.V87Planet)}
	if vsop87Dir == "" {
		return m, nil
	}

	for _, b := range Bodies {
		if b.VSOP87 < 0 {
			continue
		}
		p, err := pp.LoadPlanetPath(b.VSOP87, vsop87Dir)
		if err != nil {
			return nil, fmt.Errorf("load VSOP87 %s from %s: %w", b.Name, filepath.Clean(vsop87Dir), err)
		}
		m.planets[b.VSOP87] = p
	}
	earth, err := pp.LoadPlanetPath(pp.Earth, vsop87Dir)
	if err != nil {
		return nil, fmt.Errorf("load VSOP87 Earth: %w", err)
	}
	m.earth = earth
	return m, nil
}

// Name implements Backend.
func (m *MeeusBackend) Name() string {
	return "Meeus"
}

// Available implements Backend.
func (m *MeeusBackend) Available(body Body) bool {
	switch body {
	case BodySun, BodyMoon:
		return true
	}
	info, ok := body.Info()
	if !ok || info.VSOP87 < 0 {
		return false
	}
	_, ok = m.planets[info.VSOP87]
	return ok && m.earth != nil
}

// ApparentPosition implements Backend.
func (m *MeeusBackend) ApparentPosition(jdTT float64, body Body, obs astro.ObserverInfo, acc Accuracy) (Position, error) {
	if !m.Available(body) {
		return Position{}, fmt.Errorf("%s: %w", body, ErrBodyUnavailable)
	}

	var (
		ra   unit.RA
		dec  unit.Angle
		dist float64
	)

	switch body {
	case BodySun:
		ra, dec = solar.ApparentEquatorial(jdTT)
		dist = solar.Radius(base.J2000Century(jdTT))

	case BodyMoon:
		lon, lat, km := moonposition.Position(jdTT)
		dpsi, deps := nutation.Nutation(jdTT)
		eps := nutation.MeanObliquity(jdTT) + deps
		ra, dec = coord.EclToEq(lon+dpsi, lat, eps.Sin(), eps.Cos())
		dist = km / AUKm

	default:
		info, _ := body.Info()
		p := m.planets[info.VSOP87]
		ra, dec = elliptic.Position(p, m.earth, jdTT)
		dist = m.planetDistance(p, jdTT)
	}

	if acc == AccuracyFull {
		ra, dec = topocentric(ra, dec, dist, obs, jdTT)
	}

	return Position{RA: ra.Hour(), Dec: dec.Deg(), Distance: dist}, nil
}

// planetDistance returns the geometric Earth-planet distance in AU.
func (m *MeeusBackend) planetDistance(p *pp.V87Planet, jde float64) float64 {
	l, b, r := p.Position(jde)
	l0, b0, r0 := m.earth.Position(jde)
	return vecFromSpherical(l, b, r).Sub(vecFromSpherical(l0, b0, r0)).Norm()
}

// topocentric applies diurnal parallax for the observer. Meeus measures
// longitude positive westward.
func topocentric(ra unit.RA, dec unit.Angle, distAU float64, obs astro.ObserverInfo, jde float64) (unit.RA, unit.Angle) {
	if distAU <= 0 {
		return ra, dec
	}
	s, c := globe.Earth76.ParallaxConstants(unit.AngleFromDeg(obs.Latitude), obs.Elevation)
	return parallax.Topocentric(ra, dec, distAU, s, c, unit.AngleFromDeg(-obs.Longitude), jde)
}

// SiderealTime implements Backend.
func (m *MeeusBackend) SiderealTime(jdHigh, jdLow, deltaT float64, flavor SiderealFlavor) (float64, error) {
	jdUT := jdHigh + jdLow
	st := sidereal.Mean(jdUT).Hour()

	if flavor == GreenwichApparent {
		// Equation of the equinoxes, evaluated on the dynamical time scale.
		jde := jdUT + deltaT/86400
		dpsi, deps := nutation.Nutation(jde)
		eps := nutation.MeanObliquity(jde) + deps
		st += dpsi.Mul(eps.Cos()).HourAngle().Hour()
	}

	return unit.PMod(st, 24), nil
}

// RefractionCoefficients implements Backend.
func (m *MeeusBackend) RefractionCoefficients(pressure, temperature, humidity, wavelength float64) (astro.RefractionCoefficients, error) {
	return refractionCoefficients(pressure, temperature, humidity, wavelength), nil
}

// TransformEpoch implements astro.EpochTransformer using the IAU 1976
// precession. JNOW is the mean equator and equinox of date; nutation is not
// applied.
func (m *MeeusBackend) TransformEpoch(ra, dec astro.Angle, from, to astro.Epoch, at time.Time) (astro.Angle, astro.Angle, error) {
	if from == to {
		return ra, dec, nil
	}
	fromYear, err := epochYear(from, at)
	if err != nil {
		return astro.Angle{}, astro.Angle{}, err
	}
	toYear, err := epochYear(to, at)
	if err != nil {
		return astro.Angle{}, astro.Angle{}, err
	}

	eqFrom := &coord.Equatorial{RA: unit.RAFromRad(ra.Radians()), Dec: dec.Unit()}
	eqTo := &coord.Equatorial{}
	precess.Position(eqFrom, eqTo, fromYear, toYear, 0, 0)

	return astro.ByHours(eqTo.RA.Hour()), astro.ByDegree(eqTo.Dec.Deg()), nil
}

// epochYear returns the Julian epoch year of e.
func epochYear(e astro.Epoch, at time.Time) (float64, error) {
	switch e {
	case astro.EpochJ2000:
		return 2000, nil
	case astro.EpochJ2050:
		return 2050, nil
	case astro.EpochB1950:
		return julianYear(jdeB1950), nil
	case astro.EpochJNOW:
		if at.IsZero() {
			return 0, fmt.Errorf("JNOW coordinates without a reference time")
		}
		return julianYear(julian.TimeToJD(at)), nil
	default:
		return 0, fmt.Errorf("unknown epoch %d", e)
	}
}

func julianYear(jde float64) float64 {
	return 2000 + (jde-base.J2000)/base.JulianYear
}
