package ephem

import (
	"fmt"
	"time"

	"github.com/mshafiee/jpleph"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"

	"github.com/litescript/ls-nightsky/internal/astro"
)

// JPLBackend reads positions from a JPL DE binary ephemeris. Sidereal time,
// refraction and epoch transforms come from the Meeus backend.
type JPLBackend struct {
	eph   *jpleph.Ephemeris
	path  string
	meeus *MeeusBackend
}

// NewJPLBackend opens a DE binary file.
func NewJPLBackend(path string, meeus *MeeusBackend) (*JPLBackend, error) {
	if path == "" {
		return nil, ErrNoEphemerisFile
	}
	if meeus == nil {
		var err error
		if meeus, err = NewMeeusBackend(""); err != nil {
			return nil, err
		}
	}
	eph, err := jpleph.NewEphemeris(path, false)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &JPLBackend{eph: eph, path: path, meeus: meeus}, nil
}

// Name implements Backend.
func (j *JPLBackend) Name() string {
	return "JPL " + j.eph.GetEphemName()
}

// Close releases the ephemeris file.
func (j *JPLBackend) Close() error {
	return j.eph.Close()
}

// Available implements Backend. Every supported body is in a DE file; dates
// outside the file's range fail in ApparentPosition.
func (j *JPLBackend) Available(body Body) bool {
	_, ok := body.Info()
	return ok
}

// ApparentPosition implements Backend. The geocentric ICRF vector is
// corrected for one iteration of light time and precessed to the mean
// equator of date.
func (j *JPLBackend) ApparentPosition(jdTT float64, body Body, obs astro.ObserverInfo, acc Accuracy) (Position, error) {
	info, ok := body.Info()
	if !ok {
		return Position{}, fmt.Errorf("body %d: %w", body, ErrBodyUnavailable)
	}

	v, err := j.geocentric(jdTT, info.JPL)
	if err != nil {
		return Position{}, err
	}
	// Position the body had when the light we see left it.
	v, err = j.geocentric(jdTT-LightTimeDays(v.Norm()), info.JPL)
	if err != nil {
		return Position{}, err
	}

	lon, lat, dist := v.Spherical()
	eqFrom := &coord.Equatorial{RA: unit.RAFromRad(lon.Rad()), Dec: lat}
	eqTo := &coord.Equatorial{}
	precess.Position(eqFrom, eqTo, 2000, julianYear(jdTT), 0, 0)

	ra, dec := eqTo.RA, eqTo.Dec
	if acc == AccuracyFull {
		ra, dec = topocentric(ra, dec, dist, obs, jdTT)
	}
	return Position{RA: ra.Hour(), Dec: dec.Deg(), Distance: dist}, nil
}

func (j *JPLBackend) geocentric(jd float64, target jpleph.Planet) (Vec3, error) {
	pos, _, err := j.eph.CalculatePV(jd, target, jpleph.CenterEarth, false)
	if err != nil {
		return Vec3{}, fmt.Errorf("jpl %s at JD %.5f: %w", j.path, jd, err)
	}
	return Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}, nil
}

// SiderealTime implements Backend.
func (j *JPLBackend) SiderealTime(jdHigh, jdLow, deltaT float64, flavor SiderealFlavor) (float64, error) {
	return j.meeus.SiderealTime(jdHigh, jdLow, deltaT, flavor)
}

// RefractionCoefficients implements Backend.
func (j *JPLBackend) RefractionCoefficients(pressure, temperature, humidity, wavelength float64) (astro.RefractionCoefficients, error) {
	return j.meeus.RefractionCoefficients(pressure, temperature, humidity, wavelength)
}

// TransformEpoch implements astro.EpochTransformer.
func (j *JPLBackend) TransformEpoch(ra, dec astro.Angle, from, to astro.Epoch, at time.Time) (astro.Angle, astro.Angle, error) {
	return j.meeus.TransformEpoch(ra, dec, from, to, at)
}
