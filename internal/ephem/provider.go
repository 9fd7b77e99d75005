// Package ephem provides apparent positions of solar system bodies, sidereal
// time and refraction coefficients from an ephemeris backend.
package ephem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/logging"
)

// Accuracy selects between topocentric and geocentric positions.
type Accuracy int

const (
	// AccuracyFull returns topocentric positions for the observer.
	AccuracyFull Accuracy = iota
	// AccuracyReduced returns geocentric positions and ignores the observer.
	AccuracyReduced
)

// SiderealFlavor selects mean or apparent Greenwich sidereal time.
type SiderealFlavor int

const (
	GreenwichMean SiderealFlavor = iota
	GreenwichApparent
)

// Position is an apparent position of a body.
type Position struct {
	RA       float64 // hours, [0, 24)
	Dec      float64 // degrees
	Distance float64 // AU
}

// Errors returned by backends.
var (
	ErrBodyUnavailable = errors.New("body not available from this ephemeris")
	ErrNoEphemerisFile = errors.New("no ephemeris file configured")
)

// Backend is the ephemeris boundary. Implementations are not assumed to be
// safe for concurrent use; wrap them with Serialize.
type Backend interface {
	// Name returns the backend name for display/logging.
	Name() string

	// ApparentPosition returns the position of body at the dynamical
	// Julian date jdTT. AccuracyFull applies topocentric parallax for obs.
	ApparentPosition(jdTT float64, body Body, obs astro.ObserverInfo, acc Accuracy) (Position, error)

	// SiderealTime returns Greenwich sidereal time in hours. The UT1 Julian
	// date is split into jdHigh + jdLow; deltaT (TT-UT1, seconds) is used for
	// the nutation terms of apparent sidereal time.
	SiderealTime(jdHigh, jdLow, deltaT float64, flavor SiderealFlavor) (float64, error)

	// RefractionCoefficients returns the A and B terms of the refraction
	// model for pressure (hPa), temperature (°C), relative humidity (0-1)
	// and wavelength (µm).
	RefractionCoefficients(pressure, temperature, humidity, wavelength float64) (astro.RefractionCoefficients, error)

	// TransformEpoch implements astro.EpochTransformer.
	astro.EpochTransformer

	// Available returns true if this backend can supply data for the body.
	Available(body Body) bool
}

// Mode represents which ephemeris source to use.
type Mode int

const (
	ModeMeeus Mode = iota // Analytical theories (VSOP87, ELP)
	ModeJPL               // JPL DE binary file
	ModeAuto              // JPL when a file is configured, Meeus otherwise
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMeeus:
		return "meeus"
	case ModeJPL:
		return "jpl"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode string.
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "meeus":
		return ModeMeeus
	case "jpl":
		return ModeJPL
	case "auto":
		return ModeAuto
	default:
		return ModeAuto
	}
}

// Config selects and configures a backend.
type Config struct {
	Mode      Mode
	JPLFile   string // path to a JPL DE binary (e.g. de440.bin)
	VSOP87Dir string // directory holding VSOP87B.* files for planets
}

// New creates the configured backend, already serialized. In ModeAuto a JPL
// file that fails to open is logged and Meeus is used instead.
func New(cfg Config, log *logging.Logger) (Backend, error) {
	log = logging.OrDiscard(log).Named("ephem")

	meeus, err := NewMeeusBackend(cfg.VSOP87Dir)
	if err != nil {
		return nil, fmt.Errorf("meeus backend: %w", err)
	}

	switch cfg.Mode {
	case ModeMeeus:
		log.Info("using %s ephemeris", meeus.Name())
		return Serialize(meeus), nil

	case ModeJPL:
		jpl, err := NewJPLBackend(cfg.JPLFile, meeus)
		if err != nil {
			return nil, fmt.Errorf("jpl backend: %w", err)
		}
		log.Info("using %s ephemeris", jpl.Name())
		return Serialize(jpl), nil

	default:
		if cfg.JPLFile == "" {
			log.Info("no JPL file configured, using %s ephemeris", meeus.Name())
			return Serialize(meeus), nil
		}
		jpl, err := NewJPLBackend(cfg.JPLFile, meeus)
		if err != nil {
			log.Warn("JPL ephemeris unavailable, falling back to %s: %v", meeus.Name(), err)
			return Serialize(meeus), nil
		}
		log.Info("using %s ephemeris", jpl.Name())
		return Serialize(jpl), nil
	}
}
