package astro

import (
	"errors"
	"fmt"
	"math"
	"time"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// Epoch identifies the reference frame of equatorial coordinates.
type Epoch int

const (
	// EpochJNOW is the equator and equinox of date. JNOW values are only
	// meaningful together with their reference time.
	EpochJNOW Epoch = iota
	EpochB1950
	EpochJ2000
	EpochJ2050
)

// String returns the epoch name.
func (e Epoch) String() string {
	switch e {
	case EpochJNOW:
		return "JNOW"
	case EpochB1950:
		return "B1950"
	case EpochJ2000:
		return "J2000"
	case EpochJ2050:
		return "J2050"
	default:
		return "UNKNOWN"
	}
}

// ParseEpoch parses an epoch name. Unknown names map to J2000.
func ParseEpoch(s string) Epoch {
	switch s {
	case "JNOW", "jnow":
		return EpochJNOW
	case "B1950", "b1950":
		return EpochB1950
	case "J2050", "j2050":
		return EpochJ2050
	default:
		return EpochJ2000
	}
}

// ErrMissingTransformer is returned when an epoch change is requested without
// a transformer to perform it.
var ErrMissingTransformer = errors.New("no epoch transformer available")

// EpochTransformer changes the reference frame of equatorial coordinates.
// at is the time that JNOW refers to on either side of the transform.
type EpochTransformer interface {
	TransformEpoch(ra, dec Angle, from, to Epoch, at time.Time) (Angle, Angle, error)
}

// SiderealClock provides local sidereal time for an observer longitude.
type SiderealClock interface {
	LocalSiderealTime(t time.Time, lonDeg float64) (Angle, error)
}

// Coordinates are equatorial coordinates in a given epoch.
type Coordinates struct {
	RA      Angle // Right Ascension, hours in [0, 24)
	Dec     Angle // Declination, degrees in [-90, 90]
	Epoch   Epoch
	RefTime time.Time // Time the coordinates refer to; required for JNOW
}

// NewCoordinates creates coordinates from RA in hours and Dec in degrees.
// RA is normalized into [0, 24) and Dec clamped to [-90, 90].
func NewCoordinates(raHours, decDeg float64, epoch Epoch, ref time.Time) Coordinates {
	return Coordinates{
		RA:      ByHours(normalizeHours(raHours)),
		Dec:     ByDegree(math.Max(-90, math.Min(90, decDeg))),
		Epoch:   epoch,
		RefTime: ref,
	}
}

// RADegrees returns the right ascension in degrees.
func (c Coordinates) RADegrees() float64 {
	return c.RA.Degrees()
}

// Transform returns the coordinates in another epoch. It is the only
// supported way to change the epoch of a value; converting out of JNOW uses
// RefTime, so the result is lossy if RefTime was discarded.
func (c Coordinates) Transform(to Epoch, tr EpochTransformer) (Coordinates, error) {
	if c.Epoch == to {
		return c, nil
	}
	if tr == nil {
		return Coordinates{}, ErrMissingTransformer
	}
	ra, dec, err := tr.TransformEpoch(c.RA, c.Dec, c.Epoch, to, c.RefTime)
	if err != nil {
		return Coordinates{}, fmt.Errorf("transform %s to %s: %w", c.Epoch, to, err)
	}
	return NewCoordinates(ra.Hours(), dec.Degrees(), to, c.RefTime), nil
}

// Horizontal converts JNOW coordinates to altitude/azimuth for an observer
// given the local sidereal time.
func (c Coordinates) Horizontal(obs ObserverInfo, lst Angle) TopocentricCoordinates {
	lat := ByDegree(obs.Latitude)
	ha := HourAngle(lst, c.RA)
	alt := Altitude(ha, lat, c.Dec)
	az := Azimuth(ha, alt, lat, c.Dec)
	return TopocentricCoordinates{
		Azimuth:   az,
		Altitude:  alt,
		Latitude:  lat,
		Longitude: ByDegree(obs.Longitude),
		Elevation: obs.Elevation,
		DateTime:  c.RefTime,
	}
}

// Shift offsets the coordinates by (dx, dy) in the tangent plane, where dy
// points to north and dx to east before rotation. The rotation is applied
// counter-clockwise from north through east.
func (c Coordinates) Shift(dx, dy, rotation Angle) Coordinates {
	sinR, cosR := math.Sincos(rotation.Radians())
	xi := dx.Radians()*cosR - dy.Radians()*sinR
	eta := dx.Radians()*sinR + dy.Radians()*cosR

	ra0 := c.RA.Radians()
	sinD0, cosD0 := math.Sincos(c.Dec.Radians())

	denom := cosD0 - eta*sinD0
	ra := ra0 + math.Atan2(xi, denom)
	dec := math.Atan2(sinD0+eta*cosD0, math.Hypot(xi, denom))

	return NewCoordinates(unit.RAFromRad(ra).Hour(), unit.Angle(dec).Deg(), c.Epoch, c.RefTime)
}

// String formats the coordinates in sexagesimal notation.
func (c Coordinates) String() string {
	return fmt.Sprintf("RA %v Dec %v (%s)",
		sexa.FmtRA(unit.RAFromRad(c.RA.Radians())),
		sexa.FmtAngle(c.Dec.Unit()),
		c.Epoch)
}

// ObserverInfo is an immutable observer location with local weather.
type ObserverInfo struct {
	Latitude    float64 // degrees, north positive
	Longitude   float64 // degrees, east positive
	Elevation   float64 // meters above sea level
	Pressure    float64 // hPa
	Temperature float64 // °C
	Humidity    float64 // percent, 0-100
	Name        string  // Optional name for the site
}

// TopocentricCoordinates are horizontal coordinates for an observer at a time.
type TopocentricCoordinates struct {
	Azimuth   Angle
	Altitude  Angle
	Latitude  Angle
	Longitude Angle
	Elevation float64
	DateTime  time.Time
}

// Equatorial converts the horizontal position back to JNOW coordinates at
// the given local sidereal time.
func (tc TopocentricCoordinates) Equatorial(lst Angle) Coordinates {
	ha, dec := HourAngleFromHorizontal(tc.Altitude, tc.Azimuth, tc.Latitude)
	ra := RAFromHourAngle(ha, lst)
	return NewCoordinates(ra.Hours(), dec.Degrees(), EpochJNOW, tc.DateTime)
}

// Transform converts the horizontal position to equatorial coordinates in the
// requested epoch. The sidereal clock carries the DeltaT / UT1-UTC chain.
func (tc TopocentricCoordinates) Transform(to Epoch, clock SiderealClock, tr EpochTransformer) (Coordinates, error) {
	lst, err := clock.LocalSiderealTime(tc.DateTime, tc.Longitude.Degrees())
	if err != nil {
		return Coordinates{}, fmt.Errorf("sidereal time: %w", err)
	}
	return tc.Equatorial(lst).Transform(to, tr)
}
