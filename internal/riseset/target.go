// Package riseset finds when targets cross an altitude threshold: rise, set
// and transit times, and daily altitude profiles.
package riseset

import (
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/timescale"
)

// trackingRateBaseline is the finite-difference interval for tracking rates.
const trackingRateBaseline = 60 * time.Second

// ErrUnknownTarget is returned by Lookup for names that are neither a
// cataloged star nor a solar system body.
var ErrUnknownTarget = errors.New("unknown target")

// Target is anything whose apparent position can be evaluated over time.
type Target interface {
	// Name returns the target name for display/logging.
	Name() string

	// CoordinatesAt returns the JNOW position at t.
	CoordinatesAt(t time.Time) (astro.Coordinates, error)

	// ShiftTrackingRateAt returns the motion relative to the stars in
	// arcseconds per second of time, for RA and Dec. The RA rate is not
	// scaled by cos(Dec).
	ShiftTrackingRateAt(t time.Time) (raRate, decRate float64, err error)
}

// FixedTarget is a catalog or user-entered position.
type FixedTarget struct {
	name        string
	coords      astro.Coordinates
	transformer astro.EpochTransformer
}

// NewFixedTarget creates a target at fixed coordinates. The transformer
// precesses them to JNOW at each evaluation time; it may be nil when the
// coordinates are already JNOW.
func NewFixedTarget(name string, coords astro.Coordinates, tr astro.EpochTransformer) *FixedTarget {
	return &FixedTarget{name: name, coords: coords, transformer: tr}
}

// Name implements Target.
func (f *FixedTarget) Name() string {
	return f.name
}

// Coordinates returns the catalog coordinates as given.
func (f *FixedTarget) Coordinates() astro.Coordinates {
	return f.coords
}

// CoordinatesAt implements Target.
func (f *FixedTarget) CoordinatesAt(t time.Time) (astro.Coordinates, error) {
	c := f.coords
	c.RefTime = t
	if c.Epoch == astro.EpochJNOW {
		return c, nil
	}
	jnow, err := c.Transform(astro.EpochJNOW, f.transformer)
	if err != nil {
		return astro.Coordinates{}, fmt.Errorf("%s: %w", f.name, err)
	}
	return jnow, nil
}

// ShiftTrackingRateAt implements Target. Fixed targets move with the stars.
func (f *FixedTarget) ShiftTrackingRateAt(time.Time) (float64, float64, error) {
	return 0, 0, nil
}

// SolarSystemBody is a body whose position comes from the ephemeris.
type SolarSystemBody struct {
	body     ephem.Body
	backend  ephem.Backend
	conv     *timescale.Converter
	observer astro.ObserverInfo
	accuracy ephem.Accuracy
}

// NewSolarSystemBody creates a target for body as seen by obs.
func NewSolarSystemBody(body ephem.Body, backend ephem.Backend, conv *timescale.Converter, obs astro.ObserverInfo, acc ephem.Accuracy) *SolarSystemBody {
	return &SolarSystemBody{
		body:     body,
		backend:  backend,
		conv:     conv,
		observer: obs,
		accuracy: acc,
	}
}

// Name implements Target.
func (b *SolarSystemBody) Name() string {
	return b.body.String()
}

// Body returns the ephemeris body.
func (b *SolarSystemBody) Body() ephem.Body {
	return b.body
}

// PositionAt returns the raw ephemeris position, including distance.
func (b *SolarSystemBody) PositionAt(t time.Time) (ephem.Position, error) {
	pos, err := b.backend.ApparentPosition(b.conv.TerrestrialJD(t), b.body, b.observer, b.accuracy)
	if err != nil {
		return ephem.Position{}, fmt.Errorf("%s position: %w", b.body, err)
	}
	return pos, nil
}

// CoordinatesAt implements Target.
func (b *SolarSystemBody) CoordinatesAt(t time.Time) (astro.Coordinates, error) {
	pos, err := b.PositionAt(t)
	if err != nil {
		return astro.Coordinates{}, err
	}
	return astro.NewCoordinates(pos.RA, pos.Dec, astro.EpochJNOW, t), nil
}

// ShiftTrackingRateAt implements Target by differencing positions one
// minute apart.
func (b *SolarSystemBody) ShiftTrackingRateAt(t time.Time) (float64, float64, error) {
	c0, err := b.CoordinatesAt(t)
	if err != nil {
		return 0, 0, err
	}
	c1, err := b.CoordinatesAt(t.Add(trackingRateBaseline))
	if err != nil {
		return 0, 0, err
	}

	dt := trackingRateBaseline.Seconds()
	dra := astro.ByDegree(wrap180(c1.RADegrees() - c0.RADegrees()))
	ddec := c1.Dec.Sub(c0.Dec)
	return dra.ArcSeconds() / dt, ddec.ArcSeconds() / dt, nil
}

// wrap180 maps degrees into [-180, 180).
func wrap180(d float64) float64 {
	return astro.EuclidianModulus(d+180, 360) - 180
}
