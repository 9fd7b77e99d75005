package timescale

import (
	"fmt"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
)

// SiderealSource computes Greenwich sidereal time in hours.
type SiderealSource interface {
	SiderealTime(jdHigh, jdLow, deltaT float64, flavor ephem.SiderealFlavor) (float64, error)
}

// Converter chains UTC, UT1 and TT and derives local sidereal time.
type Converter struct {
	ut1      *UT1Cache
	sidereal SiderealSource
}

// NewConverter creates a converter. ut1 may be nil, in which case UT1 = UTC.
func NewConverter(ut1 *UT1Cache, sidereal SiderealSource) *Converter {
	if ut1 == nil {
		ut1 = NewUT1Cache(nil)
	}
	return &Converter{ut1: ut1, sidereal: sidereal}
}

// JulianDate returns the Julian date of t on the UTC scale.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// UT1MinusUTC returns UT1-UTC in seconds for t.
func (c *Converter) UT1MinusUTC(t time.Time) float64 {
	return c.ut1.UT1MinusUTC(t)
}

// DeltaT returns TT-UT1 in seconds:
//
//	ΔT = 32.184 + (TAI-UTC) - (UT1-UTC)
func (c *Converter) DeltaT(t time.Time) float64 {
	return TTMinusTAI + TAIMinusUTC(t) - c.ut1.UT1MinusUTC(t)
}

// TerrestrialJD returns the Julian date of t on the TT scale, the time
// argument of the ephemeris.
func (c *Converter) TerrestrialJD(t time.Time) float64 {
	return JulianDate(t) + (TTMinusTAI+TAIMinusUTC(t))/86400
}

// GreenwichSiderealTime returns apparent Greenwich sidereal time.
func (c *Converter) GreenwichSiderealTime(t time.Time) (astro.Angle, error) {
	if c.sidereal == nil {
		return astro.Angle{}, fmt.Errorf("sidereal time: no ephemeris backend")
	}
	dut := c.ut1.UT1MinusUTC(t)
	deltaT := TTMinusTAI + TAIMinusUTC(t) - dut

	gst, err := c.sidereal.SiderealTime(JulianDate(t), dut/86400, deltaT, ephem.GreenwichApparent)
	if err != nil {
		return astro.Angle{}, fmt.Errorf("sidereal time at %s: %w", t.UTC().Format(time.RFC3339), err)
	}
	return astro.ByHours(astro.EuclidianModulus(gst, 24)), nil
}

// LocalSiderealTime returns apparent local sidereal time for an east-positive
// longitude in degrees, normalized to [0, 24) hours. It implements
// astro.SiderealClock.
func (c *Converter) LocalSiderealTime(t time.Time, lonDeg float64) (astro.Angle, error) {
	gst, err := c.GreenwichSiderealTime(t)
	if err != nil {
		return astro.Angle{}, err
	}
	return astro.ByHours(astro.EuclidianModulus(gst.Hours()+lonDeg/15, 24)), nil
}
