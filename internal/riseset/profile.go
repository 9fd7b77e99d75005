package riseset

import (
	"fmt"
	"math"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
)

// ProfileStep is the sampling interval of an altitude profile.
const ProfileStep = 6 * time.Minute

// ProfilePoint is one sample of an altitude profile.
type ProfilePoint struct {
	Time     time.Time
	Altitude float64 // degrees
	Azimuth  float64 // degrees
}

// AltitudeProfile is a target's altitude over a day, used for rendering and
// for picking the best observing time.
type AltitudeProfile struct {
	Target string
	Points []ProfilePoint
	Max    ProfilePoint
}

// Profile samples target every ProfileStep over the solver window starting at
// start. The maximum is refined by fitting a parabola through the highest
// sample and its neighbours.
func (s *Solver) Profile(target Target, obs astro.ObserverInfo, start time.Time) (AltitudeProfile, error) {
	n := int(s.window/ProfileStep) + 1
	p := AltitudeProfile{Target: target.Name(), Points: make([]ProfilePoint, 0, n)}

	maxIdx := 0
	for i := 0; i < n; i++ {
		smp, err := s.evaluate(target, obs, start.Add(time.Duration(i)*ProfileStep))
		if err != nil {
			return AltitudeProfile{}, fmt.Errorf("%s profile: %w", target.Name(), err)
		}
		p.Points = append(p.Points, ProfilePoint{Time: smp.t, Altitude: smp.alt, Azimuth: smp.az})
		if smp.alt > p.Points[maxIdx].Altitude {
			maxIdx = i
		}
	}

	maxPt, err := s.refineMax(target, obs, p.Points, maxIdx)
	if err != nil {
		return AltitudeProfile{}, fmt.Errorf("%s profile: %w", target.Name(), err)
	}
	p.Max = maxPt
	return p, nil
}

// refineMax fits y = at² + bt + c through the samples at t = -1, 0, +1 around
// idx. Endpoints and upward-opening fits keep the discrete maximum.
func (s *Solver) refineMax(target Target, obs astro.ObserverInfo, pts []ProfilePoint, idx int) (ProfilePoint, error) {
	if idx == 0 || idx == len(pts)-1 {
		return pts[idx], nil
	}

	y0, y1, y2 := pts[idx-1].Altitude, pts[idx].Altitude, pts[idx+1].Altitude
	a := (y0+y2)/2 - y1
	b := (y2 - y0) / 2
	if a >= 0 {
		return pts[idx], nil
	}

	tMax := math.Max(-1, math.Min(1, -b/(2*a)))
	at := pts[idx].Time.Add(time.Duration(float64(ProfileStep) * tMax))

	smp, err := s.evaluate(target, obs, at)
	if err != nil {
		return ProfilePoint{}, err
	}
	if smp.alt < y1 {
		return pts[idx], nil
	}
	return ProfilePoint{Time: smp.t, Altitude: smp.alt, Azimuth: smp.az}, nil
}

// DoesTransitSouth reports whether the target culminates in the south, that
// is whether the azimuth at the profile maximum rounds to 180°.
func (p AltitudeProfile) DoesTransitSouth() bool {
	return math.Round(p.Max.Azimuth) == 180
}

// AboveThreshold returns the share of points at or above threshold degrees.
func (p AltitudeProfile) AboveThreshold(threshold float64) float64 {
	if len(p.Points) == 0 {
		return 0
	}
	n := 0
	for _, pt := range p.Points {
		if pt.Altitude >= threshold {
			n++
		}
	}
	return float64(n) / float64(len(p.Points))
}
