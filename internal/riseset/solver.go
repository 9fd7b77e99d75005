package riseset

import (
	"fmt"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/timescale"
)

const (
	// DefaultWindow is the search span from the start time.
	DefaultWindow = 24 * time.Hour

	// DefaultStep is the coarse sampling interval used to bracket crossings.
	DefaultStep = 10 * time.Minute

	// DefaultTolerance is the bisection stopping width.
	DefaultTolerance = 5 * time.Second
)

// Standard thresholds in degrees. Sun and Moon use the geometric centre on
// the horizon.
const (
	SunThreshold  = 0.0
	MoonThreshold = 0.0
)

// Twilight identifies a twilight class by its solar depression angle.
type Twilight int

const (
	TwilightCivil Twilight = iota
	TwilightNautical
	TwilightAstronomical
)

// Threshold returns the Sun altitude in degrees that bounds the twilight.
func (tw Twilight) Threshold() float64 {
	switch tw {
	case TwilightCivil:
		return -6
	case TwilightNautical:
		return -12
	default:
		return -18
	}
}

// String returns the twilight name.
func (tw Twilight) String() string {
	switch tw {
	case TwilightCivil:
		return "civil"
	case TwilightNautical:
		return "nautical"
	case TwilightAstronomical:
		return "astronomical"
	default:
		return "unknown"
	}
}

// RiseAndSetEvent holds the first crossings found in the search window.
// A nil field means the event does not occur in the window.
type RiseAndSetEvent struct {
	Rise    *time.Time
	Set     *time.Time
	Transit *time.Time
}

// Circumpolar reports whether neither rise nor set was found.
func (e RiseAndSetEvent) Circumpolar() bool {
	return e.Rise == nil && e.Set == nil
}

// Solver finds altitude crossings by coarse sampling and bisection.
type Solver struct {
	clock   astro.SiderealClock
	backend ephem.Backend
	conv    *timescale.Converter

	window    time.Duration
	step      time.Duration
	tolerance time.Duration
}

// Option configures a Solver.
type Option func(*Solver)

// WithWindow sets the search span.
func WithWindow(d time.Duration) Option {
	return func(s *Solver) {
		s.window = d
	}
}

// WithStep sets the coarse sampling interval.
func WithStep(d time.Duration) Option {
	return func(s *Solver) {
		s.step = d
	}
}

// WithTolerance sets the bisection precision.
func WithTolerance(d time.Duration) Option {
	return func(s *Solver) {
		s.tolerance = d
	}
}

// NewSolver creates a solver. The converter supplies sidereal time and the
// backend supplies body positions and epoch transforms.
func NewSolver(conv *timescale.Converter, backend ephem.Backend, opts ...Option) *Solver {
	s := &Solver{
		clock:     conv,
		backend:   backend,
		conv:      conv,
		window:    DefaultWindow,
		step:      DefaultStep,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Body returns a target for a solar system body seen from obs.
func (s *Solver) Body(body ephem.Body, obs astro.ObserverInfo) *SolarSystemBody {
	return NewSolarSystemBody(body, s.backend, s.conv, obs, ephem.AccuracyFull)
}

// GeocentricBody returns a target for body without topocentric correction,
// for quantities such as lunar phase that do not depend on the observer.
func (s *Solver) GeocentricBody(body ephem.Body) *SolarSystemBody {
	return NewSolarSystemBody(body, s.backend, s.conv, astro.ObserverInfo{}, ephem.AccuracyReduced)
}

// Fixed returns a target at fixed catalog coordinates.
func (s *Solver) Fixed(name string, coords astro.Coordinates) *FixedTarget {
	return NewFixedTarget(name, coords, s.backend)
}

// Lookup resolves a name to a target: solar system bodies first, then the
// bright star catalog.
func (s *Solver) Lookup(name string, obs astro.ObserverInfo) (Target, error) {
	if body, ok := ephem.LookupBody(name); ok {
		if !s.backend.Available(body) {
			return nil, fmt.Errorf("%s: %w", body, ephem.ErrBodyUnavailable)
		}
		return s.Body(body, obs), nil
	}
	if star, ok := astro.DefaultStarCatalog().Lookup(name); ok {
		return s.Fixed(star.Name, star.Coordinates(time.Time{})), nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownTarget)
}

// sample is a target position evaluated for an observer.
type sample struct {
	t   time.Time
	alt float64 // degrees
	az  float64 // degrees
	ha  float64 // hours, (-12, 12]
}

// Evaluate returns the horizontal position of target at t.
func (s *Solver) Evaluate(target Target, obs astro.ObserverInfo, t time.Time) (astro.TopocentricCoordinates, error) {
	smp, err := s.evaluate(target, obs, t)
	if err != nil {
		return astro.TopocentricCoordinates{}, err
	}
	return astro.TopocentricCoordinates{
		Azimuth:   astro.ByDegree(smp.az),
		Altitude:  astro.ByDegree(smp.alt),
		Latitude:  astro.ByDegree(obs.Latitude),
		Longitude: astro.ByDegree(obs.Longitude),
		Elevation: obs.Elevation,
		DateTime:  t,
	}, nil
}

func (s *Solver) evaluate(target Target, obs astro.ObserverInfo, t time.Time) (sample, error) {
	c, err := target.CoordinatesAt(t)
	if err != nil {
		return sample{}, err
	}
	lst, err := s.clock.LocalSiderealTime(t, obs.Longitude)
	if err != nil {
		return sample{}, err
	}
	h := c.Horizontal(obs, lst)

	ha := astro.HourAngle(lst, c.RA).Hours()
	if ha > 12 {
		ha -= 24
	}
	return sample{t: t, alt: h.Altitude.Degrees(), az: h.Azimuth.Degrees(), ha: ha}, nil
}

// RiseAndSet searches [start, start+window] for the first upward and first
// downward crossing of threshold (degrees) and the first upper transit.
// Targets that never cross return nil Rise and Set; that is not an error.
func (s *Solver) RiseAndSet(target Target, obs astro.ObserverInfo, start time.Time, threshold float64) (RiseAndSetEvent, error) {
	var ev RiseAndSetEvent

	prev, err := s.evaluate(target, obs, start)
	if err != nil {
		return ev, fmt.Errorf("%s: %w", target.Name(), err)
	}

	n := int(s.window / s.step)
	for i := 1; i <= n; i++ {
		cur, err := s.evaluate(target, obs, start.Add(time.Duration(i)*s.step))
		if err != nil {
			return ev, fmt.Errorf("%s: %w", target.Name(), err)
		}

		below0 := prev.alt < threshold
		below1 := cur.alt < threshold
		if ev.Rise == nil && below0 && !below1 {
			t, err := s.bisect(prev.t, cur.t, func(t time.Time) (bool, error) {
				smp, err := s.evaluate(target, obs, t)
				return smp.alt >= threshold, err
			})
			if err != nil {
				return ev, fmt.Errorf("%s rise: %w", target.Name(), err)
			}
			ev.Rise = &t
		}
		if ev.Set == nil && !below0 && below1 {
			t, err := s.bisect(prev.t, cur.t, func(t time.Time) (bool, error) {
				smp, err := s.evaluate(target, obs, t)
				return smp.alt < threshold, err
			})
			if err != nil {
				return ev, fmt.Errorf("%s set: %w", target.Name(), err)
			}
			ev.Set = &t
		}
		// The ±12h wrap also changes sign; only the crossing through zero
		// counts.
		if ev.Transit == nil && prev.ha < 0 && cur.ha >= 0 && cur.ha-prev.ha < 12 {
			t, err := s.bisect(prev.t, cur.t, func(t time.Time) (bool, error) {
				smp, err := s.evaluate(target, obs, t)
				return smp.ha >= 0 && smp.ha < 6, err
			})
			if err != nil {
				return ev, fmt.Errorf("%s transit: %w", target.Name(), err)
			}
			ev.Transit = &t
		}

		if ev.Rise != nil && ev.Set != nil && ev.Transit != nil {
			break
		}
		prev = cur
	}

	return ev, nil
}

// bisect narrows [lo, hi] to the tolerance, where reached(lo) is false and
// reached(hi) is true. It returns the midpoint of the final bracket.
func (s *Solver) bisect(lo, hi time.Time, reached func(time.Time) (bool, error)) (time.Time, error) {
	for hi.Sub(lo) > s.tolerance {
		mid := lo.Add(hi.Sub(lo) / 2)
		ok, err := reached(mid)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2), nil
}

// SunRiseAndSet returns sunrise and sunset for obs.
func (s *Solver) SunRiseAndSet(obs astro.ObserverInfo, start time.Time) (RiseAndSetEvent, error) {
	return s.RiseAndSet(s.Body(ephem.BodySun, obs), obs, start, SunThreshold)
}

// MoonRiseAndSet returns moonrise and moonset for obs.
func (s *Solver) MoonRiseAndSet(obs astro.ObserverInfo, start time.Time) (RiseAndSetEvent, error) {
	return s.RiseAndSet(s.Body(ephem.BodyMoon, obs), obs, start, MoonThreshold)
}

// TwilightRiseAndSet returns when the Sun crosses the twilight depression
// angle: Rise at dawn, Set at dusk.
func (s *Solver) TwilightRiseAndSet(tw Twilight, obs astro.ObserverInfo, start time.Time) (RiseAndSetEvent, error) {
	return s.RiseAndSet(s.Body(ephem.BodySun, obs), obs, start, tw.Threshold())
}
