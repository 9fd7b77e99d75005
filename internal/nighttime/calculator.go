package nighttime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/logging"
	"github.com/litescript/ls-nightsky/internal/riseset"
)

// DefaultRefreshInterval is how often Run re-evaluates the reference date.
const DefaultRefreshInterval = 10 * time.Minute

// Calculator computes and memoizes nighttime snapshots.
//
// One mutex spans lookup, computation and insertion so that concurrent
// requests for the same night run the solver once.
type Calculator struct {
	solver   *riseset.Solver
	log      *logging.Logger
	now      func() time.Time
	loc      *time.Location
	interval time.Duration

	mu      sync.Mutex
	cache   map[cacheKey]*Data
	current time.Time // reference date last seen by Check

	subMu       sync.RWMutex
	subscribers map[chan time.Time]struct{}
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

// WithLocation sets the time zone that defines local noon for the
// reference-date notifications.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		c.loc = loc
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Calculator) {
		c.log = logging.OrDiscard(l).Named("nighttime")
	}
}

// WithRefreshInterval sets the Run ticker period.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Calculator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// NewCalculator creates a calculator backed by solver.
func NewCalculator(solver *riseset.Solver, opts ...Option) *Calculator {
	c := &Calculator{
		solver:      solver,
		log:         logging.Discard(),
		now:         time.Now,
		loc:         time.Local,
		interval:    DefaultRefreshInterval,
		cache:       make(map[cacheKey]*Data),
		subscribers: make(map[chan time.Time]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current = ReferenceDate(c.now().In(c.loc))
	return c
}

// Calculate returns the snapshot for the night containing date at obs. The
// night boundary is local noon in date's location.
func (c *Calculator) Calculate(date time.Time, obs astro.ObserverInfo) (*Data, error) {
	ref := ReferenceDate(date)
	key := keyFor(ref, obs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.cache[key]; ok {
		return d, nil
	}

	d, err := c.compute(ref, obs)
	if err != nil {
		return nil, fmt.Errorf("night of %s: %w", ref.Format("2006-01-02"), err)
	}
	c.cache[key] = d
	c.log.Debug("computed night of %s at %.6f,%.6f", ref.Format("2006-01-02"), obs.Latitude, obs.Longitude)
	return d, nil
}

// Tonight returns the snapshot for the current night in the calculator's
// location.
func (c *Calculator) Tonight(obs astro.ObserverInfo) (*Data, error) {
	return c.Calculate(c.now().In(c.loc), obs)
}

// Reset drops all cached snapshots.
func (c *Calculator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[cacheKey]*Data)
}

// Len returns the number of cached snapshots.
func (c *Calculator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// compute runs every solver pass for one night. Caller holds mu.
func (c *Calculator) compute(ref time.Time, obs astro.ObserverInfo) (*Data, error) {
	d := &Data{
		ReferenceDate: ref,
		Latitude:      obs.Latitude,
		Longitude:     obs.Longitude,
		ComputedAt:    c.now(),
	}

	var err error
	if d.Twilight, err = c.solver.TwilightRiseAndSet(riseset.TwilightAstronomical, obs, ref); err != nil {
		return nil, fmt.Errorf("astronomical twilight: %w", err)
	}
	if d.NauticalTwilight, err = c.solver.TwilightRiseAndSet(riseset.TwilightNautical, obs, ref); err != nil {
		return nil, fmt.Errorf("nautical twilight: %w", err)
	}
	if d.Sun, err = c.solver.SunRiseAndSet(obs, ref); err != nil {
		return nil, err
	}
	if d.Moon, err = c.solver.MoonRiseAndSet(obs, ref); err != nil {
		return nil, err
	}

	// Phase at local midnight of the reference night.
	if d.MoonPhase, d.Illumination, err = c.moonPhase(ref.Add(12 * time.Hour)); err != nil {
		return nil, err
	}
	return d, nil
}

// moonPhase derives phase and illumination from geocentric Sun and Moon.
func (c *Calculator) moonPhase(at time.Time) (astro.MoonPhase, float64, error) {
	sun, err := c.solver.GeocentricBody(ephem.BodySun).PositionAt(at)
	if err != nil {
		return astro.MoonPhaseUnknown, 0, err
	}
	moon, err := c.solver.GeocentricBody(ephem.BodyMoon).PositionAt(at)
	if err != nil {
		return astro.MoonPhaseUnknown, 0, err
	}

	sunRA, moonRA := astro.ByHours(sun.RA), astro.ByHours(moon.RA)
	sep := astro.Separation(moonRA, astro.ByDegree(moon.Dec), sunRA, astro.ByDegree(sun.Dec))
	illum := astro.IlluminatedFraction(astro.PhaseAngle(sep, sun.Distance, moon.Distance))

	return astro.MoonPhaseFromPositionAngle(astro.MoonPositionAngle(moonRA, sunRA)), illum, nil
}

// Subscribe registers for reference-date changes. The returned function
// unsubscribes and closes the channel; owners must call it when done.
func (c *Calculator) Subscribe() (<-chan time.Time, func()) {
	ch := make(chan time.Time, 4)
	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subscribers, ch)
			c.subMu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Current returns the reference date last observed by Check.
func (c *Calculator) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Check recomputes the reference date for now and notifies subscribers if
// it changed. It reports whether a change was broadcast.
func (c *Calculator) Check(now time.Time) bool {
	ref := ReferenceDate(now.In(c.loc))

	c.mu.Lock()
	changed := !ref.Equal(c.current)
	if changed {
		c.current = ref
	}
	c.mu.Unlock()

	if !changed {
		return false
	}
	c.log.Info("reference night changed to %s", ref.Format("2006-01-02"))
	c.broadcast(ref)
	return true
}

// broadcast delivers ref without blocking; slow subscribers miss updates.
func (c *Calculator) broadcast(ref time.Time) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for ch := range c.subscribers {
		select {
		case ch <- ref:
		default:
			c.log.Warn("subscriber queue full, dropping %s", ref.Format("2006-01-02"))
		}
	}
}

// Run checks the reference date every refresh interval until ctx is done.
func (c *Calculator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ticker.C:
			c.Check(t)
		}
	}
}
