package riseset

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/timescale"
)

func newTestSolver(t *testing.T, opts ...Option) *Solver {
	t.Helper()
	backend, err := ephem.NewMeeusBackend("")
	if err != nil {
		t.Fatalf("NewMeeusBackend() error = %v", err)
	}
	conv := timescale.NewConverter(timescale.NewUT1Cache(nil), backend)
	return NewSolver(conv, backend, opts...)
}

// failingBackend wraps the Meeus backend but fails every position lookup.
type failingBackend struct {
	*ephem.MeeusBackend
	err error
}

func (f failingBackend) ApparentPosition(float64, ephem.Body, astro.ObserverInfo, ephem.Accuracy) (ephem.Position, error) {
	return ephem.Position{}, f.err
}

func jnow(raHours, decDeg float64) astro.Coordinates {
	return astro.NewCoordinates(raHours, decDeg, astro.EpochJNOW, time.Time{})
}

func TestRiseAndSet_EquatorialTarget(t *testing.T) {
	s := newTestSolver(t)
	obs := astro.ObserverInfo{}
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	ev, err := s.RiseAndSet(s.Fixed("equator", jnow(0, 0)), obs, start, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Rise == nil || ev.Set == nil || ev.Transit == nil {
		t.Fatalf("expected rise, set and transit, got %+v", ev)
	}

	// Half a sidereal day either way.
	d := ev.Set.Sub(*ev.Rise)
	if d < 0 {
		d = -d
	}
	want := 11*time.Hour + 58*time.Minute + 2*time.Second
	if diff := d - want; diff > time.Minute || diff < -time.Minute {
		t.Errorf("rise/set separation = %v, want ~%v", d, want)
	}

	top, err := s.Evaluate(s.Fixed("equator", jnow(0, 0)), obs, *ev.Transit)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(top.Altitude.Degrees()-90) > 0.1 {
		t.Errorf("altitude at transit = %v, want ~90", top.Altitude.Degrees())
	}
}

func TestSunRiseAndSet_EquatorAtEquinox(t *testing.T) {
	s := newTestSolver(t)
	obs := astro.ObserverInfo{}
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	ev, err := s.SunRiseAndSet(obs, start)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Rise == nil || ev.Set == nil || ev.Transit == nil {
		t.Fatalf("expected sunrise, sunset and transit, got %+v", ev)
	}

	d := ev.Set.Sub(*ev.Rise)
	if d < 0 {
		d = -d
	}
	if diff := d - 12*time.Hour; diff > 2*time.Minute || diff < -2*time.Minute {
		t.Errorf("sunrise/sunset separation = %v, want ~12h", d)
	}

	sun := s.Body(ephem.BodySun, obs)
	coords, err := sun.CoordinatesAt(*ev.Transit)
	if err != nil {
		t.Fatal(err)
	}
	top, err := s.Evaluate(sun, obs, *ev.Transit)
	if err != nil {
		t.Fatal(err)
	}
	want := 90 - math.Abs(coords.Dec.Degrees())
	if math.Abs(top.Altitude.Degrees()-want) > 0.05 {
		t.Errorf("Sun altitude at transit = %.4f, want %.4f", top.Altitude.Degrees(), want)
	}
}

func TestRiseAndSet_Bracketing(t *testing.T) {
	s := newTestSolver(t)
	obs := astro.ObserverInfo{Latitude: 48.2, Longitude: 16.37}
	start := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	target := s.Fixed("Vega", astro.NewCoordinates(18.6156, 38.7837, astro.EpochJ2000, time.Time{}))

	ev, err := s.RiseAndSet(target, obs, start, 20)
	if err != nil {
		t.Fatal(err)
	}

	for name, at := range map[string]*time.Time{"rise": ev.Rise, "set": ev.Set} {
		if at == nil {
			t.Fatalf("%s missing", name)
		}
		if at.Before(start) || at.After(start.Add(DefaultWindow)) {
			t.Errorf("%s %v outside search window", name, at)
		}
		top, err := s.Evaluate(target, obs, *at)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(top.Altitude.Degrees()-20) > 0.05 {
			t.Errorf("altitude at %s = %v, want 20", name, top.Altitude.Degrees())
		}
	}
}

func TestRiseAndSet_NoCrossing(t *testing.T) {
	s := newTestSolver(t)
	obs := astro.ObserverInfo{Latitude: 80}
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dec  float64
	}{
		{"circumpolar", 85},
		{"never rises", -85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := s.RiseAndSet(s.Fixed(tt.name, jnow(6, tt.dec)), obs, start, 0)
			if err != nil {
				t.Fatalf("non-event should not be an error: %v", err)
			}
			if !ev.Circumpolar() {
				t.Errorf("expected no rise or set, got rise=%v set=%v", ev.Rise, ev.Set)
			}
			if ev.Transit == nil {
				t.Error("transit should still be found")
			}
		})
	}
}

func TestRiseAndSet_SunMatchesReference(t *testing.T) {
	s := newTestSolver(t)

	tests := []struct {
		name     string
		lat, lon float64
		date     time.Time
		start    time.Time
	}{
		{"New York summer", 40.7128, -74.006, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 15, 4, 0, 0, 0, time.UTC)},
		{"Vienna winter", 48.2082, 16.3738, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 11, 30, 23, 0, 0, 0, time.UTC)},
		{"Sydney", -33.8688, 151.2093, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := astro.ObserverInfo{Latitude: tt.lat, Longitude: tt.lon}
			ev, err := s.RiseAndSet(s.Body(ephem.BodySun, obs), obs, tt.start, -0.833)
			if err != nil {
				t.Fatal(err)
			}
			if ev.Rise == nil || ev.Set == nil {
				t.Fatalf("expected sunrise and sunset, got %+v", ev)
			}

			rise, set := sunrise.SunriseSunset(tt.lat, tt.lon, tt.date.Year(), tt.date.Month(), tt.date.Day())
			if d := ev.Rise.Sub(rise); d > 2*time.Minute || d < -2*time.Minute {
				t.Errorf("sunrise = %v, reference %v", ev.Rise.UTC(), rise)
			}
			if d := ev.Set.Sub(set); d > 2*time.Minute || d < -2*time.Minute {
				t.Errorf("sunset = %v, reference %v", ev.Set.UTC(), set)
			}
		})
	}
}

func TestTwilightRiseAndSet(t *testing.T) {
	s := newTestSolver(t)

	// Midsummer at 60°N: the Sun bottoms out near -6.6°.
	obs := astro.ObserverInfo{Latitude: 60, Longitude: 0}
	start := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)

	civil, err := s.TwilightRiseAndSet(TwilightCivil, obs, start)
	if err != nil {
		t.Fatal(err)
	}
	if civil.Rise == nil || civil.Set == nil {
		t.Errorf("civil twilight should occur, got %+v", civil)
	}

	for _, tw := range []Twilight{TwilightNautical, TwilightAstronomical} {
		ev, err := s.TwilightRiseAndSet(tw, obs, start)
		if err != nil {
			t.Fatal(err)
		}
		if !ev.Circumpolar() {
			t.Errorf("%s twilight should not occur at 60°N in June", tw)
		}
	}

	// Mid-latitudes: dusk deepens in order.
	obs = astro.ObserverInfo{Latitude: 45, Longitude: 0}
	start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var prev time.Time
	for _, tw := range []Twilight{TwilightCivil, TwilightNautical, TwilightAstronomical} {
		ev, err := s.TwilightRiseAndSet(tw, obs, start)
		if err != nil {
			t.Fatal(err)
		}
		if ev.Set == nil {
			t.Fatalf("%s dusk missing", tw)
		}
		if !ev.Set.After(prev) {
			t.Errorf("%s dusk %v not after %v", tw, ev.Set, prev)
		}
		prev = *ev.Set
	}
}

func TestTwilight_Threshold(t *testing.T) {
	tests := []struct {
		tw   Twilight
		want float64
		name string
	}{
		{TwilightCivil, -6, "civil"},
		{TwilightNautical, -12, "nautical"},
		{TwilightAstronomical, -18, "astronomical"},
	}
	for _, tt := range tests {
		if got := tt.tw.Threshold(); got != tt.want {
			t.Errorf("%v.Threshold() = %v, want %v", tt.tw, got, tt.want)
		}
		if got := tt.tw.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}

func TestRiseAndSet_BackendErrorPropagates(t *testing.T) {
	meeus, err := ephem.NewMeeusBackend("")
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("ephemeris offline")
	backend := failingBackend{MeeusBackend: meeus, err: boom}
	s := NewSolver(timescale.NewConverter(nil, meeus), backend)

	obs := astro.ObserverInfo{Latitude: 10}
	_, err = s.MoonRiseAndSet(obs, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, boom) {
		t.Errorf("MoonRiseAndSet() error = %v, want wrapped %v", err, boom)
	}
}

func TestShiftTrackingRate(t *testing.T) {
	s := newTestSolver(t)
	obs := astro.ObserverInfo{Latitude: 35, Longitude: -110}
	at := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

	ra, dec, err := s.Fixed("star", jnow(3, 20)).ShiftTrackingRateAt(at)
	if err != nil || ra != 0 || dec != 0 {
		t.Errorf("fixed target rate = (%v, %v, %v), want zero", ra, dec, err)
	}

	sun := NewSolarSystemBody(ephem.BodySun, s.backend, s.conv, obs, ephem.AccuracyReduced)
	ra, dec, err = sun.ShiftTrackingRateAt(at)
	if err != nil {
		t.Fatal(err)
	}
	// Roughly one degree per day eastward in early April.
	if ra < 0.03 || ra > 0.05 {
		t.Errorf("Sun RA rate = %v arcsec/s, want ~0.04", ra)
	}
	if dec <= 0 {
		t.Errorf("Sun Dec rate = %v, want northward in April", dec)
	}

	moon := NewSolarSystemBody(ephem.BodyMoon, s.backend, s.conv, obs, ephem.AccuracyReduced)
	ra, _, err = moon.ShiftTrackingRateAt(at)
	if err != nil {
		t.Fatal(err)
	}
	if ra < 0.3 || ra > 0.9 {
		t.Errorf("Moon RA rate = %v arcsec/s, want ~0.5", ra)
	}
}

func TestWrap180(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{359.5, -0.5},
		{-359.5, 0.5},
		{180, -180},
		{190, -170},
	}
	for _, tt := range tests {
		if got := wrap180(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("wrap180(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	s := newTestSolver(t)
	obs := astro.ObserverInfo{Latitude: 45}

	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{"sun", "Sun", nil},
		{" Luna ", "Moon", nil},
		{"vega", "Vega", nil},
		{"Mars", "", ephem.ErrBodyUnavailable}, // no VSOP87 files loaded
		{"Rigil Kentaurus B", "", ErrUnknownTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := s.Lookup(tt.name, obs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Lookup(%q) error = %v, want %v", tt.name, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if target.Name() != tt.want {
				t.Errorf("Lookup(%q).Name() = %q, want %q", tt.name, target.Name(), tt.want)
			}
		})
	}
}
