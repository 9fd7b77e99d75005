package nighttime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/riseset"
	"github.com/litescript/ls-nightsky/internal/timescale"
)

// countingBackend counts position lookups and can be made to fail.
type countingBackend struct {
	*ephem.MeeusBackend
	calls atomic.Int64
	err   error
}

func (b *countingBackend) ApparentPosition(jd float64, body ephem.Body, obs astro.ObserverInfo, acc ephem.Accuracy) (ephem.Position, error) {
	b.calls.Add(1)
	if b.err != nil {
		return ephem.Position{}, b.err
	}
	return b.MeeusBackend.ApparentPosition(jd, body, obs, acc)
}

func newTestCalculator(t *testing.T, opts ...Option) (*Calculator, *countingBackend) {
	t.Helper()
	meeus, err := ephem.NewMeeusBackend("")
	if err != nil {
		t.Fatal(err)
	}
	backend := &countingBackend{MeeusBackend: meeus}
	conv := timescale.NewConverter(nil, meeus)
	return NewCalculator(riseset.NewSolver(conv, backend), opts...), backend
}

func TestReferenceDate(t *testing.T) {
	vienna := time.FixedZone("CET", 3600)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"afternoon", time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"exactly noon", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"just before noon", time.Date(2024, 5, 1, 11, 59, 59, 0, time.UTC), time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)},
		{"after midnight", time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC), time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC)},
		{"local zone kept", time.Date(2024, 3, 1, 2, 0, 0, 0, vienna), time.Date(2024, 2, 29, 12, 0, 0, 0, vienna)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReferenceDate(tt.in)
			if !got.Equal(tt.want) || got.Location() != tt.want.Location() {
				t.Errorf("ReferenceDate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNightDuration(t *testing.T) {
	at := func(h int) *time.Time {
		v := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour)
		return &v
	}

	tests := []struct {
		name string
		data Data
		want time.Duration
	}{
		{
			name: "astronomical night",
			data: Data{
				Twilight: riseset.RiseAndSetEvent{Set: at(9), Rise: at(16)},
				Sun:      riseset.RiseAndSetEvent{Set: at(7), Rise: at(18)},
			},
			want: 7 * time.Hour,
		},
		{
			name: "falls back to sunset",
			data: Data{Sun: riseset.RiseAndSetEvent{Set: at(8), Rise: at(17)}},
			want: 9 * time.Hour,
		},
		{
			name: "midnight sun",
			data: Data{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.data.NightDuration(); got != tt.want {
				t.Errorf("NightDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculate_MidLatitudeNight(t *testing.T) {
	c, _ := newTestCalculator(t)
	obs := astro.ObserverInfo{Latitude: 48.2082, Longitude: 16.3738}

	d, err := c.Calculate(time.Date(2024, 11, 15, 20, 0, 0, 0, time.UTC), obs)
	if err != nil {
		t.Fatal(err)
	}

	if !d.ReferenceDate.Equal(time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ReferenceDate = %v", d.ReferenceDate)
	}
	for name, ev := range map[string]riseset.RiseAndSetEvent{
		"astronomical": d.Twilight, "nautical": d.NauticalTwilight, "sun": d.Sun,
	} {
		if ev.Rise == nil || ev.Set == nil {
			t.Fatalf("%s: expected dusk and dawn, got %+v", name, ev)
		}
	}
	if !d.Sun.Set.Before(*d.NauticalTwilight.Set) || !d.NauticalTwilight.Set.Before(*d.Twilight.Set) {
		t.Error("dusk events out of order")
	}
	if dur := d.NightDuration(); dur < 10*time.Hour || dur > 13*time.Hour {
		t.Errorf("NightDuration() = %v, want about 11.5h in November", dur)
	}
	if d.Illumination < 0 || d.Illumination > 1 {
		t.Errorf("Illumination = %v outside [0, 1]", d.Illumination)
	}
}

func TestCalculate_WhiteNightFallsBack(t *testing.T) {
	c, _ := newTestCalculator(t)
	obs := astro.ObserverInfo{Latitude: 55, Longitude: 0}

	d, err := c.Calculate(time.Date(2024, 6, 21, 13, 0, 0, 0, time.UTC), obs)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Twilight.Circumpolar() {
		t.Fatalf("astronomical twilight should not occur, got %+v", d.Twilight)
	}
	if d.Sun.Set == nil || d.Sun.Rise == nil {
		t.Fatal("expected sunset and sunrise")
	}
	if got, want := d.NightDuration(), d.Sun.Rise.Sub(*d.Sun.Set); got != want {
		t.Errorf("NightDuration() = %v, want sunset-to-sunrise %v", got, want)
	}
	if d.Dusk() != d.Sun.Set || d.Dawn() != d.Sun.Rise {
		t.Error("Dusk/Dawn should fall back to the Sun")
	}
}

func TestCalculate_MoonPhase(t *testing.T) {
	c, _ := newTestCalculator(t)
	obs := astro.ObserverInfo{Latitude: 0, Longitude: 0}

	tests := []struct {
		name     string
		date     time.Time
		phase    astro.MoonPhase
		minIllum float64
		maxIllum float64
	}{
		{"new moon 2024-04-08", time.Date(2024, 4, 8, 13, 0, 0, 0, time.UTC), astro.NewMoon, 0, 0.02},
		{"full moon 2024-04-23", time.Date(2024, 4, 23, 15, 0, 0, 0, time.UTC), astro.FullMoon, 0.98, 1},
		{"first quarter 2024-04-15", time.Date(2024, 4, 15, 13, 0, 0, 0, time.UTC), astro.FirstQuarter, 0.4, 0.65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := c.Calculate(tt.date, obs)
			if err != nil {
				t.Fatal(err)
			}
			if d.MoonPhase != tt.phase {
				t.Errorf("MoonPhase = %v, want %v", d.MoonPhase, tt.phase)
			}
			if d.Illumination < tt.minIllum || d.Illumination > tt.maxIllum {
				t.Errorf("Illumination = %v, want [%v, %v]", d.Illumination, tt.minIllum, tt.maxIllum)
			}
		})
	}
}

func TestCalculate_Memoized(t *testing.T) {
	c, backend := newTestCalculator(t)
	obs := astro.ObserverInfo{Latitude: 40.1234564, Longitude: -105.2}

	first, err := c.Calculate(time.Date(2024, 8, 1, 22, 0, 0, 0, time.UTC), obs)
	if err != nil {
		t.Fatal(err)
	}
	calls := backend.calls.Load()

	// Same night, coordinates equal at 6 decimals.
	obs.Latitude = 40.1234561
	second, err := c.Calculate(time.Date(2024, 8, 2, 9, 0, 0, 0, time.UTC), obs)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the cached snapshot")
	}
	if backend.calls.Load() != calls {
		t.Errorf("backend called again: %d -> %d", calls, backend.calls.Load())
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() after Reset = %d", c.Len())
	}
	third, err := c.Calculate(time.Date(2024, 8, 1, 22, 0, 0, 0, time.UTC), obs)
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("Reset should force recomputation")
	}
}

func TestCalculate_ConcurrentSingleComputation(t *testing.T) {
	date := time.Date(2024, 10, 3, 18, 0, 0, 0, time.UTC)
	obs := astro.ObserverInfo{Latitude: -31.95, Longitude: 115.86}

	ref, refBackend := newTestCalculator(t)
	if _, err := ref.Calculate(date, obs); err != nil {
		t.Fatal(err)
	}
	want := refBackend.calls.Load()

	c, backend := newTestCalculator(t)
	results := make([]*Data, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := c.Calculate(date, obs)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = d
		}(i)
	}
	wg.Wait()

	if got := backend.calls.Load(); got != want {
		t.Errorf("backend calls = %d, want %d from a single computation", got, want)
	}
	for i, d := range results {
		if d != results[0] {
			t.Errorf("result %d differs from result 0", i)
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCalculate_BackendError(t *testing.T) {
	c, backend := newTestCalculator(t)
	backend.err = ephem.ErrBodyUnavailable

	_, err := c.Calculate(time.Date(2024, 2, 2, 20, 0, 0, 0, time.UTC), astro.ObserverInfo{Latitude: 10})
	if !errors.Is(err, ephem.ErrBodyUnavailable) {
		t.Errorf("error = %v, want ErrBodyUnavailable", err)
	}
	if c.Len() != 0 {
		t.Error("failed computations must not be cached")
	}
}

func TestCheck_NotifiesOnReferenceChange(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c, _ := newTestCalculator(t, WithClock(func() time.Time { return start }), WithLocation(time.UTC))

	ch, unsub := c.Subscribe()

	if c.Check(start.Add(time.Hour)) {
		t.Error("11:00 is still the previous night")
	}
	if !c.Check(start.Add(2*time.Hour + 30*time.Minute)) {
		t.Fatal("12:30 should start a new night")
	}

	select {
	case ref := <-ch:
		if want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC); !ref.Equal(want) {
			t.Errorf("notified %v, want %v", ref, want)
		}
	default:
		t.Fatal("no notification")
	}
	if !c.Current().Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Current() = %v", c.Current())
	}

	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	// No subscribers left; must not panic on a closed channel.
	c.Check(start.AddDate(0, 0, 2))
}

func TestRun_StopsOnCancel(t *testing.T) {
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c, _ := newTestCalculator(t,
		WithClock(func() time.Time { return past }),
		WithRefreshInterval(5*time.Millisecond),
	)
	ch, unsub := c.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reference change from the first tick")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
