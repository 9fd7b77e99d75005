// Package nighttime aggregates the rise/set solver into per-night snapshots:
// twilight, Sun, Moon and lunar phase for one location and one night.
package nighttime

import (
	"math"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/riseset"
)

// ReferenceDate returns the local noon that starts the night containing t.
// Times at or after noon belong to today's night, earlier times to the night
// that began yesterday. The result keeps t's location.
func ReferenceDate(t time.Time) time.Time {
	y, m, d := t.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, t.Location())
	if t.Hour() >= 12 {
		return noon
	}
	return noon.AddDate(0, 0, -1)
}

// Data is the immutable snapshot for one night at one location.
type Data struct {
	ReferenceDate time.Time
	Latitude      float64
	Longitude     float64

	// Twilight is astronomical twilight (-18°): Set is dusk, Rise is dawn.
	Twilight         riseset.RiseAndSetEvent
	NauticalTwilight riseset.RiseAndSetEvent
	Sun              riseset.RiseAndSetEvent
	Moon             riseset.RiseAndSetEvent

	MoonPhase    astro.MoonPhase
	Illumination float64 // lit fraction of the lunar disk, [0, 1]
	ComputedAt   time.Time
}

// NightDuration returns the time between astronomical dusk and dawn. When
// the Sun never reaches -18° it falls back to sunset and sunrise. It is zero
// when neither pair exists in the window.
func (d *Data) NightDuration() time.Duration {
	if dur, ok := span(d.Twilight); ok {
		return dur
	}
	if dur, ok := span(d.Sun); ok {
		return dur
	}
	return 0
}

// Dusk returns astronomical dusk, falling back to sunset.
func (d *Data) Dusk() *time.Time {
	if d.Twilight.Set != nil {
		return d.Twilight.Set
	}
	return d.Sun.Set
}

// Dawn returns astronomical dawn, falling back to sunrise.
func (d *Data) Dawn() *time.Time {
	if d.Twilight.Rise != nil {
		return d.Twilight.Rise
	}
	return d.Sun.Rise
}

// span measures set to the following rise within a noon-to-noon window.
func span(ev riseset.RiseAndSetEvent) (time.Duration, bool) {
	if ev.Set == nil || ev.Rise == nil || !ev.Rise.After(*ev.Set) {
		return 0, false
	}
	return ev.Rise.Sub(*ev.Set), true
}

// cacheKey identifies a night at a location rounded to 6 decimal places.
type cacheKey struct {
	ref      int64
	lat, lon int64
}

func keyFor(ref time.Time, obs astro.ObserverInfo) cacheKey {
	return cacheKey{
		ref: ref.Unix(),
		lat: int64(math.Round(obs.Latitude * 1e6)),
		lon: int64(math.Round(obs.Longitude * 1e6)),
	}
}
