package main

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/config"
	"github.com/litescript/ls-nightsky/internal/logging"
	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
	"github.com/litescript/ls-nightsky/internal/state"
)

func TestSplitTargets(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Vega", []string{"Vega"}},
		{" Vega, Sirius ,,Moon", []string{"Vega", "Sirius", "Moon"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		if got := splitTargets(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitTargets(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	ref := time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { t := ref.Add(d); return &t }

	night := &nighttime.Data{
		ReferenceDate: ref,
		Sun:           riseset.RiseAndSetEvent{Set: at(4*time.Hour + 30*time.Minute), Rise: at(19 * time.Hour)},
		Twilight:      riseset.RiseAndSetEvent{Set: at(6 * time.Hour), Rise: at(17*time.Hour + 30*time.Minute)},
		MoonPhase:     astro.WaxingGibbous,
		Illumination:  0.81,
	}
	snap := state.Snapshot{
		Observer:   astro.ObserverInfo{Name: "Vienna", Latitude: 48.2082, Longitude: 16.3738},
		Night:      night,
		Milestones: state.Milestones(night),
		Targets: []state.TargetStatus{{
			Name:        "Vega",
			Position:    astro.TopocentricCoordinates{Altitude: astro.ByDegree(42), Azimuth: astro.ByDegree(290)},
			Events:      riseset.RiseAndSetEvent{Transit: at(9 * time.Hour)},
			MaxAltitude: 80.6,
		}},
	}

	var buf bytes.Buffer
	if err := writeSummary(&buf, snap, time.UTC, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Night of 2024-11-15 @ Vienna",
		"Sunset             16:30",
		"Astronomical dawn  05:30",
		"Darkness           11h30m0s",
		"Waxing Gibbous, 81% lit",
		"Vega",
		"21:00",
		"80.6°",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Always up") {
		t.Error("plain output should not include the visibility panel")
	}
}

func TestWriteSummary_NoNight(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("ephemeris offline")
	if err := writeSummary(&buf, state.Snapshot{LastError: boom}, time.UTC, false); !errors.Is(err, boom) {
		t.Errorf("err = %v, want last error", err)
	}
	if err := writeSummary(&buf, state.Snapshot{}, time.UTC, false); err == nil {
		t.Error("expected an error without a night")
	}
}

func TestNewApp_RunSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Ephemeris.Mode = "meeus"
	cfg.Targets = []string{"Vega"}
	cfg.Observer.Timezone = "UTC"

	a, err := newApp(cfg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()

	if err := a.runSummary("not-a-date"); err == nil {
		t.Error("expected an error for a bad -date")
	}
	if err := a.refresher.RefreshAt(time.Date(2024, 11, 15, 21, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	snap := a.mgr.Snapshot()
	if snap.Night == nil || len(snap.Targets) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := snap.Night.ReferenceDate; !got.Equal(time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("reference date = %v", got)
	}
}
