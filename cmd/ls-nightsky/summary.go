package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/litescript/ls-nightsky/internal/state"
	"github.com/litescript/ls-nightsky/internal/ui"
)

// writeSummary prints the night and target table. color adds the tiered
// visibility panel for terminals.
func writeSummary(w io.Writer, snap state.Snapshot, loc *time.Location, color bool) error {
	night := snap.Night
	if night == nil {
		if snap.LastError != nil {
			return snap.LastError
		}
		return fmt.Errorf("no night computed")
	}

	obs := snap.Observer
	fmt.Fprintf(w, "Night of %s @ %s (%.4f, %.4f)\n",
		night.ReferenceDate.In(loc).Format("2006-01-02"), obs.Name, obs.Latitude, obs.Longitude)
	fmt.Fprintln(w, strings.Repeat("─", 72))

	if len(snap.Milestones) == 0 {
		fmt.Fprintln(w, "No Sun or twilight events in this window")
	}
	for _, ms := range snap.Milestones {
		fmt.Fprintf(w, "%-18s %s\n", ms.Label, ms.Time.In(loc).Format("15:04"))
	}
	if dark := night.NightDuration(); dark > 0 {
		fmt.Fprintf(w, "%-18s %s\n", "Darkness", dark.Round(time.Minute))
	}
	fmt.Fprintf(w, "%-18s %s, %.0f%% lit\n", "Moon", night.MoonPhase, night.Illumination*100)

	if len(snap.Targets) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-14s %7s %7s %-6s %-6s %-6s %7s\n", "Target", "Alt", "Az", "Rise", "Peak", "Set", "Max")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, t := range snap.Targets {
		fmt.Fprintf(w, "%-14s %6.1f° %6.1f° %-6s %-6s %-6s %6.1f°\n",
			truncateStr(t.Name, 14),
			t.Position.Altitude.Degrees(),
			t.Position.Azimuth.Degrees(),
			hhmm(t.Events.Rise, loc),
			hhmm(t.Events.Transit, loc),
			hhmm(t.Events.Set, loc),
			t.MaxAltitude,
		)
	}

	if color {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.RenderVisibilityPanel(snap.Targets, loc))
	}
	return nil
}

func hhmm(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "--"
	}
	return t.In(loc).Format("15:04")
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
