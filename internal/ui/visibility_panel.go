package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-nightsky/internal/state"
)

// AltitudeTier buckets an altitude for colouring.
type AltitudeTier int

const (
	AltitudeNone   AltitudeTier = iota // below horizon
	AltitudeLow                        // 0-20°
	AltitudeMedium                     // 20-45°
	AltitudeHigh                       // 45° and above
)

// TierFor returns the tier of alt degrees.
func TierFor(alt float64) AltitudeTier {
	switch {
	case alt >= 45:
		return AltitudeHigh
	case alt >= 20:
		return AltitudeMedium
	case alt >= 0:
		return AltitudeLow
	default:
		return AltitudeNone
	}
}

// Visibility display colors
const (
	colorVisHigh   = "#7CFC00" // Lawn green - high altitude
	colorVisMedium = "#FFD700" // Gold - medium altitude
	colorVisLow    = "#FF6347" // Tomato - low altitude
	colorVisNone   = "#444444" // Dark gray - below horizon
)

// RenderVisibilityPanel renders one line per target.
// Format:
//
//	Vega      Rise 16:02   Peak 23:02 @ 81°   Set 06:10
//	Sirius    Below horizon
//	Dubhe     Always up, peak 75°
func RenderVisibilityPanel(targets []state.TargetStatus, loc *time.Location) string {
	if len(targets) == 0 {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)

	var lines []string
	for _, t := range targets {
		line := labelStyle.Render(fmt.Sprintf("%-10s", truncate(t.Name, 10)))
		tier := TierFor(t.MaxAltitude)

		if t.Events.Circumpolar() {
			if t.MaxAltitude < 0 {
				line += dimStyle.Render("Below horizon")
			} else {
				line += colorByTier(tier, fmt.Sprintf("Always up, peak %.0f°", t.MaxAltitude))
			}
			lines = append(lines, line)
			continue
		}

		var parts []string
		if t.Events.Rise != nil {
			parts = append(parts, fmt.Sprintf("Rise %s", t.Events.Rise.In(loc).Format("15:04")))
		}
		if t.Events.Transit != nil {
			parts = append(parts, fmt.Sprintf("Peak %s @ %.0f°", t.Events.Transit.In(loc).Format("15:04"), t.MaxAltitude))
		}
		if t.Events.Set != nil {
			parts = append(parts, fmt.Sprintf("Set %s", t.Events.Set.In(loc).Format("15:04")))
		}
		line += colorByTier(tier, strings.Join(parts, "   "))
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// RenderVisibilityBar renders a compact bar of current altitudes.
// Format: Vega ████   Sirius ░░░░   Mars ██░░
func RenderVisibilityBar(targets []state.TargetStatus) string {
	if len(targets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, renderBarSegment(t.Name, TierFor(t.Position.Altitude.Degrees())))
	}
	return strings.Join(parts, "   ")
}

// renderBarSegment renders one target's bar segment.
func renderBarSegment(name string, tier AltitudeTier) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(tierToColor(tier)))
	return labelStyle.Render(name+" ") + barStyle.Render(tierToBar(tier))
}

// tierToBar converts an altitude tier to a 4-character bar.
func tierToBar(tier AltitudeTier) string {
	switch tier {
	case AltitudeHigh:
		return "████"
	case AltitudeMedium:
		return "██░░"
	case AltitudeLow:
		return "█░░░"
	default:
		return "░░░░"
	}
}

// tierToColor returns the color for an altitude tier.
func tierToColor(tier AltitudeTier) string {
	switch tier {
	case AltitudeHigh:
		return colorVisHigh
	case AltitudeMedium:
		return colorVisMedium
	case AltitudeLow:
		return colorVisLow
	default:
		return colorVisNone
	}
}

// colorByTier applies tier-based coloring to text.
func colorByTier(tier AltitudeTier, text string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(tierToColor(tier)))
	return style.Render(text)
}

// RenderCurrentAltitude renders the current altitude of one target.
func RenderCurrentAltitude(t state.TargetStatus) string {
	alt := t.Position.Altitude.Degrees()
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(tierToColor(TierFor(alt))))
	if alt < 0 {
		return style.Render("Below horizon")
	}
	return style.Render(fmt.Sprintf("%.0f°", alt))
}
