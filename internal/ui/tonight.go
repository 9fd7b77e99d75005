package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
	"github.com/litescript/ls-nightsky/internal/state"
)

// SparklineWidth is the number of cells in the altitude sparkline and the
// darkness timeline.
const SparklineWidth = 48

// sparklineBlocks are the eight block heights, lowest first.
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Altitude gradient: low (dark blue) → mid (blue) → high (cyan).
var (
	altColorLow  = [3]uint8{0x1e, 0x2a, 0x5a}
	altColorMid  = [3]uint8{0x3b, 0x82, 0xf6}
	altColorHigh = [3]uint8{0x67, 0xe8, 0xf9}
)

// Darkness levels for the timeline.
type darkness int

const (
	darknessDay darkness = iota
	darknessTwilight
	darknessNight
)

// TonightModel summarizes the current night and one focused target.
type TonightModel struct {
	width    int
	height   int
	animTick int
	loc      *time.Location
	now      func() time.Time

	snapshot state.Snapshot
	focus    string
}

// NewTonightModel creates the night summary view showing times in loc.
func NewTonightModel(loc *time.Location) TonightModel {
	if loc == nil {
		loc = time.Local
	}
	return TonightModel{loc: loc, now: time.Now}
}

// SetSize updates the viewport size.
func (m TonightModel) SetSize(width, height int) TonightModel {
	m.width = width
	m.height = height
	return m
}

// SetAnimTick updates the shimmer phase.
func (m TonightModel) SetAnimTick(tick int) TonightModel {
	m.animTick = tick
	return m
}

// UpdateData updates the model with new data.
func (m TonightModel) UpdateData(snapshot state.Snapshot) TonightModel {
	m.snapshot = snapshot
	if m.focusedTarget() == nil && len(snapshot.Targets) > 0 {
		m.focus = snapshot.Targets[0].Name
	}
	return m
}

// SetFocus selects the target whose profile is shown.
func (m TonightModel) SetFocus(name string) TonightModel {
	m.focus = name
	return m
}

// Focus returns the focused target name.
func (m TonightModel) Focus() string {
	return m.focus
}

// Update handles messages.
func (m TonightModel) Update(msg tea.Msg) (TonightModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "right", "l":
			m.cycleFocus(1)
		case "left", "h":
			m.cycleFocus(-1)
		}
	}
	return m, nil
}

func (m *TonightModel) cycleFocus(step int) {
	targets := m.snapshot.Targets
	if len(targets) == 0 {
		return
	}
	idx := 0
	for i, t := range targets {
		if t.Name == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + step + len(targets)) % len(targets)
	m.focus = targets[idx].Name
}

func (m TonightModel) focusedTarget() *state.TargetStatus {
	for i := range m.snapshot.Targets {
		if m.snapshot.Targets[i].Name == m.focus {
			return &m.snapshot.Targets[i]
		}
	}
	return nil
}

// View renders the night summary.
func (m TonightModel) View() string {
	night := m.snapshot.Night
	if night == nil {
		if m.snapshot.LastError != nil {
			return errorStyle.Render("Error: " + m.snapshot.LastError.Error())
		}
		return m.renderShimmerText("Computing tonight's sky...")
	}

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var b strings.Builder

	obs := m.snapshot.Observer
	name := obs.Name
	if name == "" {
		name = "Observer"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Night of %s", night.ReferenceDate.In(m.loc).Format("Mon 2 Jan 2006"))))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s (%.4f°, %.4f°, %.0f m)", name, obs.Latitude, obs.Longitude, obs.Elevation)))
	b.WriteString("\n\n")

	if len(m.snapshot.Milestones) == 0 {
		b.WriteString(labelStyle.Render("  No twilight or Sun events in this window") + "\n")
	}
	for _, ms := range m.snapshot.Milestones {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-18s", ms.Label)))
		b.WriteString(valueStyle.Render(ms.Time.In(m.loc).Format("15:04")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	dark := night.NightDuration()
	b.WriteString(labelStyle.Render("  Darkness          "))
	if dark > 0 {
		b.WriteString(valueStyle.Render(formatDuration(dark)))
	} else {
		b.WriteString(valueStyle.Render("none"))
	}
	b.WriteString("\n  ")
	b.WriteString(m.renderDarknessTimeline(night))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("  Moon              "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s, %.0f%% lit", night.MoonPhase, night.Illumination*100)))
	b.WriteString("\n\n")

	if t := m.focusedTarget(); t != nil {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-18s", t.Name)))
		b.WriteString(m.renderAltitudeSparkline(t.Profile))
		b.WriteString("\n")
		b.WriteString("  " + RenderVisibilityPanel([]state.TargetStatus{*t}, m.loc))
		b.WriteString("\n")
	}

	if events := m.snapshot.Events; len(events) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Recent events"))
		b.WriteString("\n")
		start := max(len(events)-5, 0)
		for _, e := range events[start:] {
			line := fmt.Sprintf("  %s  %-14s %s %s", e.Timestamp.In(m.loc).Format("15:04:05"), e.Type, e.Target, e.Detail)
			b.WriteString(dimStyle.Render(strings.TrimRight(line, " ")))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderDarknessTimeline draws noon to noon, one cell per half hour, with a
// marker at the current time.
func (m TonightModel) renderDarknessTimeline(night *nighttime.Data) string {
	var sb strings.Builder
	step := 24 * time.Hour / SparklineWidth
	nowIdx := -1
	if now := m.now(); !now.Before(night.ReferenceDate) {
		if idx := int(now.Sub(night.ReferenceDate) / step); idx < SparklineWidth {
			nowIdx = idx
		}
	}

	for i := 0; i < SparklineWidth; i++ {
		t := night.ReferenceDate.Add(time.Duration(i)*step + step/2)
		glyph, color := "░", "#FFD27F"
		switch darknessAt(night, t) {
		case darknessNight:
			glyph, color = "█", "#1E1B4B"
		case darknessTwilight:
			glyph, color = "▓", "#6D28D9"
		}
		if i == nowIdx {
			glyph, color = "│", "229"
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(glyph))
	}
	return sb.String()
}

// darknessAt classifies t against the night's Sun and astronomical twilight
// events.
func darknessAt(night *nighttime.Data, t time.Time) darkness {
	if between(night.Twilight, t) {
		return darknessNight
	}
	if between(night.Sun, t) {
		return darknessTwilight
	}
	return darknessDay
}

// between reports whether t falls after ev's set and before its rise. A
// missing set or rise is treated as the window edge.
func between(ev riseset.RiseAndSetEvent, t time.Time) bool {
	if ev.Set == nil && ev.Rise == nil {
		return false
	}
	if ev.Set != nil && t.Before(*ev.Set) {
		return false
	}
	if ev.Rise != nil && !t.Before(*ev.Rise) {
		return false
	}
	return true
}

// renderAltitudeSparkline renders a target's altitude over the night with
// per-cell colouring. Cells below the horizon render as the lowest block.
func (m TonightModel) renderAltitudeSparkline(profile []riseset.ProfilePoint) string {
	samples := resampleAltitude(profile, SparklineWidth)
	if len(samples) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("No altitude profile")
	}

	var sb strings.Builder
	for _, alt := range samples {
		alt = max(0, min(alt, 90))
		t := alt / 90.0

		blockIdx := min(int(t*7.0), 7)
		r, g, b := interpolateAltColor(t)
		color := fmt.Sprintf("#%02x%02x%02x", r, g, b)
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(sparklineBlocks[blockIdx])))
	}

	if t := m.focusedTarget(); t != nil {
		nowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		sb.WriteString(nowStyle.Render(fmt.Sprintf(" now: %.0f°", t.Position.Altitude.Degrees())))
	}
	return sb.String()
}

// interpolateAltColor returns the RGB color for altitude fraction t in [0, 1].
func interpolateAltColor(t float64) (uint8, uint8, uint8) {
	t = max(0, min(t, 1))

	from, to, s := altColorLow, altColorMid, t*2
	if t >= 0.5 {
		from, to, s = altColorMid, altColorHigh, (t-0.5)*2
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-s) + float64(b)*s)
	}
	return mix(from[0], to[0]), mix(from[1], to[1]), mix(from[2], to[2])
}

// resampleAltitude averages profile points into width buckets.
func resampleAltitude(points []riseset.ProfilePoint, width int) []float64 {
	if len(points) == 0 || width <= 0 {
		return nil
	}

	result := make([]float64, width)
	perBucket := float64(len(points)) / float64(width)

	for i := 0; i < width; i++ {
		startIdx := int(float64(i) * perBucket)
		endIdx := min(int(float64(i+1)*perBucket), len(points))
		if startIdx >= endIdx {
			endIdx = min(startIdx+1, len(points))
		}

		sum := 0.0
		count := 0
		for j := startIdx; j < endIdx; j++ {
			sum += points[j].Altitude
			count++
		}
		if count > 0 {
			result[i] = sum / float64(count)
		}
	}
	return result
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// renderShimmerText renders text with a moving highlight.
func (m TonightModel) renderShimmerText(text string) string {
	return shimmer(text, m.animTick)
}
