package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-nightsky/internal/state"
)

const (
	// Field of view in degrees
	fovAz = 120.0
	fovEl = 60.0

	// Camera pan step per arrow key press
	panStep = 15.0

	// Animation
	animDuration  = 400 * time.Millisecond
	animFrameRate = 30 * time.Millisecond

	// Target glyphs
	glyphTarget        = '✦'
	glyphTargetFocused = '◆'

	// Target colors
	colorTarget        = "#d0c8ff"
	colorTargetFocused = "229" // bright gold

	// Star glyphs by magnitude
	glyphStarBright  = '✶' // mag < 1.5
	glyphStarMedium  = '✸' // mag 1.5-3.0
	glyphStarDim     = '·' // mag 3.0-4.0
	glyphStarVeryDim = '·' // mag > 4.0

	// Star colors (grayscale so targets stand out)
	colorStarBright  = "255"
	colorStarMedium  = "250"
	colorStarDim     = "244"
	colorStarVeryDim = "240"
)

// LabelMode controls how target labels are displayed.
type LabelMode int

const (
	LabelNone    LabelMode = iota // No labels
	LabelFocused                  // Only focused target
	LabelAll                      // All targets
)

// SkyViewModel renders the local sky with stars and tracked targets.
type SkyViewModel struct {
	width  int
	height int

	// Camera position (center of view)
	camAz float64
	camEl float64

	// Animation state
	animating   bool
	animStartAz float64
	animStartEl float64
	animTargAz  float64
	animTargEl  float64
	animStart   time.Time

	focusIdx int
	targets  []state.TargetStatus
	stars    []state.SkyObject

	labelMode LabelMode
}

// NewSkyViewModel creates a new sky view model looking south.
func NewSkyViewModel() SkyViewModel {
	return SkyViewModel{
		camAz:     180,
		camEl:     30,
		labelMode: LabelFocused,
	}
}

// SetSize updates the viewport size.
func (m SkyViewModel) SetSize(width, height int) SkyViewModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData updates with new data snapshot.
func (m SkyViewModel) UpdateData(snapshot state.Snapshot) SkyViewModel {
	m.targets = snapshot.Targets
	m.stars = snapshot.Sky
	if m.focusIdx >= len(m.targets) {
		m.focusIdx = 0
	}
	return m
}

// FocusOn points the camera at the named target, if tracked.
func (m SkyViewModel) FocusOn(name string) (SkyViewModel, tea.Cmd) {
	for i, t := range m.targets {
		if t.Name == name {
			m.focusIdx = i
			return m.startAnimation()
		}
	}
	return m, nil
}

// animTickMsg is sent during camera animation.
type animTickMsg time.Time

func animTick() tea.Cmd {
	return tea.Tick(animFrameRate, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

// Update handles messages.
func (m SkyViewModel) Update(msg tea.Msg) (SkyViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "k":
			return m.focusPrev()
		case "j":
			return m.focusNext()
		case "left":
			m.animating = false
			m.camAz = math.Mod(m.camAz-panStep+360, 360)
		case "right":
			m.animating = false
			m.camAz = math.Mod(m.camAz+panStep, 360)
		case "up":
			m.animating = false
			m.camEl = min(m.camEl+panStep/3, 90-fovEl/2)
		case "down":
			m.animating = false
			m.camEl = max(m.camEl-panStep/3, fovEl/2-5)
		case "l":
			m = m.cycleLabelMode()
		}

	case animTickMsg:
		if m.animating {
			return m.updateAnimation()
		}
	}

	return m, nil
}

func (m SkyViewModel) cycleLabelMode() SkyViewModel {
	m.labelMode = (m.labelMode + 1) % 3
	return m
}

func (m SkyViewModel) focusNext() (SkyViewModel, tea.Cmd) {
	if len(m.targets) == 0 {
		return m, nil
	}
	m.focusIdx = (m.focusIdx + 1) % len(m.targets)
	return m.startAnimation()
}

func (m SkyViewModel) focusPrev() (SkyViewModel, tea.Cmd) {
	if len(m.targets) == 0 {
		return m, nil
	}
	m.focusIdx--
	if m.focusIdx < 0 {
		m.focusIdx = len(m.targets) - 1
	}
	return m.startAnimation()
}

func (m SkyViewModel) startAnimation() (SkyViewModel, tea.Cmd) {
	if m.focusIdx >= len(m.targets) {
		return m, nil
	}

	pos := m.targets[m.focusIdx].Position
	m.animating = true
	m.animStartAz = m.camAz
	m.animStartEl = m.camEl
	m.animTargAz = pos.Azimuth.Degrees()
	// Keep the horizon in frame for low targets.
	m.animTargEl = max(pos.Altitude.Degrees(), fovEl/2-5)
	m.animStart = time.Now()

	return m, animTick()
}

func (m SkyViewModel) updateAnimation() (SkyViewModel, tea.Cmd) {
	t := float64(time.Since(m.animStart)) / float64(animDuration)

	if t >= 1.0 {
		m.animating = false
		m.camAz = m.animTargAz
		m.camEl = m.animTargEl
		return m, nil
	}

	// Ease-out cubic
	t = 1 - math.Pow(1-t, 3)

	m.camAz = lerpAngle(m.animStartAz, m.animTargAz, t)
	m.camEl = lerp(m.animStartEl, m.animTargEl, t)

	return m, animTick()
}

// View renders the sky view.
func (m SkyViewModel) View() string {
	if m.width < 20 || m.height < 10 {
		return "Sky view requires larger terminal"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderSkyCanvas(m.width, m.height-4))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m SkyViewModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorTarget))

	var labelStr string
	switch m.labelMode {
	case LabelNone:
		labelStr = dimStyle.Render("Labels: off")
	case LabelFocused:
		labelStr = accentStyle.Render("Labels: focus")
	case LabelAll:
		labelStr = accentStyle.Render("Labels: all")
	}

	compass := dimStyle.Render(fmt.Sprintf("Az:%.0f° Alt:%.0f°", m.camAz, m.camEl))
	return fmt.Sprintf("%s | %s | %s", titleStyle.Render("Sky View"), labelStr, compass)
}

func (m SkyViewModel) renderStatus() string {
	if len(m.targets) == 0 || m.focusIdx >= len(m.targets) {
		return "No targets tracked"
	}

	t := m.targets[m.focusIdx]
	line := fmt.Sprintf(">>> %s | Az:%.0f° Alt:%.1f° | Max %.0f°",
		t.Name, t.Position.Azimuth.Degrees(), t.Position.Altitude.Degrees(), t.MaxAltitude)
	if !t.Up() {
		line += " | below horizon"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Render(line)
}

// targetPos tracks a drawn target for label rendering.
type targetPos struct {
	x, y       int
	name       string
	isFocused  bool
	labelStart int
	labelEnd   int
}

func (m SkyViewModel) renderSkyCanvas(width, height int) string {
	canvas := make([][]rune, height)
	colors := make([][]lipgloss.Color, height)
	for y := 0; y < height; y++ {
		canvas[y] = make([]rune, width)
		colors[y] = make([]lipgloss.Color, width)
		for x := 0; x < width; x++ {
			canvas[y][x] = ' '
			colors[y][x] = "236"
		}
	}

	horizonY := height - 2

	for _, star := range m.stars {
		if star.Altitude <= 0 {
			continue
		}
		x, y, visible := m.projectToScreen(star.Azimuth, star.Altitude, width, height)
		if !visible || x < 0 || x >= width || y < 0 || y >= horizonY {
			continue
		}
		glyph, color := starGlyph(star.Mag)
		canvas[y][x] = glyph
		colors[y][x] = color
	}

	for x := 0; x < width; x++ {
		canvas[horizonY][x] = '─'
		colors[horizonY][x] = "60"
	}

	m.drawCardinal(canvas, colors, width, height, "N", 0)
	m.drawCardinal(canvas, colors, width, height, "E", 90)
	m.drawCardinal(canvas, colors, width, height, "S", 180)
	m.drawCardinal(canvas, colors, width, height, "W", 270)

	var positions []targetPos
	for i, t := range m.targets {
		x, y, visible := m.projectToScreen(t.Position.Azimuth.Degrees(), t.Position.Altitude.Degrees(), width, height)
		if !visible || x < 0 || x >= width || y < 0 || y >= horizonY {
			continue
		}

		isFocused := i == m.focusIdx
		sym, color := glyphTarget, lipgloss.Color(colorTarget)
		if isFocused {
			sym, color = glyphTargetFocused, colorTargetFocused
		}
		canvas[y][x] = sym
		colors[y][x] = color

		positions = append(positions, targetPos{x: x, y: y, name: t.Name, isFocused: isFocused})
	}

	m.renderLabels(canvas, colors, width, horizonY, positions)

	// Observer marker
	if x, y := width/2, height-1; y >= 0 && x < width {
		canvas[y][x] = '▲'
		colors[y][x] = "46"
	}

	var b strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.WriteString(lipgloss.NewStyle().Foreground(colors[y][x]).Render(string(canvas[y][x])))
		}
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderLabels draws target labels; focused labels win where they overlap.
func (m SkyViewModel) renderLabels(canvas [][]rune, colors [][]lipgloss.Color, width, horizonY int, positions []targetPos) {
	if m.labelMode == LabelNone || len(positions) == 0 {
		return
	}

	for i := range positions {
		pos := &positions[i]
		pos.labelStart = pos.x + 2
		labelLen := len([]rune(pos.name))
		if pos.isFocused {
			labelLen += 2
		}
		pos.labelEnd = pos.labelStart + labelLen
	}

	focusedClaims := make(map[int]map[int]bool)
	for _, pos := range positions {
		if !pos.isFocused {
			continue
		}
		if focusedClaims[pos.y] == nil {
			focusedClaims[pos.y] = make(map[int]bool)
		}
		for x := pos.labelStart; x < pos.labelEnd; x++ {
			focusedClaims[pos.y][x] = true
		}
	}

	for _, pos := range positions {
		if m.labelMode == LabelFocused && !pos.isFocused {
			continue
		}

		labelColor := lipgloss.Color(colorTarget)
		labelText := pos.name
		if pos.isFocused {
			labelColor = colorTargetFocused
			labelText = "◄ " + pos.name
		}

		for i, r := range []rune(labelText) {
			x := pos.labelStart + i
			if x < 0 || x >= width || pos.y < 0 || pos.y >= horizonY {
				continue
			}
			if !pos.isFocused && focusedClaims[pos.y][x] {
				continue
			}
			canvas[pos.y][x] = r
			colors[pos.y][x] = labelColor
		}
	}
}

// starGlyph returns the glyph and color for a star of the given magnitude.
func starGlyph(mag float64) (rune, lipgloss.Color) {
	switch {
	case mag < 1.5:
		return glyphStarBright, colorStarBright
	case mag < 3.0:
		return glyphStarMedium, colorStarMedium
	case mag < 4.0:
		return glyphStarDim, colorStarDim
	default:
		return glyphStarVeryDim, colorStarVeryDim
	}
}

func (m SkyViewModel) drawCardinal(canvas [][]rune, colors [][]lipgloss.Color, width, height int, label string, az float64) {
	x, _, visible := m.projectToScreen(az, m.camEl-fovEl/2, width, height)
	if !visible {
		return
	}
	y := height - 2
	if x >= 0 && x < width && y >= 0 && y < height {
		canvas[y][x] = rune(label[0])
		colors[y][x] = "252"
	}
}

// projectToScreen converts az/alt to screen coordinates relative to the
// camera. The horizon row sits at the bottom of the field of view.
func (m SkyViewModel) projectToScreen(az, alt float64, width, height int) (int, int, bool) {
	dAz := normalizeAngle(az - m.camAz)
	dAlt := alt - m.camEl

	if dAz < -fovAz/2 || dAz > fovAz/2 {
		return 0, 0, false
	}
	if dAlt < -fovEl/2 || dAlt > fovEl/2 {
		return 0, 0, false
	}

	horizonY := height - 2
	x := int((dAz + fovAz/2) / fovAz * float64(width))
	y := int((fovEl/2 - dAlt) / fovEl * float64(horizonY))
	return x, y, true
}

// normalizeAngle wraps an angle to -180..+180.
func normalizeAngle(a float64) float64 {
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return a
}

// lerpAngle interpolates between angles along the shortest path.
func lerpAngle(a, b, t float64) float64 {
	return a + normalizeAngle(b-a)*t
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
