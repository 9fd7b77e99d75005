// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-nightsky/internal/state"
	"github.com/litescript/ls-nightsky/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewTonight ViewMode = iota
	ViewTargets
	ViewSky

	viewCount
)

// Msg types for Bubble Tea
type (
	// TickMsg triggers periodic UI updates.
	TickMsg time.Time

	// AnimTickMsg triggers fast animation updates.
	AnimTickMsg time.Time

	// DataUpdateMsg signals a new snapshot is available.
	DataUpdateMsg struct {
		Snapshot state.Snapshot
	}

	// ErrorMsg signals a computation error.
	ErrorMsg struct {
		Error error
	}

	// FocusTargetMsg requests focusing a target in the Tonight and Sky views.
	FocusTargetMsg struct {
		Name string
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	state *state.Manager
	loc   *time.Location

	viewMode ViewMode
	width    int
	height   int
	ready    bool
	animTick int

	tonight TonightModel
	targets TargetsModel
	sky     SkyViewModel

	snapshot state.Snapshot
}

// New creates a new root UI model showing times in loc.
func New(stateMgr *state.Manager, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	return Model{
		state:    stateMgr,
		loc:      loc,
		viewMode: ViewTonight,
		tonight:  NewTonightModel(loc),
		targets:  NewTargetsModel(loc),
		sky:      NewSkyViewModel(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), animTickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "1", "n":
			m.viewMode = ViewTonight
		case "2", "t":
			m.viewMode = ViewTargets
		case "3", "s":
			m.viewMode = ViewSky
		case "tab":
			m.viewMode = (m.viewMode + 1) % viewCount
		default:
			cmds = append(cmds, m.updateActiveView(msg))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Logo takes ~10 lines, tabs and footer ~3
		contentHeight := msg.Height - 13
		m.tonight = m.tonight.SetSize(msg.Width, contentHeight)
		m.targets = m.targets.SetSize(msg.Width, contentHeight)
		m.sky = m.sky.SetSize(msg.Width, contentHeight)

	case TickMsg:
		cmds = append(cmds, tickCmd())
		if m.state != nil {
			m = m.applySnapshot(m.state.Snapshot())
		}

	case AnimTickMsg:
		cmds = append(cmds, animTickCmd())
		m.animTick++
		m.tonight = m.tonight.SetAnimTick(m.animTick)

	case DataUpdateMsg:
		m = m.applySnapshot(msg.Snapshot)

	case FocusTargetMsg:
		m.tonight = m.tonight.SetFocus(msg.Name)
		var cmd tea.Cmd
		m.sky, cmd = m.sky.FocusOn(msg.Name)
		m.viewMode = ViewSky
		cmds = append(cmds, cmd)

	case ErrorMsg:
		m.targets = m.targets.SetError(msg.Error)

	default:
		cmds = append(cmds, m.updateActiveView(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) applySnapshot(snap state.Snapshot) Model {
	m.snapshot = snap
	m.tonight = m.tonight.UpdateData(snap)
	m.targets = m.targets.UpdateData(snap)
	m.sky = m.sky.UpdateData(snap)
	return m
}

func (m *Model) updateActiveView(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewTonight:
		m.tonight, cmd = m.tonight.Update(msg)
	case ViewTargets:
		m.targets, cmd = m.targets.Update(msg)
	case ViewSky:
		m.sky, cmd = m.sky.Update(msg)
	}
	return cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewTonight:
		content = m.tonight.View()
	case ViewTargets:
		content = m.targets.View()
	case ViewSky:
		content = m.sky.View()
	}

	return m.renderLogo() + m.renderTabs() + "\n\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderLogo() string {
	logo := []string{
		`  ███╗   ██╗██╗ ██████╗ ██╗  ██╗████████╗███████╗██╗  ██╗██╗   ██╗`,
		`  ████╗  ██║██║██╔════╝ ██║  ██║╚══██╔══╝██╔════╝██║ ██╔╝╚██╗ ██╔╝`,
		`  ██╔██╗ ██║██║██║  ███╗███████║   ██║   ███████╗█████╔╝  ╚████╔╝ `,
		`  ██║╚██╗██║██║██║   ██║██╔══██║   ██║   ╚════██║██╔═██╗   ╚██╔╝  `,
		`  ██║ ╚████║██║╚██████╔╝██║  ██║   ██║   ███████║██║  ██╗   ██║   `,
		`  ╚═╝  ╚═══╝╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝╚═╝  ╚═╝   ╚═╝   `,
	}

	var b strings.Builder
	b.WriteString("\n")
	for row, line := range logo {
		runes := []rune(line)
		for col, r := range runes {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradientColor(col, row, len(runes), len(logo))))
			b.WriteString(style.Render(string(r)))
		}
		b.WriteString("\n")
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	b.WriteString(muted.Render("  Rise, set and twilight for your night sky"))
	b.WriteString("\n")
	b.WriteString(muted.Render(fmt.Sprintf("  (c) 2025 litescript.net | v%s", version.Version)))
	b.WriteString("\n\n")
	return b.String()
}

// gradientColor returns a hex color for a position in the logo gradient:
// deep blue through indigo to violet, darker toward the bottom rows.
func gradientColor(col, row, width, height int) string {
	xRatio := float64(col) / float64(width)
	yRatio := float64(row) / float64(height)

	var r, g, b float64
	if xRatio < 0.5 {
		// Blue (#1E40AF) to Indigo (#6366F1)
		t := xRatio / 0.5
		r = 30 + t*(99-30)
		g = 64 + t*(102-64)
		b = 175 + t*(241-175)
	} else {
		// Indigo to Violet (#A78BFA)
		t := (xRatio - 0.5) / 0.5
		r = 99 + t*(167-99)
		g = 102 + t*(139-102)
		b = 241 + t*(250-241)
	}

	brightness := 1.0 - yRatio*0.5
	clamp := func(v float64) int {
		return max(0, min(int(v*brightness), 255))
	}
	return fmt.Sprintf("#%02X%02X%02X", clamp(r), clamp(g), clamp(b))
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Tonight", "[2] Targets", "[3] Sky"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	parts := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := spinnerFrames[m.animTick%len(spinnerFrames)]

	var status string
	switch {
	case m.snapshot.LastError != nil:
		status = errStyle.Render("ERROR: " + m.snapshot.LastError.Error())
	case !m.snapshot.LastUpdate.IsZero():
		status = accentStyle.Render(spinner) + dimStyle.Render(" updated "+m.snapshot.LastUpdate.In(m.loc).Format("15:04:05"))
		if m.snapshot.ComputeDuration > 0 {
			status += dimStyle.Render(" (" + m.snapshot.ComputeDuration.Round(time.Millisecond).String() + ")")
		}
	default:
		status = accentStyle.Render(spinner) + " " + shimmer("Waiting for data...", m.animTick)
	}

	var help string
	switch m.viewMode {
	case ViewTonight:
		help = "←/→: target | tab: switch view | q: quit"
	case ViewTargets:
		help = "↑↓: navigate | enter: show in sky | tab: switch view"
	case ViewSky:
		help = "j/k: focus | arrows: pan | l: labels"
	}

	return "  " + status + "  " + dimStyle.Render("|") + "  " + dimStyle.Render(help)
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}

// SendDataUpdate creates a command that sends a data update message.
func SendDataUpdate(snapshot state.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return DataUpdateMsg{Snapshot: snapshot}
	}
}

// SendError creates a command that sends an error message.
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Error: err}
	}
}

// shimmer renders text with a soft lavender highlight sweeping across it.
func shimmer(text string, tick int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}

	pos := tick % (len(runes) + 8)

	var result strings.Builder
	for i, r := range runes {
		dist := i - pos + 4
		if dist < 0 {
			dist = -dist
		}

		var r8, g8, b8 int
		switch {
		case dist <= 1:
			r8, g8, b8 = 180, 160, 220
		case dist <= 3:
			r8, g8, b8 = 140, 120, 180
		case dist <= 5:
			r8, g8, b8 = 110, 90, 150
		default:
			r8, g8, b8 = 80, 70, 120
		}

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r8, g8, b8)))
		result.WriteString(style.Render(string(r)))
	}
	return result.String()
}
