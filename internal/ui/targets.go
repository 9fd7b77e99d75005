package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-nightsky/internal/state"
)

// Styles for the tables
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// TargetsModel is the table of tracked targets.
type TargetsModel struct {
	width    int
	height   int
	cursor   int
	loc      *time.Location
	snapshot state.Snapshot
	lastErr  error
}

// NewTargetsModel creates a targets table that shows times in loc.
func NewTargetsModel(loc *time.Location) TargetsModel {
	if loc == nil {
		loc = time.Local
	}
	return TargetsModel{loc: loc}
}

// SetSize updates the viewport size.
func (m TargetsModel) SetSize(width, height int) TargetsModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData updates the model with new data.
func (m TargetsModel) UpdateData(snapshot state.Snapshot) TargetsModel {
	m.snapshot = snapshot
	if m.cursor >= len(snapshot.Targets) {
		m.cursor = max(len(snapshot.Targets)-1, 0)
	}
	return m
}

// SetError sets the last error for display.
func (m TargetsModel) SetError(err error) TargetsModel {
	m.lastErr = err
	return m
}

// Update handles messages.
func (m TargetsModel) Update(msg tea.Msg) (TargetsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		n := len(m.snapshot.Targets)
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < n-1 {
				m.cursor++
			}
		case "home":
			m.cursor = 0
		case "end":
			if n > 0 {
				m.cursor = n - 1
			}
		case "enter":
			if t := m.Selected(); t != nil {
				name := t.Name
				return m, func() tea.Msg { return FocusTargetMsg{Name: name} }
			}
		}
	}
	return m, nil
}

// View renders the table.
func (m TargetsModel) View() string {
	var b strings.Builder

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n\n")
	}

	if m.snapshot.Night == nil && m.lastErr == nil {
		b.WriteString("Waiting for the first computation...\n")
		return b.String()
	}

	b.WriteString(m.renderTable())
	b.WriteString("\n")
	if bar := RenderVisibilityBar(m.snapshot.Targets); bar != "" {
		b.WriteString("  " + bar + "\n")
	}
	return b.String()
}

func (m TargetsModel) renderTable() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Targets"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-14s %6s %6s %-6s %-6s %-6s %6s %-5s",
		"Name", "Alt", "Az", "Rise", "Peak", "Set", "Max", "South")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	targets := m.snapshot.Targets
	if len(targets) == 0 {
		b.WriteString("  No targets configured\n")
		return b.String()
	}

	maxRows := m.height - 8
	if maxRows < 5 {
		maxRows = 5
	}
	startIdx := 0
	if m.cursor >= maxRows {
		startIdx = m.cursor - maxRows + 1
	}
	endIdx := min(startIdx+maxRows, len(targets))

	for i := startIdx; i < endIdx; i++ {
		row := m.formatRow(targets[i])
		if i == m.cursor {
			b.WriteString(selectedRowStyle.Render(row))
		} else {
			b.WriteString(rowStyle.Render(row))
		}
		b.WriteString("\n")
	}

	if len(targets) > maxRows {
		b.WriteString(fmt.Sprintf("\n  Showing %d-%d of %d targets", startIdx+1, endIdx, len(targets)))
	}
	return b.String()
}

func (m TargetsModel) formatRow(t state.TargetStatus) string {
	south := "no"
	if t.TransitsSouth {
		south = "yes"
	}
	return fmt.Sprintf("%-14s %5.1f° %5.1f° %-6s %-6s %-6s %5.1f° %-5s",
		truncate(t.Name, 14),
		t.Position.Altitude.Degrees(),
		t.Position.Azimuth.Degrees(),
		clock(t.Events.Rise, m.loc),
		clock(t.Events.Transit, m.loc),
		clock(t.Events.Set, m.loc),
		t.MaxAltitude,
		south,
	)
}

// Selected returns the target under the cursor, if any.
func (m TargetsModel) Selected() *state.TargetStatus {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Targets) {
		return nil
	}
	t := m.snapshot.Targets[m.cursor]
	return &t
}

// clock formats an optional event time as HH:MM, or "--" when absent.
func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "--"
	}
	return t.In(loc).Format("15:04")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
