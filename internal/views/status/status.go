// Package status renders the top status bar: connection state, session
// count and the unread notification badge.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Sessions  int
	Attending int
	Badge     string
	Pending   int // unsettled optimistic mutations
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{Badge: "0"}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Live")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	counts := fmt.Sprintf("%d sessions  %d attending", m.Sessions, m.Attending)

	bellStr := theme.StyleDimmed.Render("🔔 " + m.Badge)
	if m.Badge != "0" {
		bellStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("🔔 " + m.Badge)
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + counts + sep + bellStr
	if m.Pending > 0 {
		content += sep + theme.StyleDimmed.Render(fmt.Sprintf("%d syncing…", m.Pending))
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
