// Package theme provides the Lip Gloss color palette and reusable styles
// for the Study Buddy TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Session type colors.
var (
	ColorStudy      = lipgloss.Color("#3b82f6")
	ColorReview     = lipgloss.Color("#a855f7")
	ColorProject    = lipgloss.Color("#06b6d4")
	ColorExamPrep   = lipgloss.Color("#dc2626")
	ColorDiscussion = lipgloss.Color("#22c55e")
	ColorDefault    = lipgloss.Color("#9ca3af")
)

// Session status colors.
var (
	ColorUpcoming  = lipgloss.Color("#2563eb")
	ColorOngoing   = lipgloss.Color("#16a34a")
	ColorCompleted = lipgloss.Color("#4b5563")
	ColorCancelled = lipgloss.Color("#854d0e")
)

// Notification category colors.
var (
	ColorSuccess = lipgloss.Color("#16a34a")
	ColorInfo    = lipgloss.Color("#3b82f6")
	ColorUnknown = lipgloss.Color("#6b7280")
)

// Compatibility score thresholds.
var (
	ColorMatchHigh = lipgloss.Color("#22c55e") // >=80
	ColorMatchMid  = lipgloss.Color("#d97706") // 50-79
	ColorMatchLow  = lipgloss.Color("#6b7280") // <50
)

// UI chrome colors.
var (
	ColorBorder   = lipgloss.Color("#4b5563")
	ColorDimmed   = lipgloss.Color("#6b7280")
	ColorBright   = lipgloss.Color("#f9fafb")
	ColorHealthy  = lipgloss.Color("#22c55e")
	ColorWarning  = lipgloss.Color("#d97706")
	ColorDanger   = lipgloss.Color("#dc2626")
	ColorToday    = lipgloss.Color("#f59e0b")
	ColorOutMonth = lipgloss.Color("#374151")
)

// SessionTypeColor returns the Lip Gloss color for a session type string.
func SessionTypeColor(sessionType string) lipgloss.Color {
	switch sessionType {
	case "study":
		return ColorStudy
	case "review":
		return ColorReview
	case "project":
		return ColorProject
	case "exam_prep":
		return ColorExamPrep
	case "discussion":
		return ColorDiscussion
	default:
		return ColorDefault
	}
}

// StatusColor returns the color for a session status string.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "upcoming":
		return ColorUpcoming
	case "ongoing":
		return ColorOngoing
	case "completed":
		return ColorCompleted
	case "cancelled":
		return ColorCancelled
	default:
		return ColorDefault
	}
}

// CategoryColor returns the color for a notification category string.
func CategoryColor(category string) lipgloss.Color {
	switch category {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	case "info":
		return ColorInfo
	default:
		return ColorUnknown
	}
}

// MatchColor returns the color for a compatibility score (0-100).
func MatchColor(score int) lipgloss.Color {
	switch {
	case score >= 80:
		return ColorMatchHigh
	case score >= 50:
		return ColorMatchMid
	default:
		return ColorMatchLow
	}
}

// TypeBadge returns a compact colored badge for a session type.
func TypeBadge(sessionType string) string {
	style := lipgloss.NewStyle().Foreground(SessionTypeColor(sessionType))
	switch sessionType {
	case "study":
		return style.Render("[S]")
	case "review":
		return style.Render("[R]")
	case "project":
		return style.Render("[P]")
	case "exam_prep":
		return style.Render("[E]")
	case "discussion":
		return style.Render("[D]")
	default:
		return style.Render("[?]")
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)

	StyleToday = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorToday)
)

// CategoryGlyph returns a glyph representing a notification category.
func CategoryGlyph(category string) string {
	switch category {
	case "success":
		return "✓"
	case "warning":
		return "⚠"
	case "info":
		return "ℹ"
	default:
		return "·"
	}
}
