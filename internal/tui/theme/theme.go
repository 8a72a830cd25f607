// Package theme provides the Lip Gloss color palette and reusable styles
// for the rehearsal TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Event colors, used by the debug log.
var (
	ColorSong   = lipgloss.Color("#a855f7")
	ColorScroll = lipgloss.Color("#06b6d4")
	ColorSocket = lipgloss.Color("#2563eb")
	ColorHealth = lipgloss.Color("#d97706")
	ColorError  = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorAccent  = lipgloss.Color("#f59e0b")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleArtist = lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorAccent)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)

// KindColor returns the color for a debug log entry kind.
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case "song":
		return ColorSong
	case "scrl":
		return ColorScroll
	case "ws":
		return ColorSocket
	case "hlth":
		return ColorHealth
	case "err":
		return ColorError
	default:
		return ColorDimmed
	}
}
