package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Clients   int
	Seq       uint64
	Song      string // title of the current song, empty when none
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := max(m.Width, 40)

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	clients := fmt.Sprintf("%d in room", m.Clients)

	var songStr string
	if m.Song != "" {
		songStr = lipgloss.NewStyle().Foreground(theme.ColorAccent).Render("♪ " + m.Song)
	} else {
		songStr = theme.StyleDimmed.Render("no song")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + clients + sep + songStr
	if m.Seq > 0 {
		content += sep + theme.StyleDimmed.Render(fmt.Sprintf("seq %d", m.Seq))
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
