// Package sheet renders the current song's notes in a scrollable viewport.
// Scroll changes arrive from the server and are eased in with a spring so
// every client glides to the shared offset instead of jumping.
package sheet

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/client"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/theme"
)

const (
	fps       = 60
	frequency = 6.0
	damping   = 1.0 // critically damped: no overshoot past the shared offset
	settle    = 0.01
)

// FrameMsg advances the scroll animation by one frame.
type FrameMsg struct{}

// Model holds the song sheet state.
type Model struct {
	viewport viewport.Model
	spring   harmonica.Spring

	song      *client.Song
	pos       float64
	vel       float64
	target    float64
	animating bool

	width  int
	height int
}

// New creates an empty song sheet.
func New() Model {
	return Model{
		viewport: viewport.New(0, 0),
		spring:   harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
	}
}

// SetSize resizes the sheet and re-renders the notes to the new width.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 1) // title and artist lines
	if m.song != nil {
		m.viewport.SetContent(render(m.song.Notes, width))
		m.viewport.SetYOffset(int(math.Round(m.pos)))
	}
}

// SetSong shows a new song from the top.
func (m *Model) SetSong(s client.Song) {
	m.song = &s
	m.pos, m.vel, m.target = 0, 0, 0
	m.animating = false
	m.viewport.SetContent(render(s.Notes, m.width))
	m.viewport.GotoTop()
}

// Clear removes the current song.
func (m *Model) Clear() {
	m.song = nil
	m.pos, m.vel, m.target = 0, 0, 0
	m.animating = false
	m.viewport.SetContent("")
}

// HasSong reports whether a song is showing.
func (m Model) HasSong() bool {
	return m.song != nil
}

// Target is the offset the sheet is scrolling toward.
func (m Model) Target() float64 {
	return m.target
}

// Offset is the line currently at the top of the viewport.
func (m Model) Offset() int {
	return m.viewport.YOffset
}

// PageSize is the number of visible note lines.
func (m Model) PageSize() int {
	return m.viewport.Height
}

// Clamp limits offset to the scrollable range of the current notes.
func (m Model) Clamp(offset float64) float64 {
	return math.Max(0, math.Min(offset, float64(m.maxOffset())))
}

// ScrollTo starts easing toward offset, clamped to the notes' length.
// It returns the first animation tick when no animation is running.
func (m *Model) ScrollTo(offset float64) tea.Cmd {
	m.target = m.Clamp(offset)
	if m.animating {
		return nil
	}
	m.animating = true
	return tick()
}

// Update advances the animation one frame.
func (m *Model) Update(FrameMsg) tea.Cmd {
	if !m.animating {
		return nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if math.Abs(m.pos-m.target) < settle && math.Abs(m.vel) < settle {
		m.pos, m.vel = m.target, 0
		m.animating = false
	}
	m.viewport.SetYOffset(int(math.Round(m.pos)))
	if !m.animating {
		return nil
	}
	return tick()
}

// View renders the sheet.
func (m Model) View() string {
	if m.song == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(theme.StyleDimmed.Render("No song selected. Press s to pick one."))
	}

	title := m.song.Title
	if title == "" {
		title = "Untitled"
	}
	header := theme.StyleHeader.Render(title)
	if m.song.Artist != "" {
		header += "  " + theme.StyleArtist.Render(m.song.Artist)
	}
	progress := theme.StyleDimmed.Render(progressLabel(m.viewport.ScrollPercent()))

	return lipgloss.JoinVertical(lipgloss.Left, header+"  "+progress, "", m.viewport.View())
}

func (m Model) maxOffset() int {
	return max(m.viewport.TotalLineCount()-m.viewport.Height, 0)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg {
		return FrameMsg{}
	})
}

func progressLabel(pct float64) string {
	return strings.Repeat("▮", int(pct*10)) + strings.Repeat("▯", 10-int(pct*10))
}

// render turns markdown notes into terminal output. Plain notes are shown
// as-is when rendering fails.
func render(notes string, width int) string {
	if strings.TrimSpace(notes) == "" {
		return theme.StyleDimmed.Render("(no notes)")
	}
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("dark")}
	if width > 4 {
		opts = append(opts, glamour.WithWordWrap(width-4))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return notes
	}
	out, err := r.Render(notes)
	if err != nil {
		return notes
	}
	return out
}
