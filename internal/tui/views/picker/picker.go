// Package picker provides the song selection form.
package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/client"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/theme"
)

const (
	fieldTitle = iota
	fieldArtist
	fieldNotes
	fieldCount
)

// SubmitMsg is emitted when the form is submitted with a title.
type SubmitMsg struct {
	Song client.Song
}

// Model holds the form state.
type Model struct {
	inputs []textinput.Model
	focus  int
	err    string
}

// New creates an empty picker form.
func New() Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.CharLimit = 200
		inputs[i] = in
	}
	inputs[fieldTitle].Prompt = "Title   "
	inputs[fieldTitle].Placeholder = "Hotel California"
	inputs[fieldArtist].Prompt = "Artist  "
	inputs[fieldArtist].Placeholder = "Eagles"
	inputs[fieldNotes].Prompt = "Notes   "
	inputs[fieldNotes].Placeholder = `markdown, "\n" for a new line`
	inputs[fieldNotes].CharLimit = 4000

	m := Model{inputs: inputs}
	m.Reset()
	return m
}

// Reset clears the form and focuses the title field.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.focus = fieldTitle
	m.err = ""
	m.inputs[fieldTitle].Focus()
}

// Song returns the song described by the form.
func (m Model) Song() client.Song {
	return client.Song{
		Title:  strings.TrimSpace(m.inputs[fieldTitle].Value()),
		Artist: strings.TrimSpace(m.inputs[fieldArtist].Value()),
		Notes:  strings.ReplaceAll(m.inputs[fieldNotes].Value(), `\n`, "\n"),
	}
}

// Update handles a key press. Enter on the last field submits.
func (m Model) Update(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "enter":
		if m.focus < fieldCount-1 {
			m.setFocus(m.focus + 1)
			return m, nil
		}
		song := m.Song()
		if song.Title == "" {
			m.err = "title is required"
			m.setFocus(fieldTitle)
			return m, nil
		}
		return m, func() tea.Msg { return SubmitMsg{Song: song} }
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// View renders the form as an overlay panel.
func (m Model) View(width int) string {
	innerW := max(width-4, 20)

	lines := []string{theme.StyleHeader.Render(" SELECT SONG "), ""}
	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, "")
	if m.err != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(m.err))
	}
	lines = append(lines, theme.StyleDimmed.Render("tab:next field  enter:select  esc:cancel"))

	return lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
