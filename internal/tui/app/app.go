package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/client"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/theme"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/views/debug"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/views/picker"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/views/sheet"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/views/status"
)

const healthInterval = 5 * time.Second

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayPicker
	OverlayDebug
)

type healthMsg struct {
	health *client.Health
	err    error
}

type healthTickMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	// scrollReq is the last offset this client asked for. The sheet only
	// moves when the server echoes a scrollTo back.
	scrollReq float64
	overlay   Overlay

	// Sub-views.
	statusBar status.Model
	sheet     sheet.Model
	picker    picker.Model
	debug     debug.Model

	connected bool
}

// New creates the root model.
func New(ws *client.WSClient, http *client.HTTPClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:        ws,
		http:      http,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		statusBar: status.New(),
		sheet:     sheet.New(),
		picker:    picker.New(),
		debug:     debug.New(),
	}
}

// Init starts the WebSocket connection.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ws.Listen(m.ctx), m.pollHealth())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.sheet.SetSize(msg.Width, max(msg.Height-4, 1)) // status bar and help line
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sheet.FrameMsg:
		return m, m.sheet.Update(msg)

	case picker.SubmitMsg:
		m.overlay = OverlayNone
		if err := m.ws.SelectSong(msg.Song); err != nil {
			m.debug.Addf("err", "select song: %v", err)
		}
		return m, nil

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		m.debug.Add("ws", "connected")
		return m, tea.Batch(m.ws.ReadLoop(m.ctx), m.fetchHealth())

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		m.debug.Addf("ws", "disconnected: %v", msg.Err)
		return m, m.ws.Listen(m.ctx)

	case client.SongSelectedMsg:
		m.sheet.SetSong(msg.Song)
		m.scrollReq = 0
		m.statusBar.Song = songLabel(msg.Song)
		m.statusBar.Seq = msg.Seq
		m.debug.Addf("song", "seq=%d %s", msg.Seq, songLabel(msg.Song))
		return m, m.ws.ReadLoop(m.ctx)

	case client.ScrollToMsg:
		m.scrollReq = m.sheet.Clamp(msg.Offset)
		m.statusBar.Seq = msg.Seq
		m.debug.Addf("scrl", "seq=%d offset=%g", msg.Seq, msg.Offset)
		return m, tea.Batch(m.ws.ReadLoop(m.ctx), m.sheet.ScrollTo(msg.Offset))

	case client.RehearsalEndedMsg:
		m.sheet.Clear()
		m.scrollReq = 0
		m.statusBar.Song = ""
		m.statusBar.Seq = msg.Seq
		m.debug.Addf("song", "seq=%d rehearsal ended", msg.Seq)
		return m, m.ws.ReadLoop(m.ctx)

	case healthTickMsg:
		return m, tea.Batch(m.fetchHealth(), m.pollHealth())

	case healthMsg:
		if msg.err != nil {
			m.debug.Addf("hlth", "%v", msg.err)
			return m, nil
		}
		m.statusBar.Clients = msg.health.Clients
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.cancel()
		return m, tea.Quit
	}

	switch m.overlay {
	case OverlayPicker:
		if key.Matches(msg, m.keys.Escape) {
			m.overlay = OverlayNone
			return m, nil
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		m.requestScroll(1)

	case key.Matches(msg, m.keys.Up):
		m.requestScroll(-1)

	case key.Matches(msg, m.keys.PageDown):
		m.requestScroll(float64(m.sheet.PageSize()))

	case key.Matches(msg, m.keys.PageUp):
		m.requestScroll(-float64(m.sheet.PageSize()))

	case key.Matches(msg, m.keys.Select):
		m.picker.Reset()
		m.overlay = OverlayPicker

	case key.Matches(msg, m.keys.QuitSong):
		if err := m.ws.QuitRehearsal(); err != nil {
			m.debug.Addf("err", "quit rehearsal: %v", err)
		}

	case key.Matches(msg, m.keys.Refresh):
		if err := m.ws.RequestCurrentSong(); err != nil {
			m.debug.Addf("err", "refresh: %v", err)
		}

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
	}

	return m, nil
}

// requestScroll asks the server to move everyone by delta lines.
func (m *Model) requestScroll(delta float64) {
	if !m.sheet.HasSong() {
		return
	}
	next := m.sheet.Clamp(m.scrollReq + delta)
	if next == m.scrollReq {
		return
	}
	m.scrollReq = next
	if err := m.ws.SyncScroll(next); err != nil {
		m.debug.Addf("err", "sync scroll: %v", err)
	}
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayPicker:
		body = m.picker.View(m.width)
	case OverlayDebug:
		body = m.debug.View(m.width, m.height-4)
	default:
		if !m.connected {
			body = m.renderDisconnected()
		} else {
			body = m.sheet.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		body,
		theme.StyleDimmed.Render("  s:select  j/k:scroll  x:end  r:refresh  d:debug  q:quit"),
	)
}

func (m Model) renderDisconnected() string {
	msg := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorDanger).Render("DISCONNECTED"),
		theme.StyleDimmed.Render("Reconnecting..."),
	)
	return lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-4, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Render(msg)
}

func (m Model) fetchHealth() tea.Cmd {
	if m.http == nil {
		return nil
	}
	return func() tea.Msg {
		h, err := m.http.GetHealth()
		return healthMsg{health: h, err: err}
	}
}

func (m Model) pollHealth() tea.Cmd {
	if m.http == nil {
		return nil
	}
	return tea.Tick(healthInterval, func(time.Time) tea.Msg { return healthTickMsg{} })
}

func songLabel(s client.Song) string {
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	if s.Artist == "" {
		return title
	}
	return title + " / " + s.Artist
}
