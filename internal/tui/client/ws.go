package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/guyhaliva123/rehearsal-sync/internal/protocol"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

var ErrNotConnected = errors.New("not connected")

// Song is the payload shape this client sends and understands. Other
// clients may add fields; they are ignored here.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Notes  string `json:"notes,omitempty"`
}

// WSClient manages the WebSocket connection to the rehearsal server.
type WSClient struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes
	conn    *websocket.Conn
	seq     uint64
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the WebSocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// SongSelectedMsg carries the rehearsal's current song.
type SongSelectedMsg struct {
	Song Song
	Seq  uint64
}

// ScrollToMsg carries a shared scroll offset.
type ScrollToMsg struct {
	Offset float64
	Seq    uint64
}

// RehearsalEndedMsg is sent when someone quits the rehearsal.
type RehearsalEndedMsg struct{ Seq uint64 }

// Listen returns a Bubble Tea command that connects, reconnecting with
// exponential backoff. Every successful connect asks the server for the
// current song, since the server does not push it to new connections.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				slog.Debug("ws dial error", slog.Any("error", err), slog.Duration("retry_in", delay))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			// No write mutex needed: the connection isn't shared yet.
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(protocol.Message{Type: protocol.EventGetCurrentSong}); err != nil {
				conn.Close()
				continue
			}

			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.seq = 0
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads until the next message
// the UI cares about. It should be restarted after every message it returns.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: ErrNotConnected}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return WSDisconnectedMsg{Err: err}
			}

			msg, err := protocol.Decode(data)
			if err != nil {
				continue
			}

			c.mu.Lock()
			c.seq = msg.Seq
			c.mu.Unlock()

			if teaMsg := dispatch(msg); teaMsg != nil {
				return teaMsg
			}
		}
	}
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// SelectSong asks the server to make song current for everyone.
func (c *WSClient) SelectSong(song Song) error {
	payload, err := json.Marshal(song)
	if err != nil {
		return err
	}
	return c.send(protocol.EventSongSelected, payload)
}

// SyncScroll broadcasts a scroll offset.
func (c *WSClient) SyncScroll(offset float64) error {
	payload, err := json.Marshal(offset)
	if err != nil {
		return err
	}
	return c.send(protocol.EventSyncScroll, payload)
}

// QuitRehearsal clears the current song for everyone.
func (c *WSClient) QuitRehearsal() error {
	return c.send(protocol.EventQuitRehearsal, nil)
}

// RequestCurrentSong pulls the current song; only this client gets the reply.
func (c *WSClient) RequestCurrentSong() error {
	return c.send(protocol.EventGetCurrentSong, nil)
}

// Seq returns the last seen sequence number.
func (c *WSClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *WSClient) send(t protocol.EventType, payload json.RawMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(protocol.Message{Type: t, Payload: payload})
}

func dispatch(msg protocol.Message) tea.Msg {
	switch msg.Type {
	case protocol.EventSongSelected:
		var s Song
		// Payloads from other clients may not be objects; show them untitled.
		_ = json.Unmarshal(msg.Payload, &s)
		return SongSelectedMsg{Song: s, Seq: msg.Seq}
	case protocol.EventScrollTo:
		if offset, ok := protocol.ScrollOffset(msg.Payload); ok {
			return ScrollToMsg{Offset: offset, Seq: msg.Seq}
		}
	case protocol.EventRehearsalEnded:
		return RehearsalEndedMsg{Seq: msg.Seq}
	}
	return nil
}
