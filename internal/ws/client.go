package ws

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const writeWait = 10 * time.Second

// client is one connected viewer. send is owned by the Registry: it is
// closed exactly once, when the client is unregistered.
type client struct {
	id      string
	remote  string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

func newClient(conn *websocket.Conn, remote string, opts Options) *client {
	c := &client{
		id:     uuid.NewString(),
		remote: remote,
		conn:   conn,
		send:   make(chan []byte, opts.SendBuffer),
	}
	if opts.EventsPerSecond > 0 {
		burst := opts.EventBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventsPerSecond), burst)
	}
	return c
}

func (c *client) logAttrs() []any {
	if c == nil {
		return []any{slog.String("conn_id", "server")}
	}
	return []any{slog.String("conn_id", c.id), slog.String("remote", c.remote)}
}

// writePump drains the send queue onto the socket. It exits when the queue is
// closed or a write fails; a failed client is handed back to the gateway.
func (c *client) writePump(g *Gateway) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("ws write failed", append(c.logAttrs(), slog.Any("error", err))...)
			g.RemoveClient(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second))
}

// readPump feeds inbound frames to the gateway until the socket errors.
func (c *client) readPump(g *Gateway, maxMessageBytes int64) {
	defer g.RemoveClient(c)
	if maxMessageBytes > 0 {
		c.conn.SetReadLimit(maxMessageBytes)
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read error", append(c.logAttrs(), slog.Any("error", err))...)
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			slog.Warn("ws event rate limited, dropping frame", c.logAttrs()...)
			continue
		}
		g.Submit(c, data)
	}
}
