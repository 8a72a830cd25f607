package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/guyhaliva123/rehearsal-sync/internal/config"
	"github.com/guyhaliva123/rehearsal-sync/internal/protocol"
	"github.com/guyhaliva123/rehearsal-sync/internal/session"
)

var (
	ErrTooManyConnections = errors.New("too many connections")
	ErrGatewayStopped     = errors.New("gateway stopped")
)

// Options tunes a Gateway. Zero limits mean unlimited.
type Options struct {
	SendBuffer      int
	MaxConnections  int
	EventsPerSecond float64
	EventBurst      int
	StrictSongs     bool
	MaxMessageBytes int64
}

func OptionsFromConfig(c config.GatewayConfig) Options {
	return Options{
		SendBuffer:      c.SendBuffer,
		MaxConnections:  c.MaxConnections,
		EventsPerSecond: c.EventsPerSecond,
		EventBurst:      c.EventBurst,
		StrictSongs:     c.StrictSongs,
		MaxMessageBytes: c.MaxMessageBytes,
	}
}

// Snapshot is a consistent read of gateway state taken between two events.
type Snapshot struct {
	Song    session.Song
	HasSong bool
	Clients int
	Seq     uint64
}

type inbound struct {
	c    *client
	data []byte
}

type registration struct {
	c     *client
	reply chan error
}

// Gateway applies client events to the session store and fans the results
// out to every registered client. All state changes happen on the goroutine
// running Run, one event at a time, so each read-mutate-broadcast step is
// atomic with respect to the others.
type Gateway struct {
	store    *session.Store
	registry *Registry
	opts     Options

	events     chan inbound
	register   chan registration
	unregister chan *client
	snapshots  chan chan Snapshot
	done       chan struct{}

	seq     uint64 // owned by the loop
	clients atomic.Int64
}

func NewGateway(store *session.Store, opts Options) *Gateway {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = 64
	}
	return &Gateway{
		store:      store,
		registry:   NewRegistry(),
		opts:       opts,
		events:     make(chan inbound, 256),
		register:   make(chan registration),
		unregister: make(chan *client, 16),
		snapshots:  make(chan chan Snapshot),
		done:       make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled, then closes every client.
// It must be called exactly once.
func (g *Gateway) Run(ctx context.Context) {
	defer close(g.done)
	for {
		select {
		case <-ctx.Done():
			g.registry.CloseAll()
			g.clients.Store(0)
			return
		case r := <-g.register:
			r.reply <- g.handleRegister(r.c)
		case c := <-g.unregister:
			if g.registry.Unregister(c) {
				slog.Info("ws client disconnected", c.logAttrs()...)
			}
			g.clients.Store(int64(g.registry.Len()))
		case in := <-g.events:
			g.handle(in)
		case reply := <-g.snapshots:
			reply <- g.snapshot()
		}
	}
}

// AddClient registers conn and starts its writer. The caller is expected to
// run the returned client's read loop via Serve.
func (g *Gateway) AddClient(conn *websocket.Conn, remote string) (*client, error) {
	c := newClient(conn, remote, g.opts)
	if err := g.attach(c); err != nil {
		return nil, err
	}
	go c.writePump(g)
	return c, nil
}

// Serve reads frames from c until its connection fails, then removes it.
func (g *Gateway) Serve(c *client) {
	c.readPump(g, g.opts.MaxMessageBytes)
}

func (g *Gateway) attach(c *client) error {
	r := registration{c: c, reply: make(chan error, 1)}
	select {
	case g.register <- r:
	case <-g.done:
		return ErrGatewayStopped
	}
	return <-r.reply
}

// RemoveClient unregisters c. Safe to call more than once and after Run has
// returned.
func (g *Gateway) RemoveClient(c *client) {
	select {
	case g.unregister <- c:
	case <-g.done:
	}
}

// Submit queues a raw inbound frame from c for processing.
func (g *Gateway) Submit(c *client, data []byte) {
	select {
	case g.events <- inbound{c: c, data: data}:
	case <-g.done:
	}
}

// Publish queues an event on behalf of the server itself, as if a client had
// sent it. A getCurrentSong published this way has nobody to answer.
func (g *Gateway) Publish(t protocol.EventType, payload json.RawMessage) error {
	data, err := protocol.Encode(t, 0, payload)
	if err != nil {
		return err
	}
	select {
	case g.events <- inbound{data: data}:
		return nil
	case <-g.done:
		return ErrGatewayStopped
	}
}

// Snapshot asks the loop for the current state.
func (g *Gateway) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case g.snapshots <- reply:
	case <-g.done:
		return Snapshot{}, ErrGatewayStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// ClientCount returns the number of registered clients as of the last
// register or unregister processed by the loop.
func (g *Gateway) ClientCount() int {
	return int(g.clients.Load())
}

func (g *Gateway) handleRegister(c *client) error {
	if g.opts.MaxConnections > 0 && !g.registry.Contains(c) && g.registry.Len() >= g.opts.MaxConnections {
		return ErrTooManyConnections
	}
	g.registry.Register(c)
	g.clients.Store(int64(g.registry.Len()))
	return nil
}

func (g *Gateway) handle(in inbound) {
	if in.c != nil && !g.registry.Contains(in.c) {
		// Disconnected after the frame was queued. The frame still counts,
		// there is just nobody to reply to.
		slog.Debug("event from unregistered client", in.c.logAttrs()...)
	}

	msg, err := protocol.Decode(in.data)
	if err != nil {
		slog.Debug("ignoring malformed frame", append(in.c.logAttrs(), slog.Any("error", err))...)
		return
	}

	switch msg.Type {
	case protocol.EventGetCurrentSong:
		if song, ok := g.store.Current(); ok {
			g.sendTo(in.c, protocol.EventSongSelected, song.Raw())
		}

	case protocol.EventSongSelected:
		song := session.NewSong(msg.Payload)
		if g.opts.StrictSongs {
			if err := song.Validate(); err != nil {
				slog.Warn("rejected song payload", append(in.c.logAttrs(), slog.Any("error", err))...)
				return
			}
		}
		meta := song.Meta()
		slog.Info("song selected", append(in.c.logAttrs(),
			slog.String("title", meta.Title), slog.String("artist", meta.Artist))...)
		g.store.Set(song)
		g.broadcast(protocol.EventSongSelected, song.Raw())

	case protocol.EventSyncScroll:
		g.broadcast(protocol.EventScrollTo, msg.Payload)

	case protocol.EventQuitRehearsal:
		slog.Info("rehearsal ended", in.c.logAttrs()...)
		g.store.Clear()
		g.broadcast(protocol.EventRehearsalEnded, nil)

	default:
		slog.Debug("ignoring unknown event", append(in.c.logAttrs(), slog.String("type", string(msg.Type)))...)
	}
}

func (g *Gateway) broadcast(t protocol.EventType, payload json.RawMessage) {
	data, ok := g.encode(t, payload)
	if !ok {
		return
	}
	for _, c := range g.registry.Broadcast(data) {
		slog.Warn("ws client too slow, disconnecting", c.logAttrs()...)
	}
	g.clients.Store(int64(g.registry.Len()))
}

func (g *Gateway) sendTo(c *client, t protocol.EventType, payload json.RawMessage) {
	if !g.registry.Contains(c) {
		return
	}
	data, ok := g.encode(t, payload)
	if !ok {
		return
	}
	if !g.registry.SendTo(c, data) {
		slog.Warn("ws client too slow, disconnecting", c.logAttrs()...)
		g.clients.Store(int64(g.registry.Len()))
	}
}

func (g *Gateway) encode(t protocol.EventType, payload json.RawMessage) ([]byte, bool) {
	g.seq++
	data, err := protocol.Encode(t, g.seq, payload)
	if err != nil {
		slog.Error("ws encode error", slog.String("type", string(t)), slog.Any("error", err))
		return nil, false
	}
	return data, true
}

func (g *Gateway) snapshot() Snapshot {
	song, ok := g.store.Current()
	return Snapshot{
		Song:    song,
		HasSong: ok,
		Clients: g.registry.Len(),
		Seq:     g.seq,
	}
}
