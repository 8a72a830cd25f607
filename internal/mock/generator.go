// Package mock drives a rehearsal with no band attached. It plays through a
// built-in setlist, selecting each song and scrolling it at a steady tempo,
// so the web page and TUI can be tried against a live server.
package mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/guyhaliva123/rehearsal-sync/internal/protocol"
)

// Publisher accepts server-originated events. *ws.Gateway satisfies it.
type Publisher interface {
	Publish(t protocol.EventType, payload json.RawMessage) error
}

type mockSong struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Notes  string `json:"notes"`
}

var setlist = []mockSong{
	{
		Title: "Copper Lanterns", Artist: "The Night Shift",
		Notes: "## Intro\nAm  F  C  G\n\n## Verse\nAm  F  C  G\nAm  F  C  E\n\n## Chorus\nF  G  C  Am\nF  G  E\n\n## Outro\nAm  F  C  G  Am",
	},
	{
		Title: "Harbor Lights", Artist: "Mila & the Tides",
		Notes: "## Verse\nD  A  Bm  G\nD  A  G\n\n## Pre-chorus\nEm  G  A\n\n## Chorus\nG  D  A  Bm\nG  D  A\n\n## Bridge\nBm  A  G  G",
	},
	{
		Title: "Slow Burn", Artist: "Orchard Road",
		Notes: "## Groove\nE7 (4 bars)\n\n## Verse\nA7  A7  E7  E7\nB7  A7  E7  B7\n\n## Solo\n12-bar blues in E, twice\n\n## Ending\nB7  A7  E7",
	},
}

// Generator plays the setlist. Each tick scrolls one line; when a song runs
// out of lines the next one is selected, and after the last song the
// rehearsal ends and the setlist starts over.
type Generator struct {
	pub  Publisher
	tick time.Duration

	song int // index into setlist, -1 before the first selection
	line int
}

// NewGenerator creates a generator that publishes to pub every tick.
func NewGenerator(pub Publisher, tick time.Duration) *Generator {
	return &Generator{pub: pub, tick: tick, song: -1}
}

// Start runs the generator until ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()

	for {
		t, payload := g.step()
		if err := g.pub.Publish(t, payload); err != nil {
			slog.Debug("mock generator stopped", slog.Any("error", err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// step advances the generator and returns the next event to publish.
func (g *Generator) step() (protocol.EventType, json.RawMessage) {
	if g.song >= 0 && g.line < songLines(setlist[g.song]) {
		g.line++
		payload, _ := json.Marshal(g.line)
		return protocol.EventSyncScroll, payload
	}

	g.song++
	g.line = 0
	if g.song == len(setlist) {
		g.song = -1
		return protocol.EventQuitRehearsal, nil
	}

	payload, _ := json.Marshal(setlist[g.song])
	return protocol.EventSongSelected, payload
}

func songLines(s mockSong) int {
	return strings.Count(s.Notes, "\n") + 1
}
