// Package protocol defines the JSON frames exchanged over the rehearsal
// WebSocket. Both the gateway and the terminal client use it.
package protocol

import "encoding/json"

type EventType string

// Client to server.
const (
	EventGetCurrentSong EventType = "getCurrentSong"
	EventSyncScroll     EventType = "syncScroll"
	EventQuitRehearsal  EventType = "quitRehearsal"
)

// EventSongSelected travels in both directions.
const EventSongSelected EventType = "songSelected"

// Server to client.
const (
	EventScrollTo       EventType = "scrollTo"
	EventRehearsalEnded EventType = "rehearsalEnded"
)

// Message is the envelope for every frame. Seq is only set by the server and
// increases with every frame the gateway emits.
type Message struct {
	Type    EventType       `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals a frame with the given payload, which may be nil.
func Encode(t EventType, seq uint64, payload json.RawMessage) ([]byte, error) {
	return json.Marshal(Message{Type: t, Seq: seq, Payload: payload})
}

// Decode parses a frame. Frames without a type are rejected.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, ErrNoType
	}
	return msg, nil
}

// ScrollOffset decodes a scrollTo/syncScroll payload.
func ScrollOffset(payload json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(payload, &v); err != nil {
		return 0, false
	}
	return v, true
}
