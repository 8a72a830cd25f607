package session

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Song is the client-owned payload describing the selected song. The server
// relays it verbatim; only Meta and Validate look inside.
type Song struct {
	raw json.RawMessage
}

// Meta holds the fields the server reads from a Song for logging.
type Meta struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

var (
	ErrSongNotObject = errors.New("song payload is not a JSON object")
	ErrSongNoTitle   = errors.New("song payload has no title")
	ErrSongNoArtist  = errors.New("song payload has no artist")
)

// NewSong copies raw so later reuse of the caller's buffer cannot alter the
// stored song.
func NewSong(raw json.RawMessage) Song {
	return Song{raw: bytes.Clone(bytes.TrimSpace(raw))}
}

// Raw returns the payload bytes. Callers must not modify them.
func (s Song) Raw() json.RawMessage {
	return s.raw
}

// IsZero reports whether the payload is missing or a JSON falsy literal.
// Such a song is stored like any other but is never replayed to late joiners.
func (s Song) IsZero() bool {
	switch string(s.raw) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

// Meta decodes title and artist on a best-effort basis. Non-object payloads
// and non-string fields yield empty values.
func (s Song) Meta() Meta {
	var fields map[string]json.RawMessage
	if json.Unmarshal(s.raw, &fields) != nil {
		return Meta{}
	}
	var m Meta
	_ = json.Unmarshal(fields["title"], &m.Title)
	_ = json.Unmarshal(fields["artist"], &m.Artist)
	return m
}

// Validate checks the payload is an object with non-empty title and artist
// strings. It is only consulted when the gateway runs in strict mode.
func (s Song) Validate() error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.raw, &fields); err != nil || fields == nil {
		return ErrSongNotObject
	}
	var title, artist string
	if json.Unmarshal(fields["title"], &title) != nil || title == "" {
		return ErrSongNoTitle
	}
	if json.Unmarshal(fields["artist"], &artist) != nil || artist == "" {
		return ErrSongNoArtist
	}
	return nil
}

func (s Song) MarshalJSON() ([]byte, error) {
	if len(s.raw) == 0 {
		return []byte("null"), nil
	}
	return s.raw, nil
}

func (s *Song) UnmarshalJSON(data []byte) error {
	*s = NewSong(data)
	return nil
}
