package session

import (
	"sync"
)

// Store holds the rehearsal's current song. The gateway loop is its only
// writer; the lock lets HTTP handlers and tests read it directly.
type Store struct {
	mu      sync.RWMutex
	song    Song
	present bool
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the selected song. ok is false when nothing is selected or
// the stored payload is zero (see Song.IsZero).
func (s *Store) Current() (song Song, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present || s.song.IsZero() {
		return Song{}, false
	}
	return s.song, true
}

// Set replaces the current song unconditionally.
func (s *Store) Set(song Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song = song
	s.present = true
}

// Clear resets the store to no song selected.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song = Song{}
	s.present = false
}
