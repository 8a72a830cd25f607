package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

func TestNewStoreIsEmpty(t *testing.T) {
	s := NewStore()
	if _, ok := s.Current(); ok {
		t.Error("new store reports a current song")
	}
}

func TestSetAndCurrent(t *testing.T) {
	s := NewStore()
	s.Set(NewSong(json.RawMessage(`{"title":"Hotel California","artist":"Eagles"}`)))

	got, ok := s.Current()
	if !ok {
		t.Fatal("Current() ok=false after Set")
	}
	if string(got.Raw()) != `{"title":"Hotel California","artist":"Eagles"}` {
		t.Errorf("Current() raw = %s", got.Raw())
	}
}

func TestLastWriteWins(t *testing.T) {
	s := NewStore()
	songs := []string{
		`{"title":"Hotel California","artist":"Eagles"}`,
		`{"title":"Take It Easy","artist":"Eagles"}`,
		`{"title":"Wonderwall","artist":"Oasis","key":"F#m"}`,
	}
	for _, raw := range songs {
		s.Set(NewSong(json.RawMessage(raw)))
		got, ok := s.Current()
		if !ok || string(got.Raw()) != raw {
			t.Fatalf("after Set(%s): Current() = %s, %v", raw, got.Raw(), ok)
		}
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Set(NewSong(json.RawMessage(`{"title":"a"}`)))
	s.Clear()
	if _, ok := s.Current(); ok {
		t.Error("Current() ok=true after Clear")
	}

	// Clearing twice is the same as clearing once.
	s.Clear()
	if _, ok := s.Current(); ok {
		t.Error("Current() ok=true after second Clear")
	}
}

func TestSetStoresUnvalidatedPayload(t *testing.T) {
	s := NewStore()
	s.Set(NewSong(json.RawMessage(`[1,2,3]`)))

	got, ok := s.Current()
	if !ok {
		t.Fatal("malformed payload should still be stored")
	}
	if string(got.Raw()) != `[1,2,3]` {
		t.Errorf("raw = %s, want [1,2,3]", got.Raw())
	}
}

func TestFalsySongNotReported(t *testing.T) {
	for _, raw := range []string{"null", "false", "0", `""`, ""} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			s := NewStore()
			s.Set(NewSong(json.RawMessage(raw)))
			if _, ok := s.Current(); ok {
				t.Errorf("Current() ok=true for falsy payload %q", raw)
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Set(NewSong(json.RawMessage(fmt.Sprintf(`{"title":"song-%d"}`, i))))
		}(i)
		go func() {
			defer wg.Done()
			s.Current()
		}()
	}
	wg.Wait()

	if _, ok := s.Current(); !ok {
		t.Error("expected a song after concurrent writes")
	}
}
