package ws

import "testing"

func newTestClient(id string, buf int) *client {
	return &client{id: id, remote: "test", send: make(chan []byte, buf)}
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("a", 1)
	r.Register(c)
	r.Register(c)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_UnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("a", 1)
	if r.Unregister(c) {
		t.Error("Unregister of unknown client reported removal")
	}

	r.Register(c)
	if !r.Unregister(c) {
		t.Error("Unregister of registered client reported no removal")
	}
	// Second removal must not close the channel again.
	if r.Unregister(c) {
		t.Error("second Unregister reported removal")
	}
	if _, ok := <-c.send; ok {
		t.Error("send queue should be closed after Unregister")
	}
}

func TestRegistry_BroadcastReachesAll(t *testing.T) {
	r := NewRegistry()
	clients := []*client{newTestClient("a", 1), newTestClient("b", 1), newTestClient("c", 1)}
	for _, c := range clients {
		r.Register(c)
	}

	if dropped := r.Broadcast([]byte("x")); len(dropped) != 0 {
		t.Fatalf("unexpected drops: %d", len(dropped))
	}
	for _, c := range clients {
		if got := string(<-c.send); got != "x" {
			t.Errorf("client %s got %q, want x", c.id, got)
		}
	}
}

func TestRegistry_BroadcastIsolatesFullQueue(t *testing.T) {
	r := NewRegistry()
	slow := newTestClient("slow", 1)
	fast := newTestClient("fast", 4)
	r.Register(slow)
	r.Register(fast)

	r.Broadcast([]byte("1"))
	dropped := r.Broadcast([]byte("2"))

	if len(dropped) != 1 || dropped[0] != slow {
		t.Fatalf("dropped = %v, want only slow client", dropped)
	}
	if r.Contains(slow) {
		t.Error("slow client still registered")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if got := string(<-fast.send) + string(<-fast.send); got != "12" {
		t.Errorf("fast client got %q, want 12", got)
	}
}

func TestRegistry_SendTo(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	b := newTestClient("b", 1)
	r.Register(a)
	r.Register(b)

	if !r.SendTo(a, []byte("only-a")) {
		t.Fatal("SendTo registered client failed")
	}
	if got := string(<-a.send); got != "only-a" {
		t.Errorf("a got %q", got)
	}
	select {
	case msg := <-b.send:
		t.Errorf("b should receive nothing, got %q", msg)
	default:
	}

	stranger := newTestClient("stranger", 1)
	if r.SendTo(stranger, []byte("x")) {
		t.Error("SendTo unregistered client should fail")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	b := newTestClient("b", 1)
	r.Register(a)
	r.Register(b)

	r.CloseAll()
	if r.Len() != 0 {
		t.Errorf("Len() = %d after CloseAll", r.Len())
	}
	for _, c := range []*client{a, b} {
		if _, ok := <-c.send; ok {
			t.Errorf("client %s queue not closed", c.id)
		}
	}
}
