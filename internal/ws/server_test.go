package ws

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guyhaliva123/rehearsal-sync/internal/config"
	"github.com/guyhaliva123/rehearsal-sync/internal/protocol"
	"github.com/guyhaliva123/rehearsal-sync/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
			Env:  config.EnvDevelopment,
		},
		Gateway: config.GatewayConfig{
			SendBuffer:      64,
			MaxMessageBytes: 64 * 1024,
		},
		Log: config.LogConfig{Level: "info"},
	}
}

// newTestServer starts a gateway and an httptest server in front of it.
func newTestServer(t *testing.T, cfg *config.Config, frontend http.Handler) (*httptest.Server, *Gateway) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	g := NewGateway(session.NewStore(), OptionsFromConfig(cfg.Gateway))
	ctx, cancel := context.WithCancel(context.Background())
	go g.Run(ctx)

	srv := httptest.NewServer(NewServer(cfg, g, frontend).Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-g.done
	})
	return srv, g
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, typ protocol.EventType, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, frame(typ, payload)); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestRehearsalScenario(t *testing.T) {
	srv, g := newTestServer(t, nil, nil)

	a := dialWS(t, srv)
	b := dialWS(t, srv)
	c := dialWS(t, srv)
	waitForCount(t, g, 3)

	sendFrame(t, a, protocol.EventSongSelected, hotelCalifornia)
	for name, conn := range map[string]*websocket.Conn{"A": a, "B": b, "C": c} {
		msg := readFrame(t, conn)
		if msg.Type != protocol.EventSongSelected || string(msg.Payload) != hotelCalifornia {
			t.Errorf("%s got %s %s", name, msg.Type, msg.Payload)
		}
	}

	d := dialWS(t, srv)
	waitForCount(t, g, 4)
	sendFrame(t, d, protocol.EventGetCurrentSong, "")
	if msg := readFrame(t, d); msg.Type != protocol.EventSongSelected || string(msg.Payload) != hotelCalifornia {
		t.Fatalf("D got %s %s", msg.Type, msg.Payload)
	}

	// Per-connection FIFO: if A, B or C had received D's catch-up reply it
	// would arrive before rehearsalEnded.
	sendFrame(t, b, protocol.EventQuitRehearsal, "")
	for name, conn := range map[string]*websocket.Conn{"A": a, "B": b, "C": c, "D": d} {
		if msg := readFrame(t, conn); msg.Type != protocol.EventRehearsalEnded {
			t.Errorf("%s got %s, want rehearsalEnded", name, msg.Type)
		}
	}

	e := dialWS(t, srv)
	waitForCount(t, g, 5)
	sendFrame(t, e, protocol.EventGetCurrentSong, "")
	sendFrame(t, e, protocol.EventSyncScroll, "0")
	if msg := readFrame(t, e); msg.Type != protocol.EventScrollTo {
		t.Errorf("E got %s, want no songSelected before scrollTo", msg.Type)
	}
}

func TestScrollOrderingAcrossConnections(t *testing.T) {
	srv, g := newTestServer(t, nil, nil)

	x := dialWS(t, srv)
	y := dialWS(t, srv)
	z := dialWS(t, srv)
	waitForCount(t, g, 3)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		x.WriteMessage(websocket.TextMessage, frame(protocol.EventSyncScroll, "120"))
	}()
	go func() {
		defer wg.Done()
		y.WriteMessage(websocket.TextMessage, frame(protocol.EventSyncScroll, "340"))
	}()
	wg.Wait()

	var orders [][]string
	for _, conn := range []*websocket.Conn{x, y, z} {
		first := readFrame(t, conn)
		second := readFrame(t, conn)
		if first.Type != protocol.EventScrollTo || second.Type != protocol.EventScrollTo {
			t.Fatalf("got %s, %s; want two scrollTo", first.Type, second.Type)
		}
		if first.Seq >= second.Seq {
			t.Errorf("seq out of order: %d then %d", first.Seq, second.Seq)
		}
		orders = append(orders, []string{string(first.Payload), string(second.Payload)})
	}

	for i, o := range orders {
		if o[0] != orders[0][0] || o[1] != orders[0][1] {
			t.Errorf("connection %d saw %v, connection 0 saw %v", i, o, orders[0])
		}
	}
	got := orders[0][0] + "," + orders[0][1]
	if got != "120,340" && got != "340,120" {
		t.Errorf("unexpected scroll values %s", got)
	}
}

func TestDisconnectedClientNoLongerCounted(t *testing.T) {
	srv, g := newTestServer(t, nil, nil)

	a := dialWS(t, srv)
	b := dialWS(t, srv)
	waitForCount(t, g, 2)

	a.Close()
	waitForCount(t, g, 1)

	sendFrame(t, b, protocol.EventSyncScroll, "42")
	if msg := readFrame(t, b); msg.Type != protocol.EventScrollTo || string(msg.Payload) != "42" {
		t.Errorf("b got %s %s", msg.Type, msg.Payload)
	}
}

func TestMaxConnectionsRejectsUpgrade(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.MaxConnections = 1
	srv, g := newTestServer(t, cfg, nil)

	dialWS(t, srv)
	waitForCount(t, g, 1)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("second dial should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
}

func TestRateLimitDropsExcessEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.EventsPerSecond = 0.5
	cfg.Gateway.EventBurst = 1
	srv, g := newTestServer(t, cfg, nil)

	a := dialWS(t, srv)
	waitForCount(t, g, 1)

	sendFrame(t, a, protocol.EventSyncScroll, "1")
	sendFrame(t, a, protocol.EventSyncScroll, "2")
	sendFrame(t, a, protocol.EventSyncScroll, "3")

	if msg := readFrame(t, a); string(msg.Payload) != "1" {
		t.Fatalf("first frame payload = %s, want 1", msg.Payload)
	}

	a.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := a.ReadMessage(); err == nil {
		t.Errorf("rate-limited frame was relayed: %s", data)
	}
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AllowedOrigins = []string{"https://band.example.com"}
	srv, _ := newTestServer(t, cfg, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	tests := []struct {
		origin string
		wantOK bool
	}{
		{"https://band.example.com", true},
		{"http://band.example.com", true}, // host match
		{"https://evil.example.com", false},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("dial should be rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}

func TestAnyOriginAllowedByDefault(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://anywhere.example.org"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial with foreign origin: %v", err)
	}
	conn.Close()
}

func TestHealthEndpoint(t *testing.T) {
	srv, g := newTestServer(t, nil, nil)
	dialWS(t, srv)
	waitForCount(t, g, 1)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Clients != 1 || body.SongSelected {
		t.Errorf("health = %+v", body)
	}
}

func TestSessionEndpoint(t *testing.T) {
	srv, g := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status with no song = %d, want 204", resp.StatusCode)
	}

	a := dialWS(t, srv)
	waitForCount(t, g, 1)
	sendFrame(t, a, protocol.EventSongSelected, hotelCalifornia)
	readFrame(t, a)

	resp, err = http.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != hotelCalifornia {
		t.Errorf("got %d %s", resp.StatusCode, body)
	}
}

func TestFrontendHandlesOtherPaths(t *testing.T) {
	frontend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "page:"+r.URL.Path)
	})
	srv, _ := newTestServer(t, nil, frontend)

	resp, err := http.Get(srv.URL + "/rehearsal/42")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "page:/rehearsal/42" {
		t.Errorf("body = %q", body)
	}
}

func TestNoFrontendIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListenAndServe_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	err = ListenAndServe(context.Background(), ln.Addr().String(), http.NotFoundHandler())
	if err == nil {
		t.Fatal("expected error when the port is taken")
	}
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
