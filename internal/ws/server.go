package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/guyhaliva123/rehearsal-sync/internal/config"
	"github.com/guyhaliva123/rehearsal-sync/internal/health"
	"github.com/guyhaliva123/rehearsal-sync/internal/logging"
)

type Server struct {
	gateway        *Gateway
	frontend       http.Handler
	maxConnections int
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	started        time.Time
}

// NewServer wires the gateway and the web frontend behind one router.
// frontend may be nil, in which case non-API paths return 404.
func NewServer(cfg *config.Config, gateway *Gateway, frontend http.Handler) *Server {
	s := &Server{
		gateway:        gateway,
		frontend:       frontend,
		maxConnections: cfg.Gateway.MaxConnections,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		started:        time.Now(),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/session", s.handleSession)
	})

	if s.frontend != nil {
		r.Handle("/*", s.frontend)
	}
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.maxConnections > 0 && s.gateway.ClientCount() >= s.maxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade error", slog.String("ip", logging.ClientIP(r)), slog.Any("error", err))
		return
	}

	c, err := s.gateway.AddClient(conn, logging.ClientIP(r))
	if err != nil {
		slog.Warn("ws client rejected", slog.String("ip", logging.ClientIP(r)), slog.Any("error", err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	slog.Info("ws client connected", c.logAttrs()...)
	go s.gateway.Serve(c)
}

type healthResponse struct {
	Status       string               `json:"status"`
	Clients      int                  `json:"clients"`
	SongSelected bool                 `json:"songSelected"`
	Uptime       string               `json:"uptime"`
	Process      *health.ProcessStats `json:"process,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.gateway.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "gateway unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := healthResponse{
		Status:       "ok",
		Clients:      snap.Clients,
		SongSelected: snap.HasSong,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
	}
	if stats, err := health.Collect(r.Context()); err == nil {
		resp.Process = &stats
	} else {
		slog.Warn("process stats unavailable", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.gateway.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "gateway unavailable", http.StatusServiceUnavailable)
		return
	}
	if !snap.HasSong {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(snap.Song.Raw())
}

// checkOrigin accepts any origin unless allowed_origins is configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.allowedOrigins) == 0 {
		return true
	}
	if s.allowedOrigins[origin] {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	return s.allowedHosts[parsed.Host] || parsed.Host == r.Host
}

// ListenAndServe binds addr and serves handler until ctx is cancelled, then
// shuts down gracefully. Bind failures are returned immediately.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return logging.WrapError(err, "listen on "+addr)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("server ready", slog.String("url", "http://"+ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
