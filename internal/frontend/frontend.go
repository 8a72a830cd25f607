// Package frontend serves the rehearsal web page. It sits beside the
// WebSocket gateway on the same listener but knows nothing about it.
package frontend

import (
	"log/slog"
	"net/http"
	"os"
)

// Handler picks how the web page is served. Development mode always serves
// dir from disk so edits show up on reload. Production prefers the embedded
// bundle and falls back to dir when it exists. A nil result means no page is
// available.
func Handler(dev bool, dir string) http.Handler {
	if dev {
		slog.Info("serving frontend from filesystem", slog.String("dir", dir))
		return noCache(http.FileServer(http.Dir(dir)))
	}

	if h := Embedded(); h != nil {
		slog.Info("serving embedded frontend")
		return h
	}

	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			slog.Info("no embedded frontend, falling back to filesystem", slog.String("dir", dir))
			return http.FileServer(http.Dir(dir))
		}
	}

	slog.Warn("no frontend available; only /ws and /api are served")
	return nil
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
