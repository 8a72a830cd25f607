package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guyhaliva123/rehearsal-sync/internal/logging"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/app"
	"github.com/guyhaliva123/rehearsal-sync/internal/tui/client"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:3000/ws", "WebSocket URL of the rehearsal server")
	logFile := flag.String("log", "", "Write debug logs to this file")
	flag.Parse()

	// The alt screen owns stdout, so logs go to a file or nowhere.
	if *logFile != "" {
		f, err := tea.LogToFile(*logFile, "rehearsal-tui")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		slog.SetDefault(logging.New(f, "debug", false))
	} else {
		slog.SetDefault(logging.New(io.Discard, "error", false))
	}

	httpBase := deriveHTTPBase(*wsURL)

	ws := client.NewWSClient(*wsURL)
	httpClient := client.NewHTTPClient(httpBase)

	m := app.New(ws, httpClient)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/ws → http://host:port
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "http://127.0.0.1:3000"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
