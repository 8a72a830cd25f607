package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guyhaliva123/rehearsal-sync/internal/config"
	"github.com/guyhaliva123/rehearsal-sync/internal/frontend"
	"github.com/guyhaliva123/rehearsal-sync/internal/logging"
	"github.com/guyhaliva123/rehearsal-sync/internal/mock"
	"github.com/guyhaliva123/rehearsal-sync/internal/session"
	"github.com/guyhaliva123/rehearsal-sync/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	devMode := flag.Bool("dev", false, "Development mode (serve frontend from filesystem)")
	mockMode := flag.Bool("mock", false, "Play a demo setlist through the gateway")
	mockTempo := flag.Duration("mock-tempo", 2*time.Second, "Delay between demo events")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logging.Initialize("info", true)
		slog.Error("failed to load config", slog.String("path", *configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.Env = config.EnvDevelopment
	}

	logging.Initialize(cfg.Log.Level, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(*configPath); err == nil {
		go func() {
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				logging.SetLevel(c.Log.Level)
				slog.Info("config reloaded", slog.String("log_level", c.Log.Level))
			})
			if err != nil {
				slog.Warn("config watch disabled", slog.Any("error", err))
			}
		}()
	}

	store := session.NewStore()
	gateway := ws.NewGateway(store, ws.OptionsFromConfig(cfg.Gateway))
	go gateway.Run(ctx)

	if *mockMode {
		slog.Info("starting in mock mode", slog.Duration("tempo", *mockTempo))
		mock.NewGenerator(gateway, *mockTempo).Start(ctx)
	}

	server := ws.NewServer(cfg, gateway, frontend.Handler(!cfg.IsProduction(), cfg.Server.FrontendDir))

	slog.Info("starting rehearsal server",
		slog.String("env", cfg.Server.Env),
		slog.String("addr", cfg.Addr()),
		slog.Bool("strict_songs", cfg.Gateway.StrictSongs),
	)

	if err := ws.ListenAndServe(ctx, cfg.Addr(), server.Routes()); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}
