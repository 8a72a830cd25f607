package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/guyhaliva123/rehearsal-sync/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gateway GatewayConfig `yaml:"gateway"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	Env            string   `yaml:"env"`
	FrontendDir    string   `yaml:"frontend_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GatewayConfig tunes the broadcast gateway. Zero limits mean unlimited.
type GatewayConfig struct {
	SendBuffer      int     `yaml:"send_buffer"`
	MaxConnections  int     `yaml:"max_connections"`
	EventsPerSecond float64 `yaml:"events_per_second"`
	EventBurst      int     `yaml:"event_burst"`
	StrictSongs     bool    `yaml:"strict_songs"`
	MaxMessageBytes int64   `yaml:"max_message_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3000,
			Host:        "0.0.0.0",
			Env:         EnvDevelopment,
			FrontendDir: "internal/frontend/static",
		},
		Gateway: GatewayConfig{
			SendBuffer:      64,
			MaxMessageBytes: 64 * 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.WrapError(err, "read config")
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, logging.WrapError(err, "parse config "+path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults (plus
// environment overrides) when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		return nil, err
	}

	cfg = defaultConfig()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with PORT, APP_ENV and LOGGING_LEVEL.
// Unparseable values are ignored.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Server.Env = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LOGGING_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("server.env %q: want %q or %q", c.Server.Env, EnvDevelopment, EnvProduction)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	g := c.Gateway
	if g.SendBuffer < 1 {
		return fmt.Errorf("gateway.send_buffer must be positive, got %d", g.SendBuffer)
	}
	if g.MaxConnections < 0 || g.EventsPerSecond < 0 || g.EventBurst < 0 || g.MaxMessageBytes < 0 {
		return errors.New("gateway limits must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
