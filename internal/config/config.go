// Package config loads server configuration from an optional YAML file with
// sane defaults for every knob, so a bare binary is runnable.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Session  SessionConfig  `mapstructure:"session"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Scryfall ScryfallConfig `mapstructure:"scryfall"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the websocket listener.
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GameConfig configures room defaults.
type GameConfig struct {
	StartingLife int `mapstructure:"starting_life"`
}

// SessionConfig configures disconnected-session retention.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// SyncConfig configures the client-side reconciliation timings. The server
// binary ignores these; they live here so one file configures both halves.
type SyncConfig struct {
	GraceWindow       time.Duration `mapstructure:"grace_window"`
	MoveDebounce      time.Duration `mapstructure:"move_debounce"`
	SelectionDebounce time.Duration `mapstructure:"selection_debounce"`
}

// ScryfallConfig configures the card metadata resolver.
type ScryfallConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path. A missing file is fine; defaults apply
// and environment variables prefixed VIZZERDRIX_ override individual keys.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("game.starting_life", 40)
	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("session.sweep_interval", 5*time.Minute)
	v.SetDefault("sync.grace_window", 2*time.Second)
	v.SetDefault("sync.move_debounce", 50*time.Millisecond)
	v.SetDefault("sync.selection_debounce", 100*time.Millisecond)
	v.SetDefault("scryfall.base_url", "https://api.scryfall.com")
	v.SetDefault("scryfall.timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("VIZZERDRIX")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			// Missing file: run on defaults.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
