package console

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Config controls the interactive console. Loaded from TOML; every field
// has a usable default so a missing file just means defaults.
type Config struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"`

	// Manifest is an optional command manifest to load at startup and
	// hot-reload on change.
	Manifest string `toml:"manifest"`

	// Level is the permission level of the operator driving this console.
	Level int `toml:"level"`

	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Prompt:      "> ",
		HistoryFile: os.TempDir() + "/espalier_history",
		Level:       OperatorLevel,
		LogLevel:    "info",
	}
}

// LoadConfig reads a TOML config file, layering it over the defaults.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SlogLevel maps the configured log level name onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
