package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	env "github.com/Netflix/go-env"
)

// Config describes how the chat service runs. Values come from the
// environment; cmd/server loads a .env file first for local development.
type Config struct {
	Addr     string `env:"CHAT_ADDR,default=:8080"`
	DBPath   string `env:"CHAT_DB_PATH,default=seucodigo-chat.db"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Logger builds the process logger at the configured level.
func (c Config) Logger() (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})), nil
}
