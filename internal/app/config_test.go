package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("CHAT_ADDR", "127.0.0.1:9090")
	t.Setenv("CHAT_DB_PATH", "/tmp/chat-test.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal("127.0.0.1:9090", cfg.Addr)
	req.Equal("/tmp/chat-test.db", cfg.DBPath)
	req.Equal("debug", cfg.LogLevel)
}

func TestLoggerLevels(t *testing.T) {
	req := require.New(t)

	for _, level := range []string{"", "debug", "info", "warn", "warning", "error", "ERROR"} {
		log, err := Config{LogLevel: level}.Logger()
		req.NoError(err, "level %q", level)
		req.NotNil(log)
	}

	_, err := Config{LogLevel: "verbose"}.Logger()
	req.Error(err)
}
