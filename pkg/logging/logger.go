package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Name is the application name attached to every log line.
type Name string

// Config carries the options used to build the common logger.
type Config struct {
	name  Name
	level slog.Level
}

// NewConfig creates a logging config for the named application. The log level
// is taken from the LOG_LEVEL environment variable when set.
func NewConfig(name Name) *Config {
	level := slog.LevelInfo
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		if err := level.UnmarshalText([]byte(env)); err != nil {
			level = slog.LevelInfo
		}
	}

	return &Config{
		name:  name,
		level: level,
	}
}

// CommonLogger builds the shared application logger. All log lines are JSON on
// stdout with the application name attached.
func CommonLogger(c *Config) (*slog.Logger, error) {
	if c == nil {
		return nil, fmt.Errorf("nil logging config")
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: c.level,
	})

	l := slog.New(h).With(slog.String("app", string(c.name)))
	slog.SetDefault(l)
	return l, nil
}
