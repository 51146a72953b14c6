// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=9000" json:"port"`

	// Directory settings
	UploadDir string `env:"UPLOAD_DIR, default=uploads" json:"upload_dir"`
	VideoDir  string `env:"VIDEO_DIR, default=videos" json:"video_dir"`

	// External tool settings
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Processing settings
	FetchTimeout         time.Duration `env:"FETCH_TIMEOUT, default=60s" json:"fetch_timeout"`
	EncodeTimeout        time.Duration `env:"ENCODE_TIMEOUT, default=10m" json:"encode_timeout"`
	MaxConcurrentFetches int           `env:"MAX_CONCURRENT_FETCHES, default=4" json:"max_concurrent_fetches"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UploadDir: %s, VideoDir: %s, FFmpegPath: %s, FetchTimeout: %s, EncodeTimeout: %s, MaxConcurrentFetches: %d, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.UploadDir,
		c.VideoDir,
		c.FFmpegPath,
		c.FetchTimeout,
		c.EncodeTimeout,
		c.MaxConcurrentFetches,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
