// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output. CI logs stay JSON.
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a logger tagged with the given component name from the
// global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Truncate shortens s to at most n runes for log fields such as image URLs.
// An ellipsis marks truncated values.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache lookups (hit/miss, key)
//   - Pagination steps (cursor, batch bounds)
//   - Request flow (formula, attempt)
//
// Info: Normal operation events
//   - Submissions fetched
//   - Batch progress during optimization
//   - Images optimized and cached
//   - Gallery written or left unchanged
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Upload failures (fallback to original URL)
//   - Unreadable cache or checksum file (treated as empty)
//   - Retry attempts
//
// Error: Error conditions requiring attention
//   - Failed fetches (after retries)
//   - Cache persistence write failures
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (cache, cdn, client, gallery, pagination)
//   - key: First 8 hex characters of a cache key
//   - url: First 50 characters of an image URL
//   - status_code: HTTP status code
//   - batch / batches: Current batch number and total
//   - cursor / total: Pagination position
//   - duration: Operation duration
//   - error_class: Error classification (client, server, network, decode)
