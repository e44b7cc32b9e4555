package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	emit := func(logger zerolog.Logger) {
		logger.Debug().Msg("rendering batch")
		logger.Info().Msg("fetched submissions")
		logger.Warn().Msg("upload failed, using original")
		logger.Error().Msg("failed to save image cache")
	}

	tests := []struct {
		level LogLevel
		want  []bool // debug, info, warn, error
	}{
		{LevelDebug, []bool{true, true, true, true}},
		{LevelInfo, []bool{false, true, true, true}},
		{LevelWarn, []bool{false, false, true, true}},
		{LevelError, []bool{false, false, false, true}},
	}
	messages := []string{"rendering batch", "fetched submissions", "upload failed", "failed to save"}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			emit(Setup(Config{Level: tt.level, Output: buf}))

			output := buf.String()
			for i, msg := range messages {
				if got := strings.Contains(output, msg); got != tt.want[i] {
					t.Errorf("level %s: output contains %q = %v, want %v", tt.level, msg, got, tt.want[i])
				}
			}
		})
	}
}

func TestSetup_NilOutputDefaultsToStderr(t *testing.T) {
	// Must not panic on a zero Config.
	logger := Setup(Config{})
	logger.Debug().Msg("discarded at info level")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"WARNING", zerolog.WarnLevel},
		{" debug ", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: buf,
	})

	logger := NewLogger("cache")
	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"component":"cache"`) {
		t.Errorf("Expected output to contain component field, got %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got %q", output)
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Str("key", "abcd1234").Msg("cached image")

	output := buf.String()
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("Pretty output should not be JSON, got %q", output)
	}
	if !strings.Contains(output, "cached image") {
		t.Errorf("Expected message in output, got %q", output)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{name: "short kept", input: "https://a/b", n: 50, want: "https://a/b"},
		{name: "exact length kept", input: "abcde", n: 5, want: "abcde"},
		{name: "long truncated", input: "abcdefgh", n: 3, want: "abc..."},
		{name: "runes not split", input: "ééééé", n: 2, want: "éé..."},
		{name: "zero limit disables", input: "abcdef", n: 0, want: "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.n); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
			}
		})
	}
}
