package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestNewSetsGlobalLevel(t *testing.T) {
	testCases := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel}, // unknown level falls back to info
		{"", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			New(Config{Level: tc.level})
			assert.Equal(t, tc.expected, zerolog.GlobalLevel())
		})
	}
}

func TestNewEmitsStructuredOutput(t *testing.T) {
	logger := New(Config{Level: "info"})

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Str("component", "test").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"test"`)
	assert.Contains(t, out, "hello")
	// Caller is enabled, so the emitting file shows up in each line.
	assert.Contains(t, out, "logger_test.go")
}

func TestNewFiltersBelowConfiguredLevel(t *testing.T) {
	logger := New(Config{Level: "error"})

	var buf bytes.Buffer
	logger = logger.Output(&buf)

	logger.Info().Msg("too quiet")
	assert.NotContains(t, buf.String(), "too quiet")

	logger.Error().Msg("loud enough")
	assert.Contains(t, buf.String(), "loud enough")
}

func TestNewPrettyOutput(t *testing.T) {
	logger := New(Config{Level: "info", Pretty: true})

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("console message")

	assert.Contains(t, buf.String(), "console message")
}

func TestSetGlobalLogger(t *testing.T) {
	original := log.Logger
	defer SetGlobalLogger(original)

	var buf bytes.Buffer
	SetGlobalLogger(zerolog.New(&buf))

	log.Info().Msg("via global")
	assert.Contains(t, buf.String(), "via global")
}
