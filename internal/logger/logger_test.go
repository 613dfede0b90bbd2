package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetupJSON(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("debug", "json", &buf)

	WithComponent("index-builder").Debug("chunk read", "lines", 10)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "chunk read", record["msg"])
	assert.Equal(t, "index-builder", record["component"])
	assert.Equal(t, float64(10), record["lines"])
}

func TestSetupTextFiltersLevel(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("warn", "text", &buf)

	slog.Info("hidden")
	slog.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
