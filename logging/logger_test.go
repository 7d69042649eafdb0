package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", slog.LevelInfo)

	logger.Info("stage completed", "agent", "layout", "duration_ms", 120)
	logger.Debug("dropped below level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "stage completed", entry["msg"])
	assert.Equal(t, "layout", entry["agent"])
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "text", slog.LevelWarn)

	logger.Info("filtered out")
	logger.Warn("budget exhausted", "wait", "2s")
	logger.Error("stage failed", "agent", "component")

	out := buf.String()
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, "budget exhausted")
	assert.Contains(t, out, "agent=component")
}

func TestNoOpLoggerIsSilent(t *testing.T) {
	// Must not panic; there is nothing else observable.
	var l NoOpLogger
	l.Debug("a")
	l.Info("b", "k", "v")
	l.Warn("c")
	l.Error("d")
}
