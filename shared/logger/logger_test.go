package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel string
		wantMsgs  int
	}{
		{name: "debug logs everything", level: "debug", wantLevel: "DEBUG", wantMsgs: 4},
		{name: "info drops debug", level: "info", wantLevel: "INFO", wantMsgs: 3},
		{name: "warn drops info", level: "warn", wantLevel: "WARN", wantMsgs: 2},
		{name: "error only", level: "error", wantLevel: "ERROR", wantMsgs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message", slog.String("queue", "high"))

			entries := decodeLines(t, output)
			require.Len(t, entries, tt.wantMsgs)
			assert.Equal(t, tt.wantLevel, entries[0]["level"])
			assert.Equal(t, "high", entries[len(entries)-1]["queue"])
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		NoColor:    true,
		writer:     output,
	})
	require.NoError(t, err)

	logger.Info("Found job", slog.String("queue", "mail"))

	// tint abbreviates levels
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "Found job")
	assert.Contains(t, output.String(), "queue=mail")
}

func TestNew_Source(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", EnableSource: true, writer: output})
	require.NoError(t, err)

	logger.Info("message with source")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", slog.String("worker_id", "host:1:q"))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "host:1:q", entry["worker_id"])
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&Config{Format: "xml", writer: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "unsupported log format")

	_, err = New(&Config{Format: "json", Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.ErrorContains(t, err, "failed to open log file")
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "info", expected: slog.LevelInfo},
		{level: "warn", expected: slog.LevelWarn},
		{level: "warning", expected: slog.LevelWarn},
		{level: "error", expected: slog.LevelError},
		{level: "DEBUG", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_Derived(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", writer: output})
	require.NoError(t, err)

	logger.Component("worker").Info("Starting worker")
	logger.WithGroup("job").Info("done", slog.String("class", "Echo"))
	logger.With(slog.Int("attempt", 1)).Info("retry")

	entries := decodeLines(t, output)
	require.Len(t, entries, 3)

	assert.Equal(t, "worker", entries[0]["component"])

	group, ok := entries[1]["job"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Echo", group["class"])

	assert.Equal(t, float64(1), entries[2]["attempt"])
}
