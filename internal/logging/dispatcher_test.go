package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewDispatcherLogger(t *testing.T) {
	dl := NewDispatcherLogger(zerolog.Nop())
	require.NotNil(t, dl)
}

func TestDispatcherLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("test message", "key1", "value1", "key2", 42)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"]) // JSON numbers are float64
}

func TestDispatcherLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("info message", "status", "ok")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ok", entry["status"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("error occurred", "code", 500, "reason", "internal")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, float64(500), entry["code"])
	assert.Equal(t, "internal", entry["reason"])
}

func TestDispatcherLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("should not appear")
	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_Warn(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Warn("queue full, event dropped", "command", "export_influx", "capacity", 4)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "dispatcher", entry["component"])
	assert.Equal(t, "export_influx", entry["command"])
	assert.Equal(t, float64(4), entry["capacity"])
}

func TestDispatcherLogger_TypedFields(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("event failed",
		"command", "get_record",
		"duration", 1500*time.Millisecond,
		"error", errors.New("boom"),
		"args", []string{"a", "b"},
		"queued", true,
	)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(1500), entry["duration"]) // zerolog durations default to milliseconds
	assert.Equal(t, []any{"a", "b"}, entry["args"])
	assert.Equal(t, true, entry["queued"])
}

func TestDispatcherLogger_IgnoresNonStringKeysAndOddTail(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("msg", "a", 1, 2, "b", "dangling")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, float64(1), entry["a"])
	assert.NotContains(t, entry, "b")
	assert.NotContains(t, entry, "dangling")
}
