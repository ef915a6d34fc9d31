package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer, level LogLevel) *Logger {
	l, err := New(Config{Level: level, Environment: "production", Encoding: "json", Output: buf})
	require.NoError(t, err)
	return l
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	var lines []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(line, &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, DebugLevel)

	l.WithComponent("recorder").WithUserID("user-1").WithSessionID("session-9").Info("session started")
	require.NoError(t, l.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "session started", lines[0]["msg"])
	assert.Equal(t, "recorder", lines[0]["component"])
	assert.Equal(t, "user-1", lines[0]["user_id"])
	assert.Equal(t, "session-9", lines[0]["session_id"])
	assert.Contains(t, lines[0], "timestamp")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, WarnLevel)

	l.Info("hidden")
	l.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillAdapter(newJSONLogger(t, &buf, DebugLevel))

	adapter.With(watermill.LogFields{"topic": "stride-events.SessionProgressEvent"}).
		Error("publish failed", errors.New("boom"), watermill.LogFields{"attempt": 2})
	adapter.Trace("trace line", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "publish failed", lines[0]["msg"])
	assert.Equal(t, "watermill", lines[0]["component"])
	assert.Equal(t, "stride-events.SessionProgressEvent", lines[0]["topic"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.EqualValues(t, 2, lines[0]["attempt"])
	assert.Equal(t, "debug", lines[1]["level"])
}

func TestGlobalLogger(t *testing.T) {
	SetGlobalLogger(nil)
	require.NotNil(t, GetGlobalLogger())

	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, InfoLevel)
	SetGlobalLogger(l)
	t.Cleanup(func() { SetGlobalLogger(nil) })

	GetGlobalLogger().Info("via global")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "via global", lines[0]["msg"])
}
