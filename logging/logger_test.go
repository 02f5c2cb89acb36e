package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		" warn ":  LogLevelWarn,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_Attributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{
		Level:       LogLevelInfo,
		Format:      "json",
		Output:      &buf,
		Component:   "flow",
		CustomAttrs: map[string]any{"service": "turnmesh"},
	})

	l.WithUser("u1").WithContext("request", "r1").Info("flow.run.completed", "kind", "text")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	rec := lines[0]
	assert.Equal(t, "flow.run.completed", rec["msg"])
	assert.Equal(t, "flow", rec["component"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, "r1", rec["request"])
	assert.Equal(t, "turnmesh", rec["service"])
	assert.Equal(t, "text", rec["kind"])
}

func TestStructuredLogger_WithIsCopy(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf})
	_ = base.WithComponent("history").WithContext("k", "v")

	base.Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "component")
	assert.NotContains(t, lines[0], "k")
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Output: &buf})

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestStructuredLogger_CallRecords(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf})

	var rec CallRecorder = l
	rec.LogToolCall("get_weather", 5*time.Millisecond, true, nil)
	rec.LogLLMCall("gemini-2.5-flash", 120, time.Second, false, errors.New("quota"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Tool execution completed", lines[0]["msg"])
	assert.Equal(t, "get_weather", lines[0]["tool_name"])
	assert.Equal(t, "LLM call failed", lines[1]["msg"])
	assert.Equal(t, "quota", lines[1]["error"])
	assert.EqualValues(t, 120, lines[1]["token_count"])
}

func TestSlogAdapter_ImplementsLogger(t *testing.T) {
	var l Logger = NewDefaultSlogLogger()
	assert.NotNil(t, l)

	var noop Logger = NoOpLogger{}
	noop.Info("ignored", "k", "v")
}
