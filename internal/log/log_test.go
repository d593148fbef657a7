package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf, true)
	t.Cleanup(func() {
		SetOutput(os.Stderr, false)
		SetLevel(LevelInfo)
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestInfoWritesFields(t *testing.T) {
	buf := captureJSON(t)
	SetLevel(LevelInfo)

	Info("event created", "id", "abc", "recurring", true)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "event created", lines[0]["message"])
	assert.Equal(t, "abc", lines[0]["id"])
	assert.Equal(t, true, lines[0]["recurring"])
	assert.Equal(t, "timerdash", lines[0]["service"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureJSON(t)
	SetLevel(LevelError)

	Debug("hidden")
	Info("hidden too")
	Error("boom", pkgerrors.New("disk full"), "path", "/tmp/x")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "disk full", lines[0]["error"])
	assert.Contains(t, lines[0], "stack")
}

func TestOddKeyValuesAreIgnored(t *testing.T) {
	buf := captureJSON(t)
	SetLevel(LevelDebug)

	Debug("partial", "k", 1, 42, "x", "dangling")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 1, lines[0]["k"])
	assert.NotContains(t, lines[0], "dangling")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" debug "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
