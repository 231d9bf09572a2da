package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	Trace("accepted token", "id", 7)

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "source=logutil_test.go:")
	assert.Contains(t, out, `msg="accepted token"`)
	assert.Contains(t, out, "id=7")
}

func TestTraceDisabledAboveLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, slog.LevelDebug))
	Trace("hidden")
	assert.Empty(t, buf.String())
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Level(false, 0))
	assert.Equal(t, slog.LevelDebug, Level(true, 0))
	assert.Equal(t, slog.LevelDebug, Level(false, 1))
	assert.Equal(t, LevelTrace, Level(false, 2))
}

func TestScope(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	s := NewScope("matcher", 3)
	s.Trace("token accepted", "id", 7)
	s.Debug("token mask computed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=TRACE")
	assert.Contains(t, lines[0], "source=logutil_test.go:")
	assert.Contains(t, lines[0], "matcher=3 id=7")
	assert.Contains(t, lines[1], "level=DEBUG")
	assert.Contains(t, lines[1], "source=logutil_test.go:")
	assert.Contains(t, lines[1], "matcher=3")
}

func TestScopesDontShareAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	s := NewScope("matcher", 1)
	s.Trace("first", "id", 1)
	s.Trace("second")
	assert.NotContains(t, strings.Split(strings.TrimSpace(buf.String()), "\n")[1], "id=1")
}
