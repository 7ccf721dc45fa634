package logger

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBackend(buf *bytes.Buffer) *Backend {
	return &Backend{writers: []io.Writer{buf}}
}

func TestLoggerRespectsConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestBackend(&buf).Logger("test")
	l.SetLevel(LevelWarn)

	l.Debugf("should not appear")
	l.Warnf("should appear: %d", 7)

	output := buf.String()
	require.NotContains(t, output, "should not appear")
	require.Contains(t, output, "should appear: 7")
	require.Contains(t, output, "[WRN]")
	require.Contains(t, output, "test:")
}

func TestLoggerDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newTestBackend(&buf).Logger("test")

	l.Tracef("trace message")
	l.Infof("info message")

	output := buf.String()
	require.NotContains(t, output, "trace message")
	require.Contains(t, output, "info message")
}

func TestSetLogLevelsAppliesToKnownSubsystemOnly(t *testing.T) {
	registry.mu.Lock()
	registry.backend = NewBackend()
	registry.loggers = make(map[string]*Logger)
	registry.mu.Unlock()

	known := NewLogger("known")
	SetLogLevels("known=trace,unknown=trace")

	require.Equal(t, LevelTrace, known.Level())
}

func TestSetLogLevelsBareSpecAppliesToEverySubsystem(t *testing.T) {
	registry.mu.Lock()
	registry.backend = NewBackend()
	registry.loggers = make(map[string]*Logger)
	registry.mu.Unlock()

	a := NewLogger("a")
	b := NewLogger("b")
	SetLogLevels("error")

	require.Equal(t, LevelError, a.Level())
	require.Equal(t, LevelError, b.Level())
}

func TestParseLevelUnknownDefaultsToInfo(t *testing.T) {
	require.Equal(t, LevelInfo, ParseLevel("not-a-level"))
	require.Equal(t, LevelTrace, ParseLevel("TRACE"))
}

func TestNewLoggerReusesSameInstancePerSubsystem(t *testing.T) {
	registry.mu.Lock()
	registry.backend = NewBackend()
	registry.loggers = make(map[string]*Logger)
	registry.mu.Unlock()

	first := NewLogger("dup")
	second := NewLogger("dup")
	require.True(t, first == second, "NewLogger must return the same instance for a repeated subsystem name")
}
