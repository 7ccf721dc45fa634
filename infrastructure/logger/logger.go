// Package logger implements the ambient logging stack: a per-subsystem,
// leveled Logger backed by a Backend that fans out to stdout and a
// rotated file (github.com/jrick/logrotate), matching kaspad's own
// logs/logger pattern (no concrete source for that package survived
// retrieval, so this is built from its documented shape rather than
// ported — see DESIGN.md).
package logger

import "sync/atomic"

// Logger is a subsystem-tagged, leveled log sink. Every consensus-core
// package that logs obtains one via NewLogger(tag) and holds it as
// a package-level var, the same as every teacher package that logs does.
type Logger struct {
	subsystem string
	level     atomic.Uint32
	backend   *Backend
}

// Logger creates a new Logger tagged subsystem against this backend,
// defaulting to LevelInfo. Each call returns a fresh Logger; reuse per
// subsystem name is done by NewLogger's registry.
func (b *Backend) Logger(subsystem string) *Logger {
	l := &Logger{subsystem: subsystem, backend: b}
	l.level.Store(uint32(LevelInfo))
	return l
}

// SetLevel changes the minimum level this subsystem's Logger emits.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(uint32(level))
}

// Level returns the subsystem's currently configured level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

func (l *Logger) log(level Level, format string, args []interface{}) {
	if level < l.Level() {
		return
	}
	l.backend.write(l.subsystem, level, format, args)
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.log(LevelTrace, format, args) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(LevelInfo, format, args) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(LevelWarn, format, args) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args) }

// Criticalf logs at LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) { l.log(LevelCritical, format, args) }
