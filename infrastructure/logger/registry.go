package logger

import (
	"strings"
	"sync"
)

// registry tracks every Logger created against the default backend, so
// a single configuration string (spec.md §6 configuration surface, e.g.
// a CLI --debuglevel flag) can retarget every subsystem's level at
// startup — the same shape as kaspad's own SetLogLevels.
var registry = struct {
	mu      sync.Mutex
	backend *Backend
	loggers map[string]*Logger
}{
	backend: NewBackend(),
	loggers: make(map[string]*Logger),
}

// NewLogger returns the shared Logger for subsystem, creating it against
// the process-wide default Backend on first use.
func NewLogger(subsystem string) *Logger {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if l, ok := registry.loggers[subsystem]; ok {
		return l
	}
	l := registry.backend.Logger(subsystem)
	registry.loggers[subsystem] = l
	return l
}

// SetLogFile points the process-wide default backend at a rotated file
// on disk, in addition to stdout.
func SetLogFile(path string, maxRolls int) error {
	return registry.backend.SetLogFile(path, maxRolls)
}

// SetLogLevels parses a comma-separated "subsystem=level,..." spec (or a
// single bare level, applied to every known subsystem) and applies it.
// An unknown subsystem name in the spec is ignored rather than treated
// as an error, since a level string is routinely shared across binaries
// with different subsystem sets.
func SetLogLevels(spec string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return
	}

	if !strings.Contains(spec, "=") {
		level := ParseLevel(spec)
		for _, l := range registry.loggers {
			l.SetLevel(level)
		}
		return
	}

	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		subsystem, level := strings.TrimSpace(parts[0]), ParseLevel(strings.TrimSpace(parts[1]))
		if l, ok := registry.loggers[subsystem]; ok {
			l.SetLevel(level)
		}
	}
}

// Close releases the default backend's rotated log file, if configured.
func Close() error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return registry.backend.Close()
}
