package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jrick/logrotate/rotator"
)

// Backend fans out formatted log lines to stdout and, once configured, a
// rotating log file — the shape of kaspad's own logging backend, built
// directly over jrick/logrotate rather than the stdlib logger.
type Backend struct {
	mu      sync.Mutex
	writers []io.Writer
	rotator *rotator.Rotator
}

// NewBackend creates a Backend writing to stdout only. Call
// SetLogFile to additionally rotate to disk.
func NewBackend() *Backend {
	return &Backend{writers: []io.Writer{os.Stdout}}
}

// SetLogFile directs the backend to additionally rotate logFile, keeping
// at most maxRolls archived copies.
func (b *Backend) SetLogFile(logFile string, maxRolls int) error {
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotator = r
	b.writers = []io.Writer{os.Stdout, r}
	return nil
}

// Close releases the rotator's file handle, if one was configured.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rotator == nil {
		return nil
	}
	return b.rotator.Close()
}

func (b *Backend) write(subsystem string, level Level, format string, args []interface{}) {
	line := fmt.Sprintf("%s [%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), level, subsystem, fmt.Sprintf(format, args...))

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.writers {
		_, _ = io.WriteString(w, line)
	}
}
