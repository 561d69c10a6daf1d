// Package obslog holds the process-wide structured logger. User-facing
// command output still goes through fmt.Print*, the same split
// hugo-lorenzo-mato-quorum-ai and vanducng-goclaw make between terminal
// output and operational logging; this logger is for the latter —
// engine lifecycle, supervisor/coordinator state transitions, worktree
// reconciliation decisions.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	log    *slog.Logger
	output io.Writer = os.Stderr
	level  slog.Level = slog.LevelInfo
)

// Logger returns the process-wide logger, initializing a text handler to
// stderr at Info level on first use.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	}
	return log
}

// SetLevel reconfigures the logger's minimum level, used by --verbose,
// preserving whatever output destination SetOutput last configured.
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	log = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
}

// SetOutput redirects the logger, used by tests that want to capture
// output instead of writing to stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
}
