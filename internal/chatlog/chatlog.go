// Package chatlog appends the one-line-per-event chat transcript every
// sprint writes alongside its task list (file formats: chat.md).
package chatlog

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Log appends lines to one chat.md file.
type Log struct {
	Path string
}

func New(path string) *Log {
	return &Log{Path: path}
}

// TimeNow is overridable in tests so chat lines are deterministic.
var TimeNow = time.Now

// Append writes "<YYYY-MM-DD HH:MM:SS> | <agent-or-role> (<id>) | <message>"
// to the chat log, creating the file if needed. The short id (the first
// 8 hex characters of a fresh uuid) is drawn anew for every line, so it
// tells lines apart; it is not recorded anywhere else.
func (l *Log) Append(role, message string) error {
	id := uuid.New().String()[:8]
	line := fmt.Sprintf("%s | %s (%s) | %s\n", TimeNow().Format("2006-01-02 15:04:05"), role, id, message)
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening chat log %s: %w", l.Path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing chat log %s: %w", l.Path, err)
	}
	return nil
}
