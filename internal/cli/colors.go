package cli

import (
	"fmt"
	"strings"

	"github.com/swarm-hug/swarm-hug/internal/sprint"
	"github.com/swarm-hug/swarm-hug/internal/tasklist"
)

// ANSI escape codes for terminal colors.
const (
	ansiGreen       = "\033[32m"
	ansiCyan        = "\033[36m"
	ansiYellow      = "\033[33m"
	ansiRed         = "\033[31m"
	ansiDim         = "\033[2m"
	ansiBoldMagenta = "\033[1;35m"
	ansiReset       = "\033[0m"
)

// taskStatusDisplay returns the symbol and color for a task's status.
func taskStatusDisplay(status tasklist.Status) (symbol, color string) {
	switch status {
	case tasklist.Completed:
		return "✓", ansiGreen
	case tasklist.Assigned:
		return "⟳", ansiYellow
	case tasklist.Unassigned:
		return "◯", ansiDim
	default:
		return "·", ansiReset
	}
}

// sprintStateLegend renders one line naming every sprint state's symbol,
// shown once at the start of a non-TUI run.
func sprintStateLegend() string {
	states := []sprint.State{sprint.Prepare, sprint.Plan, sprint.Execute, sprint.Review, sprint.Merge, sprint.Cleanup, sprint.Done}
	var sb strings.Builder
	sb.WriteString("stages: ")
	for i, s := range states {
		if i > 0 {
			sb.WriteString("  ")
		}
		symbol, color := sprintStateDisplay(s)
		fmt.Fprintf(&sb, "%s%s %s%s", color, symbol, s, ansiReset)
	}
	return sb.String()
}

// sprintStateDisplay returns the symbol and color for a sprint state,
// used by the live run view while a sprint is in progress.
func sprintStateDisplay(state sprint.State) (symbol, color string) {
	switch state {
	case sprint.Prepare:
		return "◎", ansiCyan
	case sprint.Plan:
		return "▤", ansiCyan
	case sprint.Execute:
		return "⟳", ansiYellow
	case sprint.Review:
		return "◈", ansiBoldMagenta
	case sprint.Merge:
		return "⇄", ansiYellow
	case sprint.Cleanup:
		return "◌", ansiDim
	case sprint.Done:
		return "✓", ansiGreen
	default:
		return "·", ansiReset
	}
}
