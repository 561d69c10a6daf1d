// Package tasklist parses and serializes the markdown checklist that
// backs a sprint's backlog, and carries the status/blocker/assignment
// operations that run against it.
package tasklist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Status is the task's current disposition.
type Status int

const (
	Unassigned Status = iota
	Assigned
	Completed
)

// Task is one checklist entry.
type Task struct {
	Description string
	Status      Status
	AgentLetter byte // meaningful only when Status != Unassigned
	LineNumber  int  // 1-based source line, for diagnostics
	Prefix      []string
}

// New creates an Unassigned task with no prefix lines.
func New(description string, lineNumber int) *Task {
	return &Task{Description: description, Status: Unassigned, LineNumber: lineNumber}
}

// ToLine renders the task's canonical single-line shape.
func (t *Task) ToLine() string {
	switch t.Status {
	case Unassigned:
		return "- [ ] " + t.Description
	case Assigned:
		return fmt.Sprintf("- [%c] %s", t.AgentLetter, t.Description)
	case Completed:
		return fmt.Sprintf("- [x] %s (%c)", t.Description, t.AgentLetter)
	default:
		return "- [ ] " + t.Description
	}
}

// TaskList is the ordered sequence of tasks plus the verbatim header and
// footer lines that bracket them.
type TaskList struct {
	Header []string
	Tasks  []*Task
	Footer []string
}

var (
	unassignedRe = regexp.MustCompile(`^-\s*\[\s*\]\s*(.*)$`)
	completedRe  = regexp.MustCompile(`^-\s*\[([xX])\]\s*(.*)\(([A-Za-z])\)\s*$`)
	assignedRe   = regexp.MustCompile(`^-\s*\[([A-Za-z])\]\s*(.*)$`)
)

// Parse reads the three checklist line shapes:
//
//	- [ ] <desc>                 -> Unassigned
//	- [<X>] <desc>                -> Assigned(X)
//	- [x] <desc> (<X>)            -> Completed(X)
//
// Any other line is a prefix line attached to the next task, or appended
// to the footer if no task follows.
func Parse(content string) (*TaskList, error) {
	lines := strings.Split(content, "\n")
	// Split preserved the trailing empty string from a final "\n"; drop it
	// so round-tripping through Serialize doesn't double a newline. It is
	// restored by the join in Serialize.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	tl := &TaskList{}
	var pendingPrefix []string

	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimLeft(raw, " \t")

		if m := completedRe.FindStringSubmatch(trimmed); m != nil {
			letter := strings.ToUpper(m[3])[0]
			tl.Tasks = append(tl.Tasks, &Task{
				Description: strings.TrimSpace(m[2]),
				Status:      Completed,
				AgentLetter: letter,
				LineNumber:  lineNo,
				Prefix:      pendingPrefix,
			})
			pendingPrefix = nil
			continue
		}
		if m := unassignedRe.FindStringSubmatch(trimmed); m != nil {
			tl.Tasks = append(tl.Tasks, &Task{
				Description: strings.TrimSpace(m[1]),
				Status:      Unassigned,
				LineNumber:  lineNo,
				Prefix:      pendingPrefix,
			})
			pendingPrefix = nil
			continue
		}
		if m := assignedRe.FindStringSubmatch(trimmed); m != nil {
			letter := strings.ToUpper(m[1])[0]
			tl.Tasks = append(tl.Tasks, &Task{
				Description: strings.TrimSpace(m[2]),
				Status:      Assigned,
				AgentLetter: letter,
				LineNumber:  lineNo,
				Prefix:      pendingPrefix,
			})
			pendingPrefix = nil
			continue
		}

		pendingPrefix = append(pendingPrefix, raw)
	}

	if len(tl.Tasks) == 0 {
		tl.Header = pendingPrefix
	} else {
		tl.Footer = pendingPrefix
	}
	return tl, nil
}

// Serialize reproduces the document: header, then each task via ToLine
// with its prefix lines interleaved verbatim, then the footer. Parsing the
// result again yields a list that serializes to the same text (header
// lines of a list with tasks come back as the first task's prefix lines).
func (tl *TaskList) Serialize() string {
	var sb strings.Builder
	for _, l := range tl.Header {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	for _, t := range tl.Tasks {
		for _, l := range t.Prefix {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString(t.ToLine())
		sb.WriteString("\n")
	}
	for _, l := range tl.Footer {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	return sb.String()
}

var (
	taskNumberRe = regexp.MustCompile(`^\(#(\d+)\)`)
	blockedByRe  = regexp.MustCompile(`\(blocked by ([^)]*)\)`)
)

// TaskNumber parses a leading "(#N)" token from the description (after
// trimming whitespace). Returns ok=false if absent or malformed.
func (t *Task) TaskNumber() (n int, ok bool) {
	desc := strings.TrimSpace(t.Description)
	m := taskNumberRe.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// HasBlockers reports whether the description contains a "(blocked by
// ...)" token at all.
func (t *Task) HasBlockers() bool {
	return blockedByRe.MatchString(t.Description)
}

// BlockingTaskNumbers extracts the comma-separated "#N" tokens from the
// single "(blocked by ...)" substring in the description, if present.
func (t *Task) BlockingTaskNumbers() []int {
	m := blockedByRe.FindStringSubmatch(t.Description)
	if m == nil {
		return nil
	}
	var out []int
	for _, tok := range strings.Split(m[1], ",") {
		tok = strings.TrimSpace(tok)
		tok = strings.TrimPrefix(tok, "#")
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// UnassignedCount, AssignedCount, CompletedCount tally tasks by status.
func (tl *TaskList) UnassignedCount() int { return tl.countStatus(Unassigned) }
func (tl *TaskList) AssignedCount() int   { return tl.countStatus(Assigned) }
func (tl *TaskList) CompletedCount() int  { return tl.countStatus(Completed) }

func (tl *TaskList) countStatus(s Status) int {
	n := 0
	for _, t := range tl.Tasks {
		if t.Status == s {
			n++
		}
	}
	return n
}
