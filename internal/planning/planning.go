package planning

import (
	"fmt"
	"strings"

	"github.com/swarm-hug/swarm-hug/internal/tasklist"
)

// GenerateScrumMasterPrompt builds the planning-phase prompt: the current
// task list plus the set of agent letters available this sprint.
func GenerateScrumMasterPrompt(tl *tasklist.TaskList, agentLetters []byte, tasksPerAgent int) string {
	var sb strings.Builder
	sb.WriteString("You are the scrum master for this sprint. Assign each assignable task\n")
	sb.WriteString("below to one of the available agents, at most ")
	fmt.Fprintf(&sb, "%d", tasksPerAgent)
	sb.WriteString(" tasks per agent.\n\n")
	sb.WriteString("Available agents: ")
	for i, l := range agentLetters {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte(l)
	}
	sb.WriteString("\n\nTask list:\n\n")
	sb.WriteString(tl.Serialize())
	sb.WriteString("\nRespond with a JSON array of {\"line\":N,\"agent\":\"X\"} objects, one per task you assign.\n")
	return sb.String()
}

// PlanningResult is the outcome of one Plan-phase pass: the number of
// assignments applied.
type PlanningResult struct {
	Assigned int
}

// ApplyAssignments marks the task at each 1-based source line Assigned to
// the given agent letter, skipping any assignment that no longer
// resolves to a real, assignable line (the LLM's response is adversarial
// input — never trust an index blindly).
func ApplyAssignments(tl *tasklist.TaskList, assignments []Assignment) PlanningResult {
	byLine := make(map[int]int, len(tl.Tasks))
	for i, t := range tl.Tasks {
		byLine[t.LineNumber] = i
	}

	result := PlanningResult{}
	for _, a := range assignments {
		i, ok := byLine[a.Line]
		if !ok || !tl.IsTaskAssignable(i) {
			continue
		}
		tl.Tasks[i].Assign(a.Agent)
		result.Assigned++
	}
	return result
}

// GenerateReviewPrompt builds the review-phase prompt: a summary of what
// happened this sprint, asking for optional follow-up tasks.
func GenerateReviewPrompt(projectName string, sprint int, completed, failed int) string {
	return fmt.Sprintf(
		"Sprint %d for %s is complete: %d tasks completed, %d failed.\n"+
			"Review the work and respond with a JSON array of follow-up tasks as\n"+
			"plain description strings, or an empty array if none are needed.\n",
		sprint, projectName, completed, failed)
}

// ParseReviewResponse parses the review engine's follow-up task list: a
// JSON-ish array of quoted strings, one per line description. Uses the
// same tolerant bracket approach as ParseAssignments, then splits the
// body on every comma and trims surrounding quotes from each piece, so a
// description that itself contains a comma comes back as two entries.
func ParseReviewResponse(raw string) []string {
	open := strings.IndexByte(raw, '[')
	close := strings.LastIndexByte(raw, ']')
	if open < 0 || close < 0 || close <= open {
		return nil
	}
	body := raw[open+1 : close]
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(body, ",") {
		tok = strings.TrimSpace(tok)
		tok = strings.Trim(tok, `"`)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// FormatFollowUpTasks renders follow-up descriptions as fresh Unassigned
// checklist lines, numbered to continue after the list's current max
// task number.
func FormatFollowUpTasks(tl *tasklist.TaskList, descriptions []string) []string {
	next := tl.MaxTaskNumber() + 1
	lines := make([]string, 0, len(descriptions))
	for _, d := range descriptions {
		lines = append(lines, fmt.Sprintf("- [ ] (#%d) %s", next, d))
		next++
	}
	return lines
}

// RunReview returns tl with follow-up checklist lines (already rendered via
// FormatFollowUpTasks) appended, as a newly parsed TaskList. tl itself is
// not modified and no file is written; the caller writes the result to the
// sprint worktree's tasks.md. Absence of follow-ups is not an error: tl is
// then returned as is.
func RunReview(tl *tasklist.TaskList, followUpLines []string) *tasklist.TaskList {
	if len(followUpLines) == 0 {
		return tl
	}
	raw := tl.Serialize() + strings.Join(followUpLines, "\n") + "\n"
	appended, err := tasklist.Parse(raw)
	if err != nil {
		return tl
	}
	return appended
}

// PrdConversionResult is the outcome of converting a PRD document into a
// fresh task list.
type PrdConversionResult struct {
	TasksAdded int
}

// GeneratePRDPrompt builds the prompt that asks the planning engine to
// turn a product-requirements document into a checklist.
func GeneratePRDPrompt(prdContent string) string {
	var sb strings.Builder
	sb.WriteString("Convert the following product requirements document into an\n")
	sb.WriteString("actionable engineering checklist. Respond with a JSON array of task\n")
	sb.WriteString("description strings.\n\n")
	sb.WriteString(prdContent)
	return sb.String()
}

// ParsePRDResponse parses the engine's generated checklist in the same
// shape ParseReviewResponse expects.
func ParsePRDResponse(raw string) []string {
	return ParseReviewResponse(raw)
}

// ConvertPRD turns parsed PRD task descriptions into a brand new
// TaskList, numbering tasks from 1.
func ConvertPRD(descriptions []string) (*tasklist.TaskList, PrdConversionResult) {
	tl := &tasklist.TaskList{Header: []string{"# Tasks", ""}}
	for i, d := range descriptions {
		tl.Tasks = append(tl.Tasks, tasklist.New(fmt.Sprintf("(#%d) %s", i+1, d), i+1))
	}
	return tl, PrdConversionResult{TasksAdded: len(descriptions)}
}
