// Package planner selects assignable tasks from a tasklist.TaskList and
// distributes them over the agents available for one sprint. The
// assignment algorithm itself lives on tasklist.TaskList.AssignSprint;
// this package is the thin policy layer that decides which agent letters
// are eligible and records the plan for logging/chat purposes.
package planner

import (
	"fmt"

	"github.com/swarm-hug/swarm-hug/internal/tasklist"
)

// Plan is the outcome of one planning pass.
type Plan struct {
	AgentLetters  []byte
	TasksPerAgent int
	Assigned      int
}

// Run distributes assignable tasks in tl over agentLetters (in the given
// order — ties are broken by that order), at most tasksPerAgent tasks per
// agent. It is deterministic given the same inputs: re-running Run
// against an unchanged tl and the same agent list yields the same plan.
func Run(tl *tasklist.TaskList, agentLetters []byte, tasksPerAgent int) (*Plan, error) {
	if len(agentLetters) == 0 {
		return nil, fmt.Errorf("planner: no agents available")
	}
	assigned, err := tl.AssignSprint(agentLetters, tasksPerAgent)
	if err != nil {
		return nil, err
	}
	return &Plan{AgentLetters: agentLetters, TasksPerAgent: tasksPerAgent, Assigned: assigned}, nil
}

// MaxAssignable returns the theoretical ceiling |agents| x tasksPerAgent,
// used by callers to sanity-check a Plan's Assigned field.
func MaxAssignable(agentLetters []byte, tasksPerAgent int) int {
	return len(agentLetters) * tasksPerAgent
}
