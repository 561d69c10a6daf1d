// Package supervisor runs one agent for one sprint: prepares its
// worktree, invokes an engine per assigned task, and merges the agent
// branch into the sprint branch when done.
package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/swarm-hug/swarm-hug/internal/agent"
	"github.com/swarm-hug/swarm-hug/internal/agentengine"
	"github.com/swarm-hug/swarm-hug/internal/chatlog"
	"github.com/swarm-hug/swarm-hug/internal/git"
	"github.com/swarm-hug/swarm-hug/internal/merge"
	"github.com/swarm-hug/swarm-hug/internal/obslog"
	"github.com/swarm-hug/swarm-hug/internal/procreg"
	"github.com/swarm-hug/swarm-hug/internal/runctx"
	"github.com/swarm-hug/swarm-hug/internal/tasklist"
	"github.com/swarm-hug/swarm-hug/internal/worktree"
)

// Options configures one supervisor run.
type Options struct {
	Initial       byte
	WorktreePath  string
	EngineTypes   []agentengine.Type
	StubMode      bool
	EngineTimeout int // seconds; 0 means agentengine.DefaultTimeout
	LogDir        string
	Chat          *chatlog.Log
	Shutdown      *procreg.ShutdownFlag
	Registry      *procreg.Registry

	// Committer is the orchestrator's configured identity, attributed
	// as committer (distinct from the agent author) on the merge of
	// this agent's branch into the sprint branch.
	Committer merge.Identity
	// MergeMu serializes MergeAgentBranch across every agent in this
	// sprint: they share one sprintWorktree, and a concurrent git
	// merge from two agents finishing close together would race the
	// same working directory and index. Required; a nil MergeMu is a
	// caller bug, not a degraded mode.
	MergeMu *sync.Mutex
}

// Result summarizes one agent's sprint contribution.
type Result struct {
	Initial        byte
	TasksCompleted int
	TasksFailed    int
	TimedOut       bool
	MergeOutcome   merge.Outcome
	MergeErr       error
}

// Run executes every task currently Assigned to Options.Initial, in
// document order, against the worktree's own copy of tasks.md, then
// merges the agent branch into the sprint branch.
//
// Engine selection happens per task — not once for the whole agent run —
// so a weighted --engine list is sampled correctly across an agent's
// several tasks.
func Run(opts Options, ctx *runctx.RunContext, sprintWorktree string) (Result, error) {
	result := Result{Initial: opts.Initial}
	name := agent.Name(opts.Initial)
	tasksPath := filepath.Join(opts.WorktreePath, "tasks.md")

	logPath := agentengine.AgentLogPath(opts.LogDir, opts.Initial)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return result, fmt.Errorf("opening agent log %s: %w", logPath, err)
	}
	defer logFile.Close()

	repo := git.NewRepo(opts.WorktreePath)
	turn := 0
	failedLines := make(map[int]bool) // tasks that failed in this run; not retried

	for {
		raw, err := os.ReadFile(tasksPath)
		if err != nil {
			return result, fmt.Errorf("reading %s: %w", tasksPath, err)
		}
		tl, err := tasklist.Parse(string(raw))
		if err != nil {
			return result, fmt.Errorf("parsing %s: %w", tasksPath, err)
		}

		var task *tasklist.Task
		for _, t := range tl.TasksForAgent(opts.Initial) {
			if !failedLines[t.LineNumber] {
				task = t
				break
			}
		}
		if task == nil {
			break
		}
		turn++

		engineType := agentengine.SelectEngine(opts.EngineTypes, opts.StubMode)
		prompt := buildTaskPrompt(task.Description)

		res := agentengine.Execute(engineType, agentengine.Options{
			AgentName:  name,
			Prompt:     prompt,
			WorkingDir: opts.WorktreePath,
			Turn:       turn,
			LogSink:    logFile,
			Timeout:    timeoutFor(opts.EngineTimeout),
			Shutdown:   opts.Shutdown,
			Registry:   opts.Registry,
		})

		_ = agentengine.WriteTurnLog(opts.LogDir, turn, opts.Initial, prompt)

		if !res.Success {
			result.TasksFailed++
			if res.ExitCode == 124 {
				result.TimedOut = true
			}
			obslog.Logger().Warn("task failed", "component", "supervisor", "agent", string(opts.Initial), "error", res.Error)
			if opts.Chat != nil {
				_ = opts.Chat.Append("Agent "+name, fmt.Sprintf("failed task %q: %s", task.Description, res.Error))
			}
			// The task stays Assigned; move on to the agent's next task
			// rather than retrying.
			failedLines[task.LineNumber] = true
			if markTried(tasksPath, task) {
				continue
			}
			break
		}

		task.Complete(opts.Initial)
		if err := os.WriteFile(tasksPath, []byte(tl.Serialize()), 0644); err != nil {
			return result, fmt.Errorf("writing %s: %w", tasksPath, err)
		}
		if err := repo.StageAll(); err != nil {
			return result, fmt.Errorf("staging task completion: %w", err)
		}
		commitMsg := fmt.Sprintf("Task completed: %s", task.Description)
		if err := repo.CommitAs(commitMsg, "Agent "+name, fmt.Sprintf("agent-%c@swarm-hug.local", opts.Initial)); err != nil {
			return result, fmt.Errorf("committing task completion: %w", err)
		}
		result.TasksCompleted++
	}

	mgr := worktree.New(filepath.Dir(sprintWorktree))
	opts.MergeMu.Lock()
	mergeRes, mergeErr := mgr.MergeAgentBranch(sprintWorktree, ctx, opts.Initial, opts.Committer)
	opts.MergeMu.Unlock()
	result.MergeOutcome = mergeRes.Outcome
	result.MergeErr = mergeErr
	if mergeErr != nil && opts.Chat != nil {
		_ = opts.Chat.Append("Agent "+name, fmt.Sprintf("merge conflict: %s", mergeErr))
	}
	return result, nil
}

func timeoutFor(secs int) time.Duration {
	if secs <= 0 {
		return agentengine.DefaultTimeout
	}
	return time.Duration(secs) * time.Second
}

func buildTaskPrompt(description string) string {
	return fmt.Sprintf("Complete the following task in this worktree, committing no changes yourself:\n\n%s\n", description)
}

// markTried is a placeholder hook for recording a failed attempt against
// a task in some future retry-budget scheme; today it always lets the
// supervisor move on to the next task after a single failure.
func markTried(tasksPath string, task *tasklist.Task) bool {
	return true
}
