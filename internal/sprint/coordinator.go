// Package sprint is the top-level loop driving the sprint state machine:
// prepare the sprint branch, plan, fan out agents, review, merge to
// target, and clean up, once per sprint until no work remains, a sprint
// cap is hit, or shutdown is requested.
package sprint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/swarm-hug/swarm-hug/internal/agent"
	"github.com/swarm-hug/swarm-hug/internal/agentengine"
	"github.com/swarm-hug/swarm-hug/internal/chatlog"
	"github.com/swarm-hug/swarm-hug/internal/config"
	"github.com/swarm-hug/swarm-hug/internal/git"
	"github.com/swarm-hug/swarm-hug/internal/merge"
	"github.com/swarm-hug/swarm-hug/internal/obslog"
	"github.com/swarm-hug/swarm-hug/internal/planner"
	"github.com/swarm-hug/swarm-hug/internal/planning"
	"github.com/swarm-hug/swarm-hug/internal/procreg"
	"github.com/swarm-hug/swarm-hug/internal/runctx"
	"github.com/swarm-hug/swarm-hug/internal/supervisor"
	"github.com/swarm-hug/swarm-hug/internal/tasklist"
	"github.com/swarm-hug/swarm-hug/internal/tui"
	"github.com/swarm-hug/swarm-hug/internal/worktree"
)

// State names one node of the sprint state machine.
type State int

const (
	Prepare State = iota
	Plan
	Execute
	Review
	Merge
	Cleanup
	Done
)

func (s State) String() string {
	return [...]string{"Prepare", "Plan", "Execute", "Review", "Merge", "Cleanup", "Done"}[s]
}

// Coordinator owns one run of the sprint loop against one repository.
type Coordinator struct {
	RepoDir  string
	Cfg      *config.Config
	Shutdown *procreg.ShutdownFlag
	Registry *procreg.Registry
	Chat     *chatlog.Log

	// Sink, when set, receives a copy of every chat line as the run
	// progresses, feeding the terminal status view.
	Sink *tui.Sink

	sawTimeout bool
}

// log appends role/message to the chat log and, if a Sink is attached,
// forwards the same line there.
func (c *Coordinator) log(role, message string) {
	_ = c.Chat.Append(role, message)
	if c.Sink != nil {
		c.Sink.AppendLine(fmt.Sprintf("%s: %s", role, message))
	}
}

// New builds a Coordinator. shutdown/registry may be nil; a fresh
// instance is created for the life of this process if so.
func New(repoDir string, cfg *config.Config, shutdown *procreg.ShutdownFlag, registry *procreg.Registry) *Coordinator {
	if shutdown == nil {
		shutdown = procreg.NewShutdownFlag()
	}
	if registry == nil {
		registry = procreg.New()
	}
	return &Coordinator{
		RepoDir:  repoDir,
		Cfg:      cfg,
		Shutdown: shutdown,
		Registry: registry,
		Chat:     chatlog.New(cfg.ChatFile),
	}
}

// RunResult summarizes the whole multi-sprint run.
type RunResult struct {
	SprintsRun int
	Reason     string // why the loop stopped
	TimedOut   bool   // at least one engine invocation hit its timeout
}

// Run iterates sprints until no tasks remain assignable and none were
// assigned this iteration, sprintsMax is reached, or shutdown is
// requested.
func (c *Coordinator) Run() (RunResult, error) {
	result := RunResult{}
	sprintIdx := 0

	defer func() {
		if c.Sink != nil {
			c.Sink.WorkComplete()
		}
	}()

	for {
		sprintIdx++
		if c.Shutdown.IsRequested() {
			result.Reason = "shutdown requested"
			return result, nil
		}
		if c.Cfg.SprintsMax > 0 && sprintIdx > c.Cfg.SprintsMax {
			result.Reason = "sprintsMax reached"
			return result, nil
		}

		assigned, err := c.runOneSprint(sprintIdx)
		result.SprintsRun = sprintIdx
		result.TimedOut = c.sawTimeout
		if err != nil {
			return result, fmt.Errorf("sprint %d: %w", sprintIdx, err)
		}
		if assigned == 0 {
			result.Reason = "no assignable work"
			return result, nil
		}
	}
}

// runOneSprint drives one pass through Prepare -> Plan -> Execute ->
// Review -> Merge -> Cleanup. It returns the number of tasks the planner
// assigned this sprint, which the caller uses as the "no work remains"
// stop condition.
func (c *Coordinator) runOneSprint(sprintIdx int) (int, error) {
	state := Prepare
	var ctx *runctx.RunContext
	var sprintWorktree string
	var targetWorktree string
	var tl *tasklist.TaskList
	assigned := 0
	keepSprintBranch := false

	for state != Done {
		switch state {
		case Prepare:
			var err error
			ctx, targetWorktree, sprintWorktree, err = c.prepare(sprintIdx)
			if err != nil {
				c.cleanupBestEffort(nil, ctx, targetWorktree, sprintWorktree, true)
				return 0, fmt.Errorf("prepare: %w", err)
			}
			state = Plan

		case Plan:
			var n int
			var err error
			tl, n, err = c.plan(ctx, sprintWorktree)
			if err != nil {
				return 0, fmt.Errorf("plan: %w", err)
			}
			assigned = n
			if n == 0 {
				state = Cleanup
				continue
			}
			state = Execute

		case Execute:
			results, err := c.execute(ctx, sprintWorktree, tl)
			if err != nil {
				return assigned, fmt.Errorf("execute: %w", err)
			}
			for _, r := range results {
				if r.MergeErr != nil {
					obslog.Logger().Warn("agent branch left for inspection after merge conflict",
						"component", "sprint", "agent", string(r.Initial))
				}
				if r.TimedOut {
					c.sawTimeout = true
				}
			}
			state = Review

		case Review:
			completed, failed, err := c.review(ctx, sprintWorktree)
			if err != nil {
				obslog.Logger().Warn("review phase error, continuing", "component", "sprint", "error", err)
			}
			c.writeRuntimeState(ctx, completed, failed)
			state = Merge

		case Merge:
			err := c.mergeToTarget(ctx, targetWorktree, sprintWorktree)
			if err != nil {
				keepSprintBranch = true
				c.log("ScrumMaster", fmt.Sprintf("sprint %d merge conflict: %s", sprintIdx, err))
			}
			state = Cleanup

		case Cleanup:
			c.cleanupBestEffort(tl, ctx, targetWorktree, sprintWorktree, keepSprintBranch)
			state = Done
		}
	}
	return assigned, nil
}

// prepare reconciles the target-branch worktree, creates the sprint
// branch off the target, and materializes a sprint worktree. The sprint
// branch is created before the first file of sprint state is written, so
// the target worktree is never dirtied by sprint artifacts.
func (c *Coordinator) prepare(sprintIdx int) (*runctx.RunContext, string, string, error) {
	mgr := worktree.New(c.RepoDir)

	targetWT, err := mgr.CreateTargetBranchWorktree(c.Cfg.TargetBranch)
	if err != nil {
		return nil, "", "", fmt.Errorf("reconciling target worktree: %w", err)
	}

	ctx, err := runctx.New(c.Cfg.Project, sprintIdx)
	if err != nil {
		return nil, targetWT, "", err
	}

	sprintBranch := ctx.SprintBranch()
	sprintDir := filepath.Join(c.Cfg.WorktreesDir, "sprints")
	sprintWT, err := mgr.CreateFeatureWorktree(sprintDir, sprintBranch, c.Cfg.TargetBranch)
	if err != nil {
		return ctx, targetWT, "", fmt.Errorf("creating sprint worktree: %w", err)
	}

	return ctx, targetWT, sprintWT, nil
}

// plan copies/creates tasks.md in the sprint worktree, unassigns every
// previously-Assigned task, invokes the planning engine, applies its
// assignments, writes tasks.md, and commits on the sprint branch.
func (c *Coordinator) plan(ctx *runctx.RunContext, sprintWorktree string) (*tasklist.TaskList, int, error) {
	sprintTasksPath := filepath.Join(sprintWorktree, "tasks.md")

	raw, err := os.ReadFile(c.Cfg.TasksFile)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", c.Cfg.TasksFile, err)
	}
	if err := os.WriteFile(sprintTasksPath, raw, 0644); err != nil {
		return nil, 0, fmt.Errorf("seeding sprint tasks.md: %w", err)
	}

	tl, err := tasklist.Parse(string(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("parsing tasks: %w", err)
	}
	tl.UnassignAll()

	agentLetters := agent.Initials(c.Cfg.MaxAgents)
	assignedCount := c.planAssignments(tl, agentLetters)
	if assignedCount < 0 {
		var err error
		assignedCount, err = c.deterministicPlan(tl, agentLetters)
		if err != nil {
			return tl, 0, fmt.Errorf("planning: %w", err)
		}
	}

	if err := os.WriteFile(sprintTasksPath, []byte(tl.Serialize()), 0644); err != nil {
		return tl, assignedCount, fmt.Errorf("writing planned tasks.md: %w", err)
	}

	repo := git.NewRepo(sprintWorktree)
	if err := repo.StageAll(); err != nil {
		return tl, assignedCount, fmt.Errorf("staging plan: %w", err)
	}
	msg := fmt.Sprintf("%s Sprint %d: task assignments", c.Cfg.Project, ctx.Sprint)
	if err := repo.Commit(msg); err != nil {
		return tl, assignedCount, fmt.Errorf("committing plan: %w", err)
	}
	c.log("ScrumMaster", fmt.Sprintf("Sprint %d plan: %d task(s) assigned", ctx.Sprint, assignedCount))

	return tl, assignedCount, nil
}

// planAssignments drives the LLM-assisted scrum-master planning round: it
// builds the prompt, invokes an engine (skipped entirely in stub mode),
// parses the response with the tolerant assignment parser, and applies
// whatever it understood. Returns -1 to tell the caller to fall back to
// the deterministic greedy algorithm, which happens in stub mode or when
// the engine produced no parseable assignments.
func (c *Coordinator) planAssignments(tl *tasklist.TaskList, agentLetters []byte) int {
	if c.Cfg.StubMode {
		return -1
	}

	prompt := planning.GenerateScrumMasterPrompt(tl, agentLetters, c.Cfg.TasksPerAgent)
	engineType := agentengine.SelectEngine(c.Cfg.EngineTypeList, c.Cfg.StubMode)

	var out bytes.Buffer
	res := agentengine.Execute(engineType, agentengine.Options{
		AgentName:  "ScrumMaster",
		Prompt:     prompt,
		WorkingDir: c.RepoDir,
		LogSink:    &out,
		Timeout:    time.Duration(c.Cfg.AgentTimeout) * time.Second,
		Shutdown:   c.Shutdown,
		Registry:   c.Registry,
	})
	if !res.Success {
		obslog.Logger().Warn("scrum master planning engine failed, falling back to greedy assignment",
			"component", "sprint", "error", res.Error)
		return -1
	}

	assignments := planning.ParseAssignments(out.String())
	if len(assignments) == 0 {
		return -1
	}
	return planning.ApplyAssignments(tl, assignments).Assigned
}

// deterministicPlan runs the guaranteed-deterministic greedy assignment
// algorithm, used in stub mode and as the fallback when the planning
// engine's response could not be parsed.
func (c *Coordinator) deterministicPlan(tl *tasklist.TaskList, agentLetters []byte) (int, error) {
	plan, err := planner.Run(tl, agentLetters, c.Cfg.TasksPerAgent)
	if err != nil {
		return 0, err
	}
	return plan.Assigned, nil
}

// execute creates agent worktrees off the sprint branch and runs one
// supervisor per agent in parallel, waiting for all before returning.
func (c *Coordinator) execute(ctx *runctx.RunContext, sprintWorktree string, tl *tasklist.TaskList) ([]supervisor.Result, error) {
	mgr := worktree.New(c.RepoDir)
	agentLetters := assignedLetters(tl)
	if len(agentLetters) == 0 {
		return nil, nil
	}

	agentDir := filepath.Join(c.Cfg.WorktreesDir, "agents")
	sprintBranch := ctx.SprintBranch()
	records, err := mgr.CreateAgentWorktrees(agentDir, agentLetters, sprintBranch, ctx)
	if err != nil {
		return nil, fmt.Errorf("creating agent worktrees: %w", err)
	}

	// Seed each agent worktree's tasks.md with the sprint's planned copy.
	sprintTasks, err := os.ReadFile(filepath.Join(sprintWorktree, "tasks.md"))
	if err != nil {
		return nil, fmt.Errorf("reading sprint tasks.md: %w", err)
	}
	for _, rec := range records {
		if err := os.WriteFile(filepath.Join(rec.Path, "tasks.md"), sprintTasks, 0644); err != nil {
			return nil, fmt.Errorf("seeding agent %c tasks.md: %w", rec.AgentLetter, err)
		}
	}

	results := make([]supervisor.Result, len(records))
	var wg sync.WaitGroup
	var mergeMu sync.Mutex
	committer := merge.Identity{Name: "Swarm ScrumMaster", Email: c.Cfg.ScrumMasterEmail}
	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec worktree.Record) {
			defer wg.Done()
			res, err := supervisor.Run(supervisor.Options{
				Initial:       rec.AgentLetter,
				WorktreePath:  rec.Path,
				EngineTypes:   c.Cfg.EngineTypeList,
				StubMode:      c.Cfg.StubMode,
				EngineTimeout: c.Cfg.AgentTimeout,
				LogDir:        c.Cfg.LogDir,
				Chat:          c.Chat,
				Shutdown:      c.Shutdown,
				Registry:      c.Registry,
				Committer:     committer,
				MergeMu:       &mergeMu,
			}, ctx, sprintWorktree)
			if err != nil {
				obslog.Logger().Error("supervisor run failed", "component", "sprint", "agent", string(rec.AgentLetter), "error", err)
			}
			results[i] = res
		}(i, rec)
	}
	wg.Wait()
	return results, nil
}

// review invokes the review engine with the sprint summary and appends
// any follow-up tasks to tasks.md in the sprint worktree, then commits.
func (c *Coordinator) review(ctx *runctx.RunContext, sprintWorktree string) (completed, failed int, _ error) {
	path := filepath.Join(sprintWorktree, "tasks.md")
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	tl, err := tasklist.Parse(string(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	completed = tl.CompletedCount()
	failed = tl.AssignedCount() // still Assigned after execute == failed-or-incomplete

	// A missing or stubbed review engine yields no follow-ups; that is
	// not an error.
	var followUps []string
	if !c.Cfg.StubMode {
		engineType := agentengine.SelectEngine(c.Cfg.EngineTypeList, c.Cfg.StubMode)
		var out bytes.Buffer
		res := agentengine.Execute(engineType, agentengine.Options{
			AgentName:  "ScrumMaster",
			Prompt:     planning.GenerateReviewPrompt(c.Cfg.Project, ctx.Sprint, completed, failed),
			WorkingDir: sprintWorktree,
			LogSink:    &out,
			Timeout:    time.Duration(c.Cfg.AgentTimeout) * time.Second,
			Shutdown:   c.Shutdown,
			Registry:   c.Registry,
		})
		if res.Success {
			followUps = planning.ParseReviewResponse(out.String())
		} else {
			obslog.Logger().Warn("review engine failed, no follow-up tasks generated",
				"component", "sprint", "error", res.Error)
		}
	}

	updated := planning.RunReview(tl, planning.FormatFollowUpTasks(tl, followUps))
	if err := os.WriteFile(path, []byte(updated.Serialize()), 0644); err != nil {
		return completed, failed, fmt.Errorf("writing reviewed tasks.md: %w", err)
	}

	repo := git.NewRepo(sprintWorktree)
	if dirty, _ := repo.HasChanges(); dirty {
		if err := repo.StageAll(); err != nil {
			return completed, failed, err
		}
		msg := fmt.Sprintf("%s Sprint %d: review", c.Cfg.Project, ctx.Sprint)
		if err := repo.Commit(msg); err != nil {
			return completed, failed, err
		}
	}
	c.log("ScrumMaster", fmt.Sprintf("SPRINT STATUS sprint=%d completed=%d failed=%d", ctx.Sprint, completed, failed))
	return completed, failed, nil
}

// mergeToTarget merges the sprint branch into the target branch,
// authored as "Swarm ScrumMaster".
func (c *Coordinator) mergeToTarget(ctx *runctx.RunContext, targetWorktree, sprintWorktree string) error {
	if c.Cfg.ScrumMasterEmail == "" {
		return fmt.Errorf("scrum master identity is not configured; run 'set-email' first")
	}
	identity := merge.Identity{Name: "Swarm ScrumMaster", Email: c.Cfg.ScrumMasterEmail}
	msg := fmt.Sprintf("%s Sprint %d: completed", c.Cfg.Project, ctx.Sprint)
	_, err := merge.Merge(targetWorktree, ctx.SprintBranch(), identity, identity, msg)
	return err
}

// cleanupBestEffort removes agent worktrees/branches and the sprint
// worktree, optionally deleting the sprint branch. Errors are logged,
// never fatal — cleanup never blocks the next sprint or process exit.
func (c *Coordinator) cleanupBestEffort(tl *tasklist.TaskList, ctx *runctx.RunContext, targetWorktree, sprintWorktree string, keepSprintBranch bool) {
	mgr := worktree.New(c.RepoDir)

	if tl != nil && ctx != nil {
		for _, letter := range assignedLetters(tl) {
			agentDir := filepath.Join(c.Cfg.WorktreesDir, "agents")
			if err := mgr.CleanupAgentWorktree(agentDir, ctx, letter, "delete", "", c.Cfg.TargetBranch); err != nil {
				obslog.Logger().Warn("agent worktree cleanup failed", "component", "sprint", "agent", string(letter), "error", err)
			}
		}
	}

	if ctx != nil && sprintWorktree != "" {
		sprintDir := filepath.Join(c.Cfg.WorktreesDir, "sprints")
		forced := false
		if err := mgr.CleanupFeatureWorktree(sprintDir, ctx.SprintBranch(), !keepSprintBranch, forced, c.Cfg.TargetBranch); err != nil {
			obslog.Logger().Warn("sprint worktree cleanup failed", "component", "sprint", "error", err)
		}
	}
}

// assignedLetters returns the distinct agent letters with at least one
// Assigned task, in alphabet order.
func assignedLetters(tl *tasklist.TaskList) []byte {
	seen := make(map[byte]bool)
	var out []byte
	for _, t := range tl.Tasks {
		if t.Status == tasklist.Assigned && !seen[t.AgentLetter] {
			seen[t.AgentLetter] = true
			out = append(out, t.AgentLetter)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
