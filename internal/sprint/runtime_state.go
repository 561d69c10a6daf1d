package sprint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/swarm-hug/swarm-hug/internal/fileutil"
	"github.com/swarm-hug/swarm-hug/internal/obslog"
	"github.com/swarm-hug/swarm-hug/internal/runctx"
	"github.com/swarm-hug/swarm-hug/internal/team"
)

// sprintHistoryEntry is one record appended to sprint-history.json per
// completed sprint. The format is opaque to everything but this package
// and whatever operator tooling chooses to read it.
type sprintHistoryEntry struct {
	Sprint    int    `json:"sprint"`
	RunHash   string `json:"run_hash"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// teamStateSnapshot is the full contents of team-state.json: the latest
// known position of this project's run against its target branch.
type teamStateSnapshot struct {
	Project      string `json:"project"`
	TargetBranch string `json:"target_branch"`
	LastSprint   int    `json:"last_sprint"`
}

// writeRuntimeState records sprint-history.json and team-state.json for
// the sprint that just finished its review, under the project's runtime
// state namespace. Never inside the sprint or target worktree: a git
// status on either must stay clean regardless of how this write fares.
func (c *Coordinator) writeRuntimeState(ctx *runctx.RunContext, completed, failed int) {
	paths := team.ForBranches(c.RepoDir, c.Cfg.Project, "", c.Cfg.TargetBranch)
	if err := fileutil.EnsureDir(paths.BranchRoot()); err != nil {
		c.logRuntimeStateErr("creating runtime state directory", err)
		return
	}
	entry := sprintHistoryEntry{Sprint: ctx.Sprint, RunHash: ctx.Hash, Completed: completed, Failed: failed}
	if err := appendSprintHistory(paths.SprintHistoryPath(), entry); err != nil {
		c.logRuntimeStateErr("appending sprint history", err)
	}
	snapshot := teamStateSnapshot{Project: c.Cfg.Project, TargetBranch: c.Cfg.TargetBranch, LastSprint: ctx.Sprint}
	if err := writeTeamState(paths.TeamStatePath(), snapshot); err != nil {
		c.logRuntimeStateErr("writing team state", err)
	}
}

func (c *Coordinator) logRuntimeStateErr(what string, err error) {
	obslog.Logger().Warn(what, "component", "sprint", "error", err)
}

func appendSprintHistory(path string, entry sprintHistoryEntry) error {
	var history []sprintHistoryEntry
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &history); err != nil {
			return fmt.Errorf("parsing existing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	history = append(history, entry)
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeTeamState(path string, snapshot teamStateSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
