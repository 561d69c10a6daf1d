// Package merge implements the fast-forward-or-three-way merge driver
// shared by the agent-branch-into-sprint-branch and
// sprint-branch-into-target-branch merges.
package merge

import (
	"fmt"

	"github.com/swarm-hug/swarm-hug/internal/git"
	"github.com/swarm-hug/swarm-hug/internal/obslog"
)

// Outcome is the result of one merge attempt.
type Outcome int

const (
	Success Outcome = iota
	NoChange
	Conflict
)

// Identity is an author or committer attribution.
type Identity struct {
	Name  string
	Email string
}

// Result carries the outcome and, on Conflict, the offending files.
type Result struct {
	Outcome Outcome
	Files   []string // populated only on Conflict
}

// Error wraps a Conflict result so callers that want a plain error can
// get one; the Result is still available via errors.As.
type Error struct {
	Files []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("merge conflicts in: %v", e.Files)
}

// Merge merges srcBranch into the branch currently checked out in
// dstWorktree.
//
//  1. Fails if dstWorktree has uncommitted changes.
//  2. Attempts a fast-forward; falls back to a three-way merge with the
//     given author and committer on failure. author and committer may
//     differ — an agent-branch merge keeps the agent as author but the
//     orchestrator's configured identity as committer.
//  3. On conflict: aborts the merge (restoring the pre-merge HEAD and
//     working tree), enumerates the conflicted files, and returns a
//     Conflict Result plus a non-nil *Error.
//  4. On a clean merge: creates the merge commit (or records the
//     fast-forward) and returns a Success Result.
//  5. If the merge introduces no change (src already an ancestor of the
//     destination, or fast-forward produced a no-op), returns NoChange.
func Merge(dstWorktree, srcBranch string, author, committer Identity, message string) (Result, error) {
	repo := git.NewRepo(dstWorktree)

	dirty, err := repo.HasChanges()
	if err != nil {
		return Result{}, fmt.Errorf("checking worktree state: %w", err)
	}
	if dirty {
		return Result{}, fmt.Errorf("destination worktree has uncommitted changes")
	}

	before, err := repo.HeadCommit("HEAD")
	if err != nil {
		return Result{}, fmt.Errorf("resolving HEAD: %w", err)
	}

	if ff, err := repo.MergeFastForwardOnly(srcBranch); err != nil {
		return Result{}, fmt.Errorf("fast-forward merge: %w", err)
	} else if ff {
		after, _ := repo.HeadCommit("HEAD")
		if after == before {
			return Result{Outcome: NoChange}, nil
		}
		obslog.Logger().Info("merge fast-forwarded", "component", "merge", "branch", srcBranch)
		return Result{Outcome: Success}, nil
	}

	if err := repo.MergeNoFastForward(srcBranch, message, author.Name, author.Email, committer.Name, committer.Email); err != nil {
		files, _ := repo.ConflictedFiles()
		if abortErr := repo.AbortMerge(); abortErr != nil {
			return Result{}, fmt.Errorf("merge conflict (abort also failed: %s): %w", abortErr, err)
		}
		obslog.Logger().Warn("merge conflict, aborted", "component", "merge", "branch", srcBranch, "files", files)
		return Result{Outcome: Conflict, Files: files}, &Error{Files: files}
	}

	after, _ := repo.HeadCommit("HEAD")
	if after == before {
		return Result{Outcome: NoChange}, nil
	}
	return Result{Outcome: Success}, nil
}
