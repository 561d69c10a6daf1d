// Package worktree creates, lists, merges, and removes the git worktrees
// and branches that back sprint, agent, and target-branch checkouts.
package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/swarm-hug/swarm-hug/internal/agent"
	"github.com/swarm-hug/swarm-hug/internal/fileutil"
	"github.com/swarm-hug/swarm-hug/internal/git"
	"github.com/swarm-hug/swarm-hug/internal/merge"
	"github.com/swarm-hug/swarm-hug/internal/obslog"
	"github.com/swarm-hug/swarm-hug/internal/runctx"
)

// Record describes one worktree this package has created.
type Record struct {
	Path        string
	AgentLetter byte // 0 if not agent-owned (sprint or target worktree)
	AgentName   string
	Branch      string
}

// Manager owns every worktree/branch operation against one repository.
type Manager struct {
	RepoDir string
}

func New(repoDir string) *Manager {
	return &Manager{RepoDir: repoDir}
}

func (m *Manager) repo() *git.Repo { return git.NewRepo(m.RepoDir) }

// CreateFeatureWorktree creates branch off base (if it does not already
// exist) and registers a worktree at dir/<branch>. Idempotent when the
// existing registration already points at the requested branch and path.
func (m *Manager) CreateFeatureWorktree(dir, branch, base string) (string, error) {
	repo := m.repo()
	path := filepath.Join(dir, branch)

	entries, err := repo.ListWorktrees()
	if err != nil {
		return "", fmt.Errorf("listing worktrees: %w", err)
	}
	for _, e := range entries {
		if e.Path == path && e.Branch == branch {
			return path, nil // already exactly what was asked for
		}
	}

	if !repo.BranchExists(branch) {
		if err := repo.CreateBranch(branch, base); err != nil {
			return "", fmt.Errorf("creating branch %s off %s: %w", branch, base, err)
		}
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating worktree parent dir: %w", err)
	}
	if err := repo.CreateWorktree(path, branch); err != nil {
		return "", fmt.Errorf("creating worktree at %s: %w", path, err)
	}
	return path, nil
}

// CreateAgentWorktrees creates one branch+worktree per assigned agent
// letter, cut from baseBranch, named via ctx.BranchForAgent. The agent
// branch must not already exist; a collision fails with a diagnostic
// naming it rather than silently reusing it.
func (m *Manager) CreateAgentWorktrees(dir string, agentLetters []byte, baseBranch string, ctx *runctx.RunContext) ([]Record, error) {
	repo := m.repo()
	var records []Record
	for _, initial := range agentLetters {
		branch := ctx.BranchForAgent(initial)
		if repo.BranchExists(branch) {
			return records, fmt.Errorf("agent branch %q already exists (run-hash collision or stale run)", branch)
		}
		path := filepath.Join(dir, branch)
		if err := repo.CreateBranch(branch, baseBranch); err != nil {
			return records, fmt.Errorf("creating agent branch %s off %s: %w", branch, baseBranch, err)
		}
		if err := fileutil.EnsureDir(dir); err != nil {
			return records, fmt.Errorf("creating agent worktree parent dir: %w", err)
		}
		if err := repo.CreateWorktree(path, branch); err != nil {
			return records, fmt.Errorf("creating agent worktree at %s: %w", path, err)
		}
		records = append(records, Record{
			Path:        path,
			AgentLetter: initial,
			AgentName:   agent.Name(initial),
			Branch:      branch,
		})
	}
	return records, nil
}

// MergeAgentBranch merges an agent's branch into the branch currently
// checked out in the sprint worktree, authored as "Agent <Name>" but
// committed under committer — the orchestrator's configured identity,
// not the agent's.
func (m *Manager) MergeAgentBranch(sprintWorktree string, ctx *runctx.RunContext, initial byte, committer merge.Identity) (merge.Result, error) {
	branch := ctx.BranchForAgent(initial)
	author := merge.Identity{Name: "Agent " + agent.Name(initial), Email: fmt.Sprintf("agent-%c@swarm-hug.local", initial)}
	message := fmt.Sprintf("Merge %s into sprint", branch)
	return merge.Merge(sprintWorktree, branch, author, committer, message)
}

// CleanupAgentWorktree removes the worktree registration and directory
// for an agent, and — if deleteBranch is set — the branch itself, but
// only when it has already been merged into its base, unless forced.
func (m *Manager) CleanupAgentWorktree(dir string, ctx *runctx.RunContext, initial byte, deleteBranch, force, base string) error {
	branch := ctx.BranchForAgent(initial)
	path := filepath.Join(dir, branch)
	if err := m.removeWorktreeDir(path); err != nil {
		return err
	}
	if deleteBranch == "" {
		return nil
	}
	return m.maybeDeleteBranch(branch, base, force == "force")
}

// CleanupFeatureWorktree removes a worktree registration and directory,
// deleting the branch under the same merged-or-forced rule when
// requested.
func (m *Manager) CleanupFeatureWorktree(dir, branch string, deleteBranch, forced bool, base string) error {
	path := filepath.Join(dir, branch)
	if err := m.removeWorktreeDir(path); err != nil {
		return err
	}
	if !deleteBranch {
		return nil
	}
	return m.maybeDeleteBranch(branch, base, forced)
}

func (m *Manager) maybeDeleteBranch(branch, base string, forced bool) error {
	repo := m.repo()
	if !forced && base != "" && !repo.IsBranchMerged(branch, base) {
		obslog.Logger().Info("skipping branch delete: not merged", "component", "worktree", "branch", branch, "base", base)
		return nil
	}
	if err := repo.DeleteBranch(branch, forced); err != nil {
		return fmt.Errorf("deleting branch %s: %w", branch, err)
	}
	return nil
}

// removeWorktreeDir de-registers a worktree and removes its directory.
// Before removal it consults .swarmhugignore (falling back to .gitignore)
// so files the user deliberately left untracked are reported instead of
// silently discarded.
func (m *Manager) removeWorktreeDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Directory already gone; still try to clear a stale registration.
		_ = m.repo().RemoveWorktree(path, true)
		return nil
	}

	if untracked := untrackedIgnoredFiles(path); len(untracked) > 0 {
		obslog.Logger().Warn("worktree cleanup found untracked files matched by ignore rules",
			"component", "worktree", "path", path, "files", untracked)
	}

	if err := m.repo().RemoveWorktree(path, true); err != nil {
		return fmt.Errorf("removing worktree registration for %s: %w", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing worktree directory %s: %w", path, err)
	}
	return nil
}

// untrackedIgnoredFiles scans a worktree directory for files matched by
// .swarmhugignore (or .gitignore as a fallback). Best-effort: any error
// reading the ignore file yields an empty result rather than aborting
// cleanup.
func untrackedIgnoredFiles(dir string) []string {
	path := filepath.Join(dir, ".swarmhugignore")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, ".gitignore")
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	var matched []string
	_ = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return nil
		}
		if gi.MatchesPath(rel) {
			matched = append(matched, rel)
		}
		return nil
	})
	return matched
}

// ListWorktreesUnder returns every worktree git has registered whose path
// falls under dir, by cross-referencing `git worktree list` rather than
// guessing branch names from directory naming conventions. Used to find
// stale sprint and agent worktrees left behind by an interrupted run.
func (m *Manager) ListWorktreesUnder(dir string) ([]Record, error) {
	entries, err := m.repo().ListWorktrees()
	if err != nil {
		return nil, fmt.Errorf("listing worktrees: %w", err)
	}
	var out []Record
	for _, e := range entries {
		rel, err := filepath.Rel(dir, e.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		out = append(out, Record{Path: e.Path, Branch: e.Branch})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// AgentBranch describes one branch found by ListAgentBranches.
type AgentBranch struct {
	Initial byte
	Name    string
	Branch  string
}

// ListAgentBranches lists the branches whose names start with prefix and
// resolves each branch's owning initial from the agent name that follows it,
// falling back to '?' for branches that do not follow the naming scheme
// (e.g. a manually created "scrummaster" branch).
func (m *Manager) ListAgentBranches(prefix string) ([]AgentBranch, error) {
	branches, err := m.repo().BranchesWithPrefix(prefix)
	if err != nil {
		return nil, err
	}
	var out []AgentBranch
	for _, b := range branches {
		initial := initialFromBranchName(b, prefix)
		out = append(out, AgentBranch{Initial: initial, Name: agent.Name(initial), Branch: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Initial < out[j].Initial })
	return out, nil
}

func initialFromBranchName(branch, prefix string) byte {
	rest := strings.TrimPrefix(branch, prefix)
	for l := byte('A'); l <= 'Z'; l++ {
		if strings.HasPrefix(rest, strings.ToLower(agent.Name(l))+"-") {
			return l
		}
	}
	return '?'
}

// SharedWorktreesRoot returns the canonical per-repo directory that hosts
// the single target-branch worktree, shared across every project/run.
func SharedWorktreesRoot(repoDir string) string {
	return fileutil.SwarmHugSubdir(repoDir, "target-worktree")
}

// EnsureSharedWorktreesRoot creates the shared root directory's parent if
// needed and returns its path.
func EnsureSharedWorktreesRoot(repoDir string) (string, error) {
	root := SharedWorktreesRoot(repoDir)
	if err := fileutil.EnsureDir(filepath.Dir(root)); err != nil {
		return "", err
	}
	return root, nil
}

// CreateTargetBranchWorktree implements Table 1: the target-branch
// worktree reconciliation state machine. It returns a path under the
// shared root checked out to targetBranch, handling every pre-state as
// an explicit case rather than a tower of conditionals.
func (m *Manager) CreateTargetBranchWorktree(targetBranch string) (string, error) {
	repo := m.repo()
	sharedRoot, err := EnsureSharedWorktreesRoot(m.RepoDir)
	if err != nil {
		return "", err
	}

	entries, err := repo.ListWorktrees()
	if err != nil {
		return "", fmt.Errorf("listing worktrees: %w", err)
	}

	var atRoot *git.WorktreeEntry
	for i := range entries {
		if entries[i].Path == sharedRoot {
			atRoot = &entries[i]
			break
		}
	}

	if atRoot == nil {
		// Nothing registered at the shared root. If some other worktree
		// already has this branch checked out, that registration lives
		// outside the shared root and reconciliation must fail rather
		// than silently double-checking-out the branch.
		for i := range entries {
			if entries[i].Branch == targetBranch {
				return "", fmt.Errorf("worktree registration %q is outside shared worktrees root %q", entries[i].Path, sharedRoot)
			}
		}
		if err := fileutil.EnsureDir(sharedRoot); err != nil {
			return "", err
		}
		if err := repo.CreateWorktree(sharedRoot, targetBranch); err != nil {
			return "", fmt.Errorf("creating target worktree: %w", err)
		}
		return sharedRoot, nil
	}

	if _, statErr := os.Stat(atRoot.Path); os.IsNotExist(statErr) {
		// Registration present, path missing on disk: de-register and recreate.
		_ = repo.RemoveWorktree(atRoot.Path, true)
		if err := repo.CreateWorktree(sharedRoot, targetBranch); err != nil {
			return "", fmt.Errorf("recreating target worktree: %w", err)
		}
		return sharedRoot, nil
	}

	if atRoot.Branch == targetBranch {
		return sharedRoot, nil // correct branch already, no-op
	}

	// Wrong branch: dirty fails preserving work untouched; clean detaches
	// and recreates on the correct branch.
	wtRepo := git.NewRepo(sharedRoot)
	dirty, err := wtRepo.HasChanges()
	if err != nil {
		return "", fmt.Errorf("checking target worktree state: %w", err)
	}
	if dirty {
		return "", fmt.Errorf("target worktree %q has uncommitted changes on branch %q", sharedRoot, atRoot.Branch)
	}

	if err := repo.RemoveWorktree(sharedRoot, true); err != nil {
		return "", fmt.Errorf("detaching stale target worktree: %w", err)
	}
	if err := repo.CreateWorktree(sharedRoot, targetBranch); err != nil {
		return "", fmt.Errorf("re-creating target worktree on %s: %w", targetBranch, err)
	}
	return sharedRoot, nil
}
