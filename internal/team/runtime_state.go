package team

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RuntimeStatePaths is the per-sprint filesystem namespace rooted at
// .swarm-hug/<project>/runs/<sanitize(targetBranch)>/ (or, when the target
// branch is empty, the unnamespaced .swarm-hug/<project>/ directory).
type RuntimeStatePaths struct {
	Project      string
	Root         string // repo root the .swarm-hug directory lives under
	namespace    string // sanitized target branch component, may be empty
	isNamespaced bool
}

// ForBranches builds the RuntimeStatePaths for a project and target
// branch. sourceBranch is accepted for symmetry with the originating
// design but does not affect the path.
func ForBranches(repoRoot, project, sourceBranch, targetBranch string) *RuntimeStatePaths {
	_ = sourceBranch
	if targetBranch == "" {
		return &RuntimeStatePaths{Project: project, Root: repoRoot, isNamespaced: false}
	}
	return &RuntimeStatePaths{
		Project:      project,
		Root:         repoRoot,
		namespace:    sanitizeTargetBranchComponent(targetBranch),
		isNamespaced: true,
	}
}

// IsNamespaced reports whether this instance resolved to a per-run
// namespace (a non-empty target branch was supplied).
func (p *RuntimeStatePaths) IsNamespaced() bool {
	return p.isNamespaced
}

// projectRoot returns .swarm-hug/<project>.
func (p *RuntimeStatePaths) projectRoot() string {
	return filepath.Join(p.Root, ".swarm-hug", p.Project)
}

// BranchRoot returns the namespace directory: runs/<sanitized-target> when
// namespaced, otherwise the bare project root.
func (p *RuntimeStatePaths) BranchRoot() string {
	if !p.isNamespaced {
		return p.projectRoot()
	}
	return filepath.Join(p.projectRoot(), "runs", p.namespace)
}

// TasksPath, SprintHistoryPath and TeamStatePath name the files under
// BranchRoot; the Branch*-prefixed forms return the same paths.
func (p *RuntimeStatePaths) TasksPath() string         { return filepath.Join(p.BranchRoot(), "tasks.md") }
func (p *RuntimeStatePaths) SprintHistoryPath() string  { return filepath.Join(p.BranchRoot(), "sprint-history.json") }
func (p *RuntimeStatePaths) TeamStatePath() string      { return filepath.Join(p.BranchRoot(), "team-state.json") }
func (p *RuntimeStatePaths) BranchTasksPath() string    { return p.TasksPath() }
func (p *RuntimeStatePaths) BranchSprintHistoryPath() string { return p.SprintHistoryPath() }
func (p *RuntimeStatePaths) BranchTeamStatePath() string     { return p.TeamStatePath() }

// sanitizeTargetBranchComponent percent-encodes every byte of a branch
// name that is not in [A-Za-z0-9._-], using upper-case hex, so the result
// is safe as a single path component. Falls back to the literal "target"
// if the result would be empty (e.g. the branch name was all separators
// that produced an empty string, which cannot happen for non-empty input
// but is guarded defensively against future callers passing "").
func sanitizeTargetBranchComponent(branch string) string {
	var sb strings.Builder
	for i := 0; i < len(branch); i++ {
		c := branch[i]
		if isUnreservedPathByte(c) {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	out := sb.String()
	if out == "" {
		return "target"
	}
	return out
}

func isUnreservedPathByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-':
		return true
	}
	return false
}

// SanitizeBranch is the exported form used by tests and by anything
// outside this package that needs the same encoding without constructing
// a full RuntimeStatePaths.
func SanitizeBranch(branch string) string {
	return sanitizeTargetBranchComponent(branch)
}
