// Package runctx derives the per-sprint identifiers the rest of the
// orchestrator names branches, worktrees, and state files with.
package runctx

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/swarm-hug/swarm-hug/internal/agent"
)

// hashCharset is the alphabet run hashes are drawn from: lowercase letters
// and digits, git-branch-safe and readable.
const hashCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// HashLen is the length of a generated run hash.
const HashLen = 6

// GenerateRunHash draws a HashLen-character string from hashCharset, each
// character a random byte reduced modulo the charset size (so the first
// few characters of hashCharset are very slightly more likely). A hash
// that repeats one from another run is not detected here;
// worktree.CreateAgentWorktrees fails when the resulting agent branch
// already exists.
func GenerateRunHash() (string, error) {
	buf := make([]byte, HashLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating run hash: %w", err)
	}
	out := make([]byte, HashLen)
	for i, b := range buf {
		out[i] = hashCharset[int(b)%len(hashCharset)]
	}
	return string(out), nil
}

// RunContext is the immutable triple every naming operation is derived
// from: project name, 1-based sprint index, and the run hash shared by
// every agent branch cut during this run.
type RunContext struct {
	Project string
	Sprint  int
	Hash    string
}

// New builds a RunContext for the given project and sprint index, drawing
// a fresh run hash.
func New(project string, sprint int) (*RunContext, error) {
	if sprint < 1 {
		return nil, fmt.Errorf("sprint index must be >= 1, got %d", sprint)
	}
	hash, err := GenerateRunHash()
	if err != nil {
		return nil, err
	}
	return &RunContext{Project: project, Sprint: sprint, Hash: hash}, nil
}

// SprintBranch returns "<project>-sprint-<n>".
func (ctx *RunContext) SprintBranch() string {
	return fmt.Sprintf("%s-sprint-%d", ctx.Project, ctx.Sprint)
}

// BranchForAgent returns "<project>-agent-<lowercased-agent-name>-<hash>".
// Unknown initials resolve to the literal "unknown" rather than erroring,
// matching the worktree naming contract used when cleaning up branches
// whose originating initial can no longer be determined.
func (ctx *RunContext) BranchForAgent(initial byte) string {
	name := strings.ToLower(agent.Name(initial))
	return fmt.Sprintf("%s-agent-%s-%s", ctx.Project, name, ctx.Hash)
}

// AgentBranchPrefix returns the prefix shared by every agent branch cut in
// this run, usable as a prefix match for grouped cleanup.
func (ctx *RunContext) AgentBranchPrefix() string {
	return fmt.Sprintf("%s-agent-", ctx.Project)
}
