package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/swarm-hug/swarm-hug/internal/git"
	"github.com/swarm-hug/swarm-hug/internal/runctx"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s: %s: %v", strings.Join(args, " "), out, err)
	}
}

func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", "-b", "main")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "user.email", "test@example.com")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial commit")
	// Free "main" for worktree checkout by moving the primary checkout
	// to a scratch branch, the same way the orchestrator's own fixtures do.
	runGit(t, dir, "checkout", "-q", "-b", "scratch")
	return dir
}

func TestCreateFeatureWorktreeCreatesBranchAndWorktree(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	wtParent := t.TempDir()

	path, err := m.CreateFeatureWorktree(wtParent, "feature-x", "main")
	if err != nil {
		t.Fatalf("CreateFeatureWorktree: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected worktree dir to exist: %v", err)
	}
	if !m.repo().BranchExists("feature-x") {
		t.Error("expected feature-x branch to exist")
	}
}

func TestCreateFeatureWorktreeIsIdempotent(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	wtParent := t.TempDir()

	path1, err := m.CreateFeatureWorktree(wtParent, "feature-x", "main")
	if err != nil {
		t.Fatalf("first CreateFeatureWorktree: %v", err)
	}
	path2, err := m.CreateFeatureWorktree(wtParent, "feature-x", "main")
	if err != nil {
		t.Fatalf("second CreateFeatureWorktree: %v", err)
	}
	if path1 != path2 {
		t.Errorf("expected idempotent call to return the same path, got %q and %q", path1, path2)
	}
}

func TestCreateAgentWorktreesCreatesOnePerLetter(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	wtParent := t.TempDir()
	ctx := &runctx.RunContext{Project: "alpha", Sprint: 1, Hash: "abc123"}

	records, err := m.CreateAgentWorktrees(wtParent, []byte{'A', 'B'}, "main", ctx)
	if err != nil {
		t.Fatalf("CreateAgentWorktrees: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].AgentLetter != 'A' || records[1].AgentLetter != 'B' {
		t.Errorf("unexpected agent letters: %+v", records)
	}
	for _, r := range records {
		if _, err := os.Stat(r.Path); err != nil {
			t.Errorf("expected worktree dir %q to exist: %v", r.Path, err)
		}
	}
}

func TestCreateAgentWorktreesFailsOnBranchCollision(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	ctx := &runctx.RunContext{Project: "alpha", Sprint: 1, Hash: "abc123"}

	if err := m.repo().CreateBranch(ctx.BranchForAgent('A'), "main"); err != nil {
		t.Fatalf("pre-creating colliding branch: %v", err)
	}

	_, err := m.CreateAgentWorktrees(t.TempDir(), []byte{'A'}, "main", ctx)
	if err == nil {
		t.Fatal("expected an error for a pre-existing agent branch")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected a collision error, got %q", err)
	}
}

func TestCleanupFeatureWorktreeRemovesRegistrationAndDir(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	wtParent := t.TempDir()

	path, err := m.CreateFeatureWorktree(wtParent, "feature-x", "main")
	if err != nil {
		t.Fatalf("CreateFeatureWorktree: %v", err)
	}

	if err := m.CleanupFeatureWorktree(wtParent, "feature-x", false, false, ""); err != nil {
		t.Fatalf("CleanupFeatureWorktree: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected worktree dir to be removed, stat err = %v", err)
	}
	if !m.repo().BranchExists("feature-x") {
		t.Error("expected the branch itself to survive when deleteBranch=false")
	}
}

func TestCleanupFeatureWorktreeSkipsUnmergedBranchDeleteUnlessForced(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	wtParent := t.TempDir()

	path, err := m.CreateFeatureWorktree(wtParent, "feature-x", "main")
	if err != nil {
		t.Fatalf("CreateFeatureWorktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "new.txt"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	featureRepo := git.NewRepo(path)
	if err := featureRepo.StageAll(); err != nil {
		t.Fatal(err)
	}
	if err := featureRepo.Commit("unmerged change"); err != nil {
		t.Fatal(err)
	}

	if err := m.CleanupFeatureWorktree(wtParent, "feature-x", true, false, "main"); err != nil {
		t.Fatalf("CleanupFeatureWorktree: %v", err)
	}
	if !m.repo().BranchExists("feature-x") {
		t.Error("expected unmerged branch to survive an unforced cleanup")
	}

	if err := m.CleanupFeatureWorktree(t.TempDir(), "feature-x", true, true, "main"); err != nil {
		t.Fatalf("forced CleanupFeatureWorktree: %v", err)
	}
	if m.repo().BranchExists("feature-x") {
		t.Error("expected forced cleanup to delete the branch")
	}
}

func TestListWorktreesUnderFiltersByPath(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	insideParent := t.TempDir()
	outsideParent := t.TempDir()

	if _, err := m.CreateFeatureWorktree(insideParent, "inside-branch", "main"); err != nil {
		t.Fatalf("CreateFeatureWorktree inside: %v", err)
	}
	if _, err := m.CreateFeatureWorktree(outsideParent, "outside-branch", "main"); err != nil {
		t.Fatalf("CreateFeatureWorktree outside: %v", err)
	}

	got, err := m.ListWorktreesUnder(insideParent)
	if err != nil {
		t.Fatalf("ListWorktreesUnder: %v", err)
	}
	if len(got) != 1 || got[0].Branch != "inside-branch" {
		t.Errorf("ListWorktreesUnder = %+v, want only inside-branch", got)
	}
}

func TestListAgentBranchesResolvesInitialFromName(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)
	ctx := &runctx.RunContext{Project: "alpha", Sprint: 1, Hash: "xyz999"}

	if err := m.repo().CreateBranch(ctx.BranchForAgent('A'), "main"); err != nil {
		t.Fatal(err)
	}
	if err := m.repo().CreateBranch(ctx.BranchForAgent('B'), "main"); err != nil {
		t.Fatal(err)
	}

	branches, err := m.ListAgentBranches(ctx.AgentBranchPrefix())
	if err != nil {
		t.Fatalf("ListAgentBranches: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected 2 agent branches, got %d: %+v", len(branches), branches)
	}
	if branches[0].Initial != 'A' || branches[1].Initial != 'B' {
		t.Errorf("unexpected initials: %+v", branches)
	}
}

func TestListAgentBranchesFallsBackToUnknownMarker(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)

	if err := m.repo().CreateBranch("alpha-agent-notareal-name", "main"); err != nil {
		t.Fatal(err)
	}

	branches, err := m.ListAgentBranches("alpha-agent-")
	if err != nil {
		t.Fatalf("ListAgentBranches: %v", err)
	}
	if len(branches) != 1 || branches[0].Initial != '?' {
		t.Errorf("expected a single '?' entry, got %+v", branches)
	}
}

func TestCreateTargetBranchWorktreeFreshCreation(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)

	path, err := m.CreateTargetBranchWorktree("main")
	if err != nil {
		t.Fatalf("CreateTargetBranchWorktree: %v", err)
	}
	if path != SharedWorktreesRoot(repoDir) {
		t.Errorf("path = %q, want %q", path, SharedWorktreesRoot(repoDir))
	}
	wtRepo := git.NewRepo(path)
	branch, err := wtRepo.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("checked out branch = %q, want main", branch)
	}
}

func TestCreateTargetBranchWorktreeIsIdempotent(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)

	if _, err := m.CreateTargetBranchWorktree("main"); err != nil {
		t.Fatalf("first CreateTargetBranchWorktree: %v", err)
	}
	path, err := m.CreateTargetBranchWorktree("main")
	if err != nil {
		t.Fatalf("second CreateTargetBranchWorktree: %v", err)
	}
	if path != SharedWorktreesRoot(repoDir) {
		t.Errorf("path = %q, want %q", path, SharedWorktreesRoot(repoDir))
	}
}

func TestCreateTargetBranchWorktreeFailsWhenBranchCheckedOutElsewhere(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)

	// "main" is checked out in the repo's own primary checkout (outside
	// the shared worktrees root) until this test moves off it.
	runGit(t, repoDir, "checkout", "-q", "main")

	_, err := m.CreateTargetBranchWorktree("main")
	if err == nil {
		t.Fatal("expected an error when main is checked out outside the shared root")
	}
	if !strings.Contains(err.Error(), "outside shared worktrees root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateTargetBranchWorktreeSwitchesCleanBranch(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)

	if _, err := m.CreateTargetBranchWorktree("main"); err != nil {
		t.Fatalf("first CreateTargetBranchWorktree: %v", err)
	}
	runGit(t, repoDir, "branch", "release")

	path, err := m.CreateTargetBranchWorktree("release")
	if err != nil {
		t.Fatalf("switching target worktree to release: %v", err)
	}
	wtRepo := git.NewRepo(path)
	branch, err := wtRepo.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "release" {
		t.Errorf("checked out branch = %q, want release", branch)
	}
}

func TestCreateTargetBranchWorktreeRejectsDirtySwitch(t *testing.T) {
	repoDir := newTestRepo(t)
	m := New(repoDir)

	path, err := m.CreateTargetBranchWorktree("main")
	if err != nil {
		t.Fatalf("first CreateTargetBranchWorktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "dirty.txt"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, repoDir, "branch", "release")

	_, err = m.CreateTargetBranchWorktree("release")
	if err == nil {
		t.Fatal("expected an error for a dirty target worktree")
	}
	if !strings.Contains(err.Error(), "uncommitted changes") {
		t.Errorf("unexpected error: %v", err)
	}
}
