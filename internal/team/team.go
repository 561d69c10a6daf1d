package team

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swarm-hug/swarm-hug/internal/fileutil"
)

const (
	defaultTasksMD  = "# Tasks\n\n"
	defaultChatMD   = ""
	defaultSpecsMD  = "# Specs\n\n"
	defaultPromptMD = "You are an autonomous engineering agent working inside a git worktree.\n"
)

// Team is one project's on-disk scaffold: .swarm-hug/<name>/ with its
// tasks, chat log, specs, prompt template, and the directories that host
// per-run state and worktrees.
type Team struct {
	Name string
	Root string // repo root; Team files live under Root/.swarm-hug/Name
}

func New(repoRoot, name string) *Team {
	return &Team{Name: name, Root: repoRoot}
}

func (t *Team) dir() string              { return filepath.Join(t.Root, ".swarm-hug", t.Name) }
func (t *Team) TasksPath() string        { return filepath.Join(t.dir(), "tasks.md") }
func (t *Team) ChatPath() string         { return filepath.Join(t.dir(), "chat.md") }
func (t *Team) SpecsPath() string        { return filepath.Join(t.dir(), "specs.md") }
func (t *Team) PromptPath() string       { return filepath.Join(t.dir(), "prompt.md") }
func (t *Team) LoopDir() string          { return filepath.Join(t.dir(), "loop") }
func (t *Team) WorktreesDir() string     { return filepath.Join(t.dir(), "worktrees") }
func (t *Team) SprintHistoryPath() string { return filepath.Join(t.dir(), "sprint-history.json") }

// Exists reports whether this team's project directory has been
// initialized already.
func (t *Team) Exists() bool {
	_, err := os.Stat(t.dir())
	return err == nil
}

// Init creates the project directory scaffold, seeding default files only
// where they do not already exist so re-running init is non-destructive.
func (t *Team) Init() error {
	for _, dir := range []string{t.dir(), t.LoopDir(), t.WorktreesDir()} {
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	defaults := map[string]string{
		t.TasksPath():  defaultTasksMD,
		t.ChatPath():   defaultChatMD,
		t.SpecsPath():  defaultSpecsMD,
		t.PromptPath(): defaultPromptMD,
	}
	for path, content := range defaults {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
