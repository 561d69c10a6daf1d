package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/swarm-hug/swarm-hug/internal/config"
	"github.com/swarm-hug/swarm-hug/internal/team"
)

// loadAndValidateConfig loads the resolved configuration for this
// invocation, overlays the active project's file paths, and validates
// the result.
func loadAndValidateConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(configPath, flags, stubMode)
	if err != nil {
		return nil, err
	}
	// config.Load only pulls Project from TOML/env; the CLI's resolved
	// active project (flag, or the active-project file) always wins.
	cfg.Project = projectName

	if root, err := repoRoot(); err == nil {
		applyProjectPaths(cfg, flags, root)
		applyScrumMasterEmail(cfg, root)
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%s", strings.Join(msgs, "; "))
	}

	return cfg, nil
}

// applyProjectPaths points cfg's file paths at the active project's
// scaffold under .swarm-hug/<project>/ unless the caller explicitly
// overrode a path with its own flag, in which case the flag wins.
func applyProjectPaths(cfg *config.Config, flags *pflag.FlagSet, repoRoot string) {
	t := team.New(repoRoot, cfg.Project)
	if !flagChanged(flags, "tasks-file") {
		cfg.TasksFile = t.TasksPath()
	}
	if !flagChanged(flags, "chat-file") {
		cfg.ChatFile = t.ChatPath()
	}
	if !flagChanged(flags, "log-dir") {
		cfg.LogDir = t.LoopDir()
	}
	cfg.WorktreesDir = t.WorktreesDir()
}

// applyScrumMasterEmail fills cfg.ScrumMasterEmail from the file
// `swarm-hug set-email` writes, when neither config nor flags supplied
// one already.
func applyScrumMasterEmail(cfg *config.Config, repoRoot string) {
	if cfg.ScrumMasterEmail != "" {
		return
	}
	data, err := os.ReadFile(scrumMasterEmailPath(repoRoot))
	if err != nil {
		return
	}
	cfg.ScrumMasterEmail = strings.TrimSpace(string(data))
}

func scrumMasterEmailPath(repoRoot string) string {
	return filepath.Join(swarmHugDir(repoRoot), "scrum-master-email")
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// teamFor builds the Team scaffold handle for one project under a repo
// root, shared by every command that reads or writes project state.
func teamFor(repoRoot, project string) *team.Team {
	return team.New(repoRoot, project)
}

// assignmentsPath returns the path to the assignments.toml file shared
// across all projects in this repository.
func assignmentsPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".swarm-hug", "assignments.toml")
}

// swarmHugDir returns the repository's top-level .swarm-hug/ directory.
func swarmHugDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".swarm-hug")
}

// activeProjectPath returns the file that records which project is
// currently active, toggled by `swarm-hug project <name>`.
func activeProjectPath(repoRoot string) string {
	return filepath.Join(swarmHugDir(repoRoot), "active-project")
}

// findGitRoot walks up from dir looking for a .git directory.
func findGitRoot(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// repoRoot resolves the git repository root from the current directory.
func repoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root := findGitRoot(wd)
	if root == "" {
		return "", fmt.Errorf("could not find git repository root from %s", wd)
	}
	return root, nil
}
