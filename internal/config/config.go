// Package config loads swarm.toml and layers defaults, the TOML file,
// environment variables, and CLI flags into one Config, in that
// ascending precedence. The layering itself is viper's reason for
// existing (grounded on hugo-lorenzo-mato-quorum-ai's internal/config
// loader, which wires spf13/cobra flags into a spf13/viper instance the
// same way).
package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/swarm-hug/swarm-hug/internal/agentengine"
)

const EnvPrefix = "SWARMHUG"

// Config is the fully-resolved configuration for one invocation.
type Config struct {
	Project       string
	MaxAgents     int
	TasksPerAgent int
	AgentTimeout  int // seconds

	TasksFile     string
	ChatFile      string
	LogDir        string
	WorktreesDir  string

	EngineTypeList []agentengine.Type
	StubMode       bool

	SprintsMax int

	TargetBranch    string
	RelativePaths   bool

	ScrumMasterName  string
	ScrumMasterEmail string
}

// flagKeyBindings maps each viper config key to the long flag name that
// overrides it, per the CLI flag table. --stub and --project are handled
// separately since they don't map onto a single TOML key the same way.
var flagKeyBindings = map[string]string{
	"agents.max_count":        "max-agents",
	"agents.tasks_per_agent":  "tasks-per-agent",
	"agents.timeout":          "agent-timeout",
	"files.tasks":             "tasks-file",
	"files.chat":              "chat-file",
	"files.log_dir":           "log-dir",
	"engine.type":             "engine",
	"sprints.max":             "max-sprints",
	"target_branch":           "target-branch",
	"project":                 "project",
}

// defaults mirrors the documented defaults table.
func defaults(v *viper.Viper) {
	v.SetDefault("agents.max_count", 3)
	v.SetDefault("agents.tasks_per_agent", 2)
	v.SetDefault("agents.timeout", 3600)
	v.SetDefault("files.tasks", ".swarm-hug/default/tasks.md")
	v.SetDefault("files.chat", ".swarm-hug/default/chat.md")
	v.SetDefault("files.log_dir", ".swarm-hug/default/logs")
	v.SetDefault("files.worktrees_dir", ".swarm-hug/default/worktrees")
	v.SetDefault("engine.type", "claude")
	v.SetDefault("engine.stub_mode", false)
	v.SetDefault("sprints.max", 0)
	v.SetDefault("worktree.relative_paths", false)
}

// Load builds a Config from defaults, an optional TOML file, environment
// variables (SWARMHUG_* with "_" standing in for "."), and CLI flags
// already parsed into flags. stub, when true, forces EngineTypeList to
// [Stub] after everything else has merged, matching the documented
// --stub override semantics.
func Load(configPath string, flags *pflag.FlagSet, stub bool) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", configPath, err)
			}
		}
	}

	if flags != nil {
		for key, flagName := range flagKeyBindings {
			if f := flags.Lookup(flagName); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding --%s: %w", flagName, err)
				}
			}
		}
	}

	engineTypes, err := agentengine.ParseTypeList(v.GetString("engine.type"))
	if err != nil {
		return nil, fmt.Errorf("engine.type: %w", err)
	}

	cfg := &Config{
		Project:          v.GetString("project"),
		MaxAgents:        v.GetInt("agents.max_count"),
		TasksPerAgent:    v.GetInt("agents.tasks_per_agent"),
		AgentTimeout:     v.GetInt("agents.timeout"),
		TasksFile:        v.GetString("files.tasks"),
		ChatFile:         v.GetString("files.chat"),
		LogDir:           v.GetString("files.log_dir"),
		WorktreesDir:     v.GetString("files.worktrees_dir"),
		EngineTypeList:   engineTypes,
		StubMode:         v.GetBool("engine.stub_mode") || stub,
		SprintsMax:       v.GetInt("sprints.max"),
		TargetBranch:     v.GetString("target_branch"),
		RelativePaths:    v.GetBool("worktree.relative_paths"),
		ScrumMasterName:  v.GetString("scrum_master.name"),
		ScrumMasterEmail: v.GetString("scrum_master.email"),
	}

	// --stub forces the engine list after everything else has merged.
	if cfg.StubMode {
		cfg.EngineTypeList = []agentengine.Type{agentengine.Stub}
	}

	if cfg.TargetBranch == "" {
		branch, err := DetectTargetBranch(".")
		if err == nil {
			cfg.TargetBranch = branch
		}
	}

	return cfg, nil
}

// Validate checks the resolved configuration for usage errors.
func Validate(cfg *Config) []error {
	var errs []error
	if cfg.MaxAgents < 1 {
		errs = append(errs, fmt.Errorf("agents.max_count must be >= 1"))
	}
	if cfg.TasksPerAgent < 1 {
		errs = append(errs, fmt.Errorf("agents.tasks_per_agent must be >= 1"))
	}
	if cfg.AgentTimeout < 1 {
		errs = append(errs, fmt.Errorf("agents.timeout must be >= 1"))
	}
	if len(cfg.EngineTypeList) == 0 {
		errs = append(errs, fmt.Errorf("engine.type must name at least one engine"))
	}
	return errs
}

// DetectTargetBranch probes repoDir for "main", then "master", then
// falls back to the current branch name (excluding the literal "HEAD" of
// a detached checkout).
func DetectTargetBranch(repoDir string) (string, error) {
	if branchExists(repoDir, "main") {
		return "main", nil
	}
	if branchExists(repoDir, "master") {
		return "master", nil
	}
	current, err := currentBranch(repoDir)
	if err != nil {
		return "", err
	}
	if current == "" || current == "HEAD" {
		return "", fmt.Errorf("could not detect a target branch")
	}
	return current, nil
}

func branchExists(repoDir, branch string) bool {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoDir
	return cmd.Run() == nil
}

func currentBranch(repoDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("detecting current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DefaultTOML renders the canonical example swarm.toml written by
// `swarm-hug init`.
func DefaultTOML() string {
	return `# swarm-hug configuration

[agents]
max_count = 3
tasks_per_agent = 2
timeout = 3600

[files]
tasks = ".swarm-hug/default/tasks.md"
chat = ".swarm-hug/default/chat.md"
log_dir = ".swarm-hug/default/logs"
worktrees_dir = ".swarm-hug/default/worktrees"

[engine]
type = "claude"
stub_mode = false

[sprints]
max = 0

[worktree]
relative_paths = false
`
}
