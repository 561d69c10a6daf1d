package cli

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/obslog"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Persistent flags shared by every subcommand, matching the flag table.
var (
	configPath     string
	projectName    string
	maxAgentsFlag  int
	tasksPerAgent  int
	agentTimeout   int
	tasksFileFlag  string
	chatFileFlag   string
	logDirFlag     string
	engineFlag     string
	stubMode       bool
	maxSprintsFlag int
	targetBranch   string
	noTail         bool
	noTui          bool
	verboseMode    bool
)

var rootCmd = &cobra.Command{
	Use:     "swarm-hug",
	Short:   "Orchestrate a team of coding agents through sprints",
	Version: Version,
	Long: `swarm-hug drives a team of coding agents through repeated sprints
against a shared git repository: it plans tasks, spins up one worktree
per agent, runs each agent's assigned work in parallel, reviews the
sprint's output, and merges the result back onto the target branch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verboseMode {
			obslog.SetLevel(slog.LevelDebug)
		}
		if flagChanged(cmd.Flags(), "project") {
			return nil
		}
		root, err := repoRoot()
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(activeProjectPath(root))
		if err != nil {
			return nil
		}
		if name := strings.TrimSpace(string(data)); name != "" {
			projectName = name
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "swarm.toml", "Path to the swarm-hug config file")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project", "p", "default", "Project name")
	rootCmd.PersistentFlags().IntVar(&maxAgentsFlag, "max-agents", 0, "Maximum number of agents per sprint")
	rootCmd.PersistentFlags().IntVar(&tasksPerAgent, "tasks-per-agent", 0, "Maximum tasks assigned to one agent per sprint")
	rootCmd.PersistentFlags().IntVar(&agentTimeout, "agent-timeout", 0, "Per-task engine timeout, in seconds")
	rootCmd.PersistentFlags().StringVar(&tasksFileFlag, "tasks-file", "", "Path to the tasks checklist")
	rootCmd.PersistentFlags().StringVar(&chatFileFlag, "chat-file", "", "Path to the shared chat log")
	rootCmd.PersistentFlags().StringVar(&logDirFlag, "log-dir", "", "Directory for per-agent logs")
	rootCmd.PersistentFlags().StringVar(&engineFlag, "engine", "", "Engine type, or weighted list (e.g. claude:3,codex:1)")
	rootCmd.PersistentFlags().BoolVar(&stubMode, "stub", false, "Force the stub engine, skipping real agent invocations")
	rootCmd.PersistentFlags().IntVar(&maxSprintsFlag, "max-sprints", 0, "Stop after this many sprints (0 means unbounded)")
	rootCmd.PersistentFlags().StringVar(&targetBranch, "target-branch", "", "Branch the sprint merges back onto")
	rootCmd.PersistentFlags().BoolVar(&noTail, "no-tail", false, "Do not tail agent logs to the terminal")
	rootCmd.PersistentFlags().BoolVar(&noTui, "no-tui", false, "Do not launch the terminal status view")
	rootCmd.PersistentFlags().BoolVar(&verboseMode, "verbose", false, "Log at debug level")
	rootCmd.Flags().BoolP("version", "V", false, "Print the version number")

	rootCmd.SetVersionTemplate(fmt.Sprintf("swarm-hug %s\n", semverOrRaw(Version)))
}

func semverOrRaw(v string) string {
	if parsed, err := semver.NewVersion(v); err == nil {
		return parsed.String()
	}
	return v
}

var unknownCommandPattern = regexp.MustCompile(`^unknown command "([^"]+)" for`)

// Execute runs the root command, returning the error the caller should
// translate into the process exit code.
func Execute() error {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	if m := unknownCommandPattern.FindStringSubmatch(err.Error()); m != nil {
		return &UsageError{Err: fmt.Errorf("unknown command: %s", m[1])}
	}
	return err
}

// UsageError marks an error that should translate into the usage exit
// code rather than the generic failure one.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }
