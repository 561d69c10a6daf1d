package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/agentengine"
	"github.com/swarm-hug/swarm-hug/internal/fileutil"
	"github.com/swarm-hug/swarm-hug/internal/planning"
	"github.com/swarm-hug/swarm-hug/internal/tasklist"
	"github.com/swarm-hug/swarm-hug/internal/team"
)

var projectInitPRD string

func init() {
	projectInitCmd.Flags().StringVar(&projectInitPRD, "with-prd", "", "Path to a product requirements document to convert into tasks.md")
	projectCmd.AddCommand(projectInitCmd)
	rootCmd.AddCommand(projectCmd)
}

var projectCmd = &cobra.Command{
	Use:   "project [name]",
	Short: "Switch the active project, or manage projects with a subcommand",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		root, err := repoRoot()
		if err != nil {
			return err
		}
		name := args[0]
		t := teamFor(root, name)
		if !t.Exists() {
			return fmt.Errorf("project %q is not initialized; run 'swarm-hug project init %s' first", name, name)
		}
		if err := fileutil.EnsureDir(swarmHugDir(root)); err != nil {
			return err
		}
		if err := os.WriteFile(activeProjectPath(root), []byte(name+"\n"), 0644); err != nil {
			return fmt.Errorf("writing active project: %w", err)
		}
		fmt.Printf("active project is now %q\n", name)
		return nil
	},
}

var projectInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Initialize a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}
		name := args[0]
		t := teamFor(root, name)
		if err := t.Init(); err != nil {
			return fmt.Errorf("initializing project %q: %w", name, err)
		}
		fmt.Printf("  project .swarm-hug/%s/\n", name)

		if projectInitPRD != "" {
			if err := convertPRDInto(cmd, t, projectInitPRD); err != nil {
				return err
			}
		}
		return nil
	},
}

// convertPRDInto reads a product-requirements document, asks the
// planning engine to turn it into a checklist, and writes the result as
// the project's tasks.md.
func convertPRDInto(cmd *cobra.Command, t *team.Team, prdPath string) error {
	cfg, err := loadAndValidateConfig(cmd.Flags())
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(prdPath)
	if err != nil {
		return fmt.Errorf("reading PRD %s: %w", prdPath, err)
	}

	var descriptions []string
	if cfg.StubMode {
		descriptions = []string{"Review product requirements document", "Break down requirements into tasks"}
	} else {
		engineType := agentengine.SelectEngine(cfg.EngineTypeList, cfg.StubMode)
		var out bytes.Buffer
		res := agentengine.Execute(engineType, agentengine.Options{
			AgentName: "ScrumMaster",
			Prompt:    planning.GeneratePRDPrompt(string(raw)),
			LogSink:   &out,
			Timeout:   time.Duration(cfg.AgentTimeout) * time.Second,
		})
		if !res.Success {
			return fmt.Errorf("converting PRD: %s", res.Error)
		}
		descriptions = planning.ParsePRDResponse(out.String())
	}

	tl, result := planning.ConvertPRD(descriptions)
	if err := os.WriteFile(t.TasksPath(), []byte(tl.Serialize()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", t.TasksPath(), err)
	}
	fmt.Printf("  tasks  %s (%d task(s) from %s)\n", t.TasksPath(), result.TasksAdded, prdPath)
	return nil
}

// currentTaskList is a small convenience used by commands that just need
// to read a project's tasks.md without the full sprint machinery.
func currentTaskList(path string) (*tasklist.TaskList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return tasklist.Parse(string(raw))
}
