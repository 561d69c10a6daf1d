package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/agent"
	"github.com/swarm-hug/swarm-hug/internal/team"
)

func init() {
	rootCmd.AddCommand(agentsCmd)
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agent letters, names, and their current project assignment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig(cmd.Flags())
		if err != nil {
			return err
		}
		root, err := repoRoot()
		if err != nil {
			return err
		}

		assignments, err := team.LoadAssignments(assignmentsPath(root))
		if err != nil {
			return fmt.Errorf("loading assignments: %w", err)
		}

		for _, letter := range agent.Initials(cfg.MaxAgents) {
			project, bound := assignments.GetProject(letter)
			if bound {
				fmt.Printf("  %s%c %-8s-> %s (%s)%s\n", ansiYellow, letter, agent.Name(letter), project, currentTaskCount(teamFor(root, project).TasksPath(), letter), ansiReset)
			} else {
				fmt.Printf("  %s%c %-8savailable%s\n", ansiDim, letter, agent.Name(letter), ansiReset)
			}
		}
		return nil
	},
}

// currentTaskCount describes how many tasks a given agent letter has
// currently assigned in a project's tasks.md, for display next to its
// project binding. A project with no readable or parseable tasks file
// renders as having no work rather than failing the whole listing.
func currentTaskCount(tasksPath string, letter byte) string {
	tl, err := currentTaskList(tasksPath)
	if err != nil {
		return "0 tasks"
	}
	n := len(tl.TasksForAgent(letter))
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
