package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/tasklist"
)

func init() {
	rootCmd.AddCommand(projectsCmd)
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List initialized projects in this repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}

		names, err := listProjects(root)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no projects initialized; run 'swarm-hug init' first")
			return nil
		}
		for _, name := range names {
			marker := "  "
			if name == projectName {
				marker = "* "
			}
			fmt.Printf("%s%s%s\n", marker, name, taskSummary(teamFor(root, name).TasksPath()))
		}
		return nil
	},
}

// taskSummary renders a compact "<done> <in-progress> <open>" status
// breakdown for a project's tasks.md, using the same symbols the run
// view uses for task status. A project with no tasks file yet, or one
// that fails to parse, renders nothing rather than erroring the listing.
func taskSummary(tasksPath string) string {
	raw, err := os.ReadFile(tasksPath)
	if err != nil {
		return ""
	}
	tl, err := tasklist.Parse(string(raw))
	if err != nil {
		return ""
	}
	doneSym, doneColor := taskStatusDisplay(tasklist.Completed)
	goingSym, goingColor := taskStatusDisplay(tasklist.Assigned)
	openSym, openColor := taskStatusDisplay(tasklist.Unassigned)
	return fmt.Sprintf("  %s%s %d%s %s%s %d%s %s%s %d%s",
		doneColor, doneSym, tl.CompletedCount(), ansiReset,
		goingColor, goingSym, tl.AssignedCount(), ansiReset,
		openColor, openSym, tl.UnassignedCount(), ansiReset)
}

// listProjects returns every subdirectory of .swarm-hug/ that looks like
// an initialized project, sorted by name.
func listProjects(repoRoot string) ([]string, error) {
	dir := swarmHugDir(repoRoot)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		// A project scaffold carries the loop/ directory team.Init creates;
		// other directories here (such as the shared target worktree) do not.
		if info, err := os.Stat(teamFor(repoRoot, e.Name()).LoopDir()); err == nil && info.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
