package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/worktree"
)

var cleanupForce bool

func init() {
	cleanupWorktreesCmd.Flags().BoolVar(&cleanupForce, "force", false, "Remove worktree directories even if they have untracked changes")
	rootCmd.AddCommand(cleanupWorktreesCmd)
}

var cleanupWorktreesCmd = &cobra.Command{
	Use:   "cleanup-worktrees",
	Short: "Remove stale sprint and agent worktrees left behind by interrupted runs",
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

		mgr := worktree.New(root)

		sprintDir := filepath.Join(cfg.WorktreesDir, "sprints")
		n, err := cleanupStaleWorktrees(mgr, sprintDir, cfg.TargetBranch)
		if err != nil {
			return fmt.Errorf("cleaning up sprint worktrees: %w", err)
		}
		fmt.Printf("removed %d sprint worktree(s)\n", n)

		agentDir := filepath.Join(cfg.WorktreesDir, "agents")
		n, err = cleanupStaleWorktrees(mgr, agentDir, cfg.TargetBranch)
		if err != nil {
			return fmt.Errorf("cleaning up agent worktrees: %w", err)
		}
		fmt.Printf("removed %d agent worktree(s)\n", n)
		return nil
	},
}

// cleanupStaleWorktrees removes every worktree git has registered under
// dir, deleting its branch unless it has not been merged into base.
func cleanupStaleWorktrees(mgr *worktree.Manager, dir, base string) (int, error) {
	records, err := mgr.ListWorktreesUnder(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range records {
		if rec.Branch == "" {
			fmt.Printf("  skip   %s (detached, not removing)\n", rec.Path)
			continue
		}
		if err := mgr.CleanupFeatureWorktree(dir, rec.Branch, true, cleanupForce, base); err != nil {
			fmt.Printf("  skip   %s (%s)\n", rec.Path, err)
			continue
		}
		fmt.Printf("  remove %s\n", rec.Path)
		removed++
	}
	return removed, nil
}
