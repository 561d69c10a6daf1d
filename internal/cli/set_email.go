package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/fileutil"
)

func init() {
	rootCmd.AddCommand(setEmailCmd)
}

var setEmailCmd = &cobra.Command{
	Use:   "set-email <email>",
	Short: "Set the scrum-master committer email used to author sprint merges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		if !strings.Contains(email, "@") {
			return fmt.Errorf("%q does not look like an email address", email)
		}

		root, err := repoRoot()
		if err != nil {
			return err
		}
		if err := fileutil.EnsureDir(swarmHugDir(root)); err != nil {
			return err
		}

		path := scrumMasterEmailPath(root)
		if err := os.WriteFile(path, []byte(email+"\n"), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("scrum master email set to %s\n", email)
		return nil
	},
}
