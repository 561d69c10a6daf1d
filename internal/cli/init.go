package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default swarm.toml and scaffold the active project",
	Long: `Initialize a swarm-hug repository: write a default configuration
file if one is not already present, then create the active project's
.swarm-hug/ scaffold (tasks.md, chat.md, specs.md, prompt.md).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}

		absConfig := configPath
		if !filepath.IsAbs(absConfig) {
			absConfig = filepath.Join(root, configPath)
		}

		if _, err := os.Stat(absConfig); os.IsNotExist(err) {
			if err := os.WriteFile(absConfig, []byte(config.DefaultTOML()), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", absConfig, err)
			}
			fmt.Printf("  config %s\n", absConfig)
		} else {
			fmt.Printf("  skip   %s (already exists)\n", absConfig)
		}

		team := teamFor(root, projectName)
		if team.Exists() {
			fmt.Printf("  skip   .swarm-hug/%s/ (already initialized)\n", projectName)
		} else {
			if err := team.Init(); err != nil {
				return fmt.Errorf("initializing project %q: %w", projectName, err)
			}
			fmt.Printf("  project .swarm-hug/%s/\n", projectName)
		}

		fmt.Println("\nDone.")
		return nil
	},
}
