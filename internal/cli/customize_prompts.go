package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/assets"
)

func init() {
	rootCmd.AddCommand(customizePromptsCmd)
}

var customizePromptsCmd = &cobra.Command{
	Use:   "customize-prompts [template]",
	Short: "List or install a bundled prompt template as the active project's prompt.md",
	Long: `With no arguments, lists the bundled prompt templates available to
install. With a template name, overwrites the active project's prompt.md
with that template's prompt text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		templates, err := assets.PromptTemplates()
		if err != nil {
			return fmt.Errorf("loading bundled prompt templates: %w", err)
		}

		if len(args) == 0 {
			for _, t := range templates {
				fmt.Printf("  %-10s %s\n", t.Name, t.Description)
			}
			return nil
		}

		t, err := assets.PromptTemplateByName(args[0])
		if err != nil {
			return err
		}

		root, err := repoRoot()
		if err != nil {
			return err
		}
		team := teamFor(root, projectName)
		if !team.Exists() {
			return fmt.Errorf("project %q is not initialized; run 'swarm-hug project init %s' first", projectName, projectName)
		}
		if err := os.WriteFile(team.PromptPath(), []byte(t.Prompt), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", team.PromptPath(), err)
		}
		fmt.Printf("installed prompt template %q into %s\n", t.Name, team.PromptPath())
		return nil
	},
}
