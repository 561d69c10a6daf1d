// Package assets bundles the default agent prompt templates shipped with
// swarm-hug, which `swarm-hug customize-prompts` lists and installs into
// a project's prompt.md.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

// PromptTemplate is one bundled prompt, as stored in templates/*.yaml.
type PromptTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"`
}

// PromptTemplates returns every bundled prompt template, sorted by name.
func PromptTemplates() ([]PromptTemplate, error) {
	var out []PromptTemplate
	err := fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}
		raw, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		var t PromptTemplate
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PromptTemplateByName looks up one bundled template by name.
func PromptTemplateByName(name string) (PromptTemplate, error) {
	templates, err := PromptTemplates()
	if err != nil {
		return PromptTemplate{}, err
	}
	for _, t := range templates {
		if t.Name == name {
			return t, nil
		}
	}
	return PromptTemplate{}, fmt.Errorf("no bundled prompt template named %q", name)
}
