package team

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/swarm-hug/swarm-hug/internal/agent"
)

// Assignments maps an agent letter to the project it is currently bound
// to. A letter is bound to at most one project at a time.
type Assignments struct {
	AgentToProject map[byte]string
}

// NewAssignments returns an empty registry.
func NewAssignments() *Assignments {
	return &Assignments{AgentToProject: make(map[byte]string)}
}

// LoadAssignments reads assignments.toml at path. A missing file is not an
// error; it yields an empty registry.
func LoadAssignments(path string) (*Assignments, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewAssignments(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseAssignmentsTOML(data)
}

// parseAssignmentsTOML parses the tiny [agents] single-letter-key section
// this file ever contains. A hand-rolled line scanner is enough: the file
// format is entirely under this program's control and never round-trips
// through an LLM, unlike the assignment-parsing path in internal/planning.
func parseAssignmentsTOML(data []byte) (*Assignments, error) {
	a := NewAssignments()
	inAgents := false
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inAgents = line == "[agents]"
			continue
		}
		if !inAgents {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.Trim(strings.TrimSpace(line[:eq]), `"`)
		val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"`)
		if len(key) != 1 {
			continue
		}
		letter := strings.ToUpper(key)[0]
		if letter < 'A' || letter > 'Z' {
			continue
		}
		a.AgentToProject[letter] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing assignments: %w", err)
	}
	return a, nil
}

// Save writes the registry as assignments.toml at path.
func (a *Assignments) Save(path string) error {
	return os.WriteFile(path, []byte(a.toTOML()), 0644)
}

func (a *Assignments) toTOML() string {
	var sb strings.Builder
	sb.WriteString("# Managed by swarm-hug. Maps agent letters to the project they are\n")
	sb.WriteString("# currently bound to; a letter may belong to only one project.\n")
	sb.WriteString("[agents]\n")

	letters := make([]byte, 0, len(a.AgentToProject))
	for l := range a.AgentToProject {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	for _, l := range letters {
		fmt.Fprintf(&sb, "%s = %q\n", string(l), a.AgentToProject[l])
	}
	return sb.String()
}

// GetProject returns the project a letter is currently bound to, and
// whether it is bound at all.
func (a *Assignments) GetProject(letter byte) (string, bool) {
	p, ok := a.AgentToProject[letter]
	return p, ok
}

// IsAvailable reports whether a letter is unbound, or already bound to
// the given project (in which case re-assigning it is a no-op).
func (a *Assignments) IsAvailable(letter byte, project string) bool {
	p, ok := a.AgentToProject[letter]
	return !ok || p == project
}

// Assign binds a letter to a project. Fails if the letter is already
// bound to a different project; succeeds silently if already bound to
// the same one.
func (a *Assignments) Assign(letter byte, project string) error {
	if existing, ok := a.AgentToProject[letter]; ok && existing != project {
		return fmt.Errorf("agent %c is already assigned to project %q", letter, existing)
	}
	a.AgentToProject[letter] = project
	return nil
}

// Release unbinds a single letter, regardless of which project it was
// bound to.
func (a *Assignments) Release(letter byte) {
	delete(a.AgentToProject, letter)
}

// ReleaseProject unbinds every letter currently bound to a project.
func (a *Assignments) ReleaseProject(project string) {
	for l, p := range a.AgentToProject {
		if p == project {
			delete(a.AgentToProject, l)
		}
	}
}

// ProjectAgents returns the letters currently bound to a project, sorted.
func (a *Assignments) ProjectAgents(project string) []byte {
	var out []byte
	for l, p := range a.AgentToProject {
		if p == project {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NextAvailable returns up to count letters, in alphabet order, that are
// unbound or already bound to project.
func (a *Assignments) NextAvailable(project string, count int) []byte {
	var out []byte
	for _, letter := range agent.Initials(26) {
		if len(out) >= count {
			break
		}
		if a.IsAvailable(letter, project) {
			out = append(out, letter)
		}
	}
	return out
}

// AvailableForProject is an alias of NextAvailable with no cap, returning
// every letter currently usable by project (unassigned or already its own).
func (a *Assignments) AvailableForProject(project string) []byte {
	return a.NextAvailable(project, 26)
}
