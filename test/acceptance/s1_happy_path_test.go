package acceptance

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stub happy path", func() {
	var repo string

	BeforeEach(func() {
		repo = setupRepo()
	})

	AfterEach(func() {
		runGit(repo, "worktree", "prune")
		os.RemoveAll(repo)
	})

	It("completes both tasks in one sprint and leaves the repo clean", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "alpha")
		Expect(err).NotTo(HaveOccurred())

		tasksPath := filepath.Join(repo, ".swarm-hug", "alpha", "tasks.md")
		writeFile(tasksPath, "- [ ] Task one\n- [ ] Task two\n")

		_, _, err = runSwarmHug(repo, "set-email", "scrummaster@example.com", "-p", "alpha")
		Expect(err).NotTo(HaveOccurred())

		stdout, stderr, err := runSwarmHug(repo, "run", "-p", "alpha",
			"--stub", "--max-sprints", "1", "--tasks-per-agent", "1",
			"--no-tui", "--no-tail")
		Expect(err).NotTo(HaveOccurred(), "stderr: %s", stderr)
		Expect(stdout).To(ContainSubstring("sprints run: 1"))

		log := runGitOutput(repo, "log", "main", "--format=%s")
		Expect(log).To(ContainSubstring("alpha Sprint 1: task assignments"))
		Expect(log).To(ContainSubstring("Task completed: Task one"))
		Expect(log).To(ContainSubstring("Task completed: Task two"))

		branches := runGitOutput(repo, "branch", "--list", "alpha-*")
		Expect(branches).To(BeEmpty(), "no sprint or agent branches should remain")

		agentsDir := filepath.Join(repo, ".swarm-hug", "alpha", "worktrees", "agents")
		entries, _ := os.ReadDir(agentsDir)
		Expect(entries).To(BeEmpty(), "agent worktrees should be cleaned up")

		sprintsDir := filepath.Join(repo, ".swarm-hug", "alpha", "worktrees", "sprints")
		entries, _ = os.ReadDir(sprintsDir)
		Expect(entries).To(BeEmpty(), "sprint worktrees should be cleaned up")

		worktreeList := runGitOutput(repo, "worktree", "list")
		Expect(strings.Count(worktreeList, "\n")+1).To(BeNumerically("<=", 2),
			"only the primary checkout and the reusable target-branch worktree should remain")
	})
})
