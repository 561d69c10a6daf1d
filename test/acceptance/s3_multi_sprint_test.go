package acceptance

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("multi-sprint reassignment", func() {
	var repo string

	BeforeEach(func() {
		repo = setupRepo()
	})

	AfterEach(func() {
		runGit(repo, "worktree", "prune")
		os.RemoveAll(repo)
	})

	It("spreads more tasks than one sprint's capacity across consecutive sprints", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "beta")
		Expect(err).NotTo(HaveOccurred())

		tasksPath := filepath.Join(repo, ".swarm-hug", "beta", "tasks.md")
		writeFile(tasksPath, "- [ ] Task one\n- [ ] Task two\n- [ ] Task three\n")

		_, _, err = runSwarmHug(repo, "set-email", "scrummaster@example.com", "-p", "beta")
		Expect(err).NotTo(HaveOccurred())

		stdout, stderr, err := runSwarmHug(repo, "run", "-p", "beta",
			"--stub", "--max-sprints", "5", "--max-agents", "1", "--tasks-per-agent", "1",
			"--no-tui", "--no-tail")
		Expect(err).NotTo(HaveOccurred(), "stderr: %s", stderr)
		Expect(stdout).To(ContainSubstring("sprints run: 4 (no assignable work)"))

		log := runGitOutput(repo, "log", "main", "--format=%s")
		Expect(log).To(ContainSubstring("beta Sprint 1: task assignments"))
		Expect(log).To(ContainSubstring("beta Sprint 2: task assignments"))
		Expect(log).To(ContainSubstring("beta Sprint 3: task assignments"))
		Expect(log).To(ContainSubstring("Task completed: Task one"))
		Expect(log).To(ContainSubstring("Task completed: Task two"))
		Expect(log).To(ContainSubstring("Task completed: Task three"))

		branches := runGitOutput(repo, "branch", "--list", "beta-*")
		Expect(branches).To(BeEmpty())
	})
})
