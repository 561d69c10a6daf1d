package acceptance

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stub mode overrides the configured engine list", func() {
	var repo string

	BeforeEach(func() {
		repo = setupRepo()
	})

	AfterEach(func() {
		runGit(repo, "worktree", "prune")
		os.RemoveAll(repo)
	})

	It("always runs the stub engine even when --engine names real engines", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "gamma")
		Expect(err).NotTo(HaveOccurred())

		tasksPath := filepath.Join(repo, ".swarm-hug", "gamma", "tasks.md")
		writeFile(tasksPath, "- [ ] Only task\n")

		_, _, err = runSwarmHug(repo, "set-email", "scrummaster@example.com", "-p", "gamma")
		Expect(err).NotTo(HaveOccurred())

		stdout, stderr, err := runSwarmHug(repo, "run", "-p", "gamma",
			"--stub", "--engine", "claude:1,codex:1", "--max-sprints", "1", "--tasks-per-agent", "1",
			"--no-tui", "--no-tail")
		Expect(err).NotTo(HaveOccurred(), "stderr: %s", stderr)
		Expect(stdout).To(ContainSubstring("sprints run: 1"))

		logPath := filepath.Join(repo, ".swarm-hug", "gamma", "loop", "agent-A.log")
		Expect(readFile(logPath)).To(ContainSubstring("Executing with engine: stub"))
	})
})
