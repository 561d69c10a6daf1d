package acceptance

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("basic command surface", func() {
	var repo string

	BeforeEach(func() {
		repo = setupRepo()
	})

	AfterEach(func() {
		runGit(repo, "worktree", "prune")
		os.RemoveAll(repo)
	})

	It("exits 2 with the usage error text for an unknown command", func() {
		stdout, stderr, err := runSwarmHug(repo, "frobnicate")
		Expect(exitCode(err)).To(Equal(2))
		Expect(stdout).To(BeEmpty())
		Expect(stderr).To(ContainSubstring("unknown command: frobnicate"))
	})

	It("lists initialized projects with a marker on the active one", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())
		_, _, err = runSwarmHug(repo, "project", "init", "epsilon")
		Expect(err).NotTo(HaveOccurred())

		stdout, _, err := runSwarmHug(repo, "projects", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("* delta"))
		Expect(stdout).To(ContainSubstring("  epsilon"))
	})

	It("switches the active project and persists it across invocations", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())
		_, _, err = runSwarmHug(repo, "project", "init", "epsilon")
		Expect(err).NotTo(HaveOccurred())

		_, _, err = runSwarmHug(repo, "project", "epsilon")
		Expect(err).NotTo(HaveOccurred())

		active := readFile(filepath.Join(repo, ".swarm-hug", "active-project"))
		Expect(active).To(ContainSubstring("epsilon"))

		stdout, _, err := runSwarmHug(repo, "projects")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("* epsilon"))
	})

	It("lists available agent letters with no project bound", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())

		stdout, stderr, err := runSwarmHug(repo, "agents", "-p", "delta")
		Expect(err).NotTo(HaveOccurred(), "stderr: %s", stderr)
		Expect(stdout).To(ContainSubstring("available"))
	})

	It("sets the scrum master email, rejecting a value without an @", func() {
		_, stderr, err := runSwarmHug(repo, "set-email", "not-an-email")
		Expect(exitCode(err)).To(Equal(1))
		Expect(stderr).To(ContainSubstring("does not look like an email address"))

		_, _, err = runSwarmHug(repo, "set-email", "scrummaster@example.com")
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists and installs bundled prompt templates", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())

		stdout, _, err := runSwarmHug(repo, "customize-prompts")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("default"))
		Expect(stdout).To(ContainSubstring("reviewer"))
		Expect(stdout).To(ContainSubstring("minimal"))

		_, _, err = runSwarmHug(repo, "customize-prompts", "reviewer", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())

		prompt := readFile(filepath.Join(repo, ".swarm-hug", "delta", "prompt.md"))
		Expect(prompt).NotTo(BeEmpty())
	})

	It("reports nothing to clean up in a freshly initialized project", func() {
		_, _, err := runSwarmHug(repo, "init", "-p", "delta")
		Expect(err).NotTo(HaveOccurred())

		stdout, stderr, err := runSwarmHug(repo, "cleanup-worktrees", "-p", "delta")
		Expect(err).NotTo(HaveOccurred(), "stderr: %s", stderr)
		Expect(stdout).To(ContainSubstring("removed 0 sprint worktree(s)"))
		Expect(stdout).To(ContainSubstring("removed 0 agent worktree(s)"))
	})
})
