package acceptance

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/gomega"
)

// runGit runs a git command in dir and fails the test on a nonzero exit.
func runGit(dir string, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "git %s: %s", strings.Join(args, " "), out)
}

// runGitOutput runs a git command in dir and returns its trimmed stdout.
func runGitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	Expect(err).NotTo(HaveOccurred())
	return strings.TrimSpace(string(out))
}

func writeFile(path, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
}

// setupRepo creates a fresh git repository with one commit on "main",
// then checks out a "scratch" branch so that "main" is free for
// swarm-hug's own target-branch worktree to claim — a worktree cannot
// have the same branch checked out in two places at once, including the
// repository's own primary checkout.
func setupRepo() string {
	dir, err := os.MkdirTemp("", "swarm-hug-repo-")
	Expect(err).NotTo(HaveOccurred())

	runGit(dir, "init", "-q", "-b", "main")
	runGit(dir, "config", "user.name", "Test User")
	runGit(dir, "config", "user.email", "test@example.com")

	writeFile(filepath.Join(dir, "README.md"), "# fixture repo\n")
	runGit(dir, "add", ".")
	runGit(dir, "commit", "-q", "-m", "initial commit")

	runGit(dir, "checkout", "-q", "-b", "scratch")

	return dir
}

func runSwarmHug(dir string, args ...string) (string, string, error) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ProcessState.ExitCode()
	}
	return -1
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}
