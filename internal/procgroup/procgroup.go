// Package procgroup launches child processes in their own process group
// and registers them with a procreg.Registry, so the whole group can be
// torn down on shutdown or timeout without hunting down escaped children.
package procgroup

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/swarm-hug/swarm-hug/internal/procreg"
)

// Child owns a spawned process. Callers must call Wait, also after Kill,
// which does not reap; failing to reap it leaks a zombie. Calls to Wait
// after the first are no-ops.
type Child struct {
	Cmd      *exec.Cmd
	Pid      int
	registry *procreg.Registry
	reaped   bool
}

// Spawn starts cmd in a new process group (setpgid(0,0) on POSIX, applied
// before exec via SysProcAttr) and registers its PID. The registry
// parameter may be nil to opt out of registration (used only in tests
// that spawn without a process-wide registry available).
func Spawn(cmd *exec.Cmd, registry *procreg.Registry) (*Child, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pgid = 0

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawning %s: %w", cmd.Path, err)
	}

	pid := cmd.Process.Pid
	if registry != nil {
		registry.Register(pid)
	}
	return &Child{Cmd: cmd, Pid: pid, registry: registry}, nil
}

// Wait blocks for the child to exit and unregisters it, exactly once,
// even if the caller also called Kill first.
func (c *Child) Wait() error {
	if c.reaped {
		return nil
	}
	err := c.Cmd.Wait()
	c.reaped = true
	if c.registry != nil {
		c.registry.Unregister(c.Pid)
	}
	return err
}

// Kill terminates the whole process group: SIGTERM, a brief grace period,
// then SIGKILL, followed by a pkill fallback for children that managed to
// escape the group. It does not itself reap the child; callers must still
// call Wait.
func (c *Child) Kill() {
	KillProcessTree(c.Pid)
}

// KillProcessTree sends SIGTERM to the process group rooted at pid, waits
// briefly, then SIGKILL, then runs `pkill -KILL -P pid` for processes still
// listed as direct children of pid, including ones that moved to a process
// group of their own; processes already re-parented away from pid are not
// reached. This is the
// registry-level kill strategy injected into procreg.Registry.KillAll.
func KillProcessTree(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(100 * time.Millisecond)
	_ = syscall.Kill(-pid, syscall.SIGKILL)

	// Best-effort: kill direct children of pid that left its process
	// group. Ignore errors — pkill may not exist on this platform.
	_ = exec.Command("pkill", "-KILL", "-P", fmt.Sprintf("%d", pid)).Run()
}
