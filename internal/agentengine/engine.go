// Package agentengine is the polymorphic façade over an external CLI tool
// (Claude, Codex, or the deterministic Stub used in tests). Engines are
// the only component allowed to invoke third-party processes directly;
// every invocation routes through internal/procgroup so the process
// registry stays authoritative.
package agentengine

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/swarm-hug/swarm-hug/internal/obslog"
	"github.com/swarm-hug/swarm-hug/internal/procgroup"
	"github.com/swarm-hug/swarm-hug/internal/procreg"
)

// Type names one of the fixed set of engine variants.
type Type int

const (
	Claude Type = iota
	Codex
	Stub
)

func (t Type) String() string {
	switch t {
	case Claude:
		return "claude"
	case Codex:
		return "codex"
	case Stub:
		return "stub"
	default:
		return "unknown"
	}
}

// ParseType maps a config string to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude":
		return Claude, nil
	case "codex":
		return Codex, nil
	case "stub":
		return Stub, nil
	default:
		return 0, fmt.Errorf("unknown engine type %q", s)
	}
}

// ParseTypeList parses a comma-separated list of engine types, each
// optionally suffixed with ":<weight>" (e.g. "claude:3,codex:1"). A weight
// of N expands to N copies of that type in the returned slice; omitting the
// weight defaults to 1. Duplicates from either expansion or repeated
// entries are legal and deliberately preserved — they bias SelectEngine's
// uniform draw, realizing weighted routing over a flat list.
func ParseTypeList(s string) ([]Type, error) {
	var out []Type
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		weight := 1
		if idx := strings.LastIndex(part, ":"); idx >= 0 {
			name = part[:idx]
			weightStr := part[idx+1:]
			n, err := strconv.Atoi(weightStr)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid weight %q in engine list entry %q", weightStr, part)
			}
			weight = n
		}
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < weight; i++ {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty engine list")
	}
	return out, nil
}

// DefaultBinary returns the variant's standard binary name, used when no
// override path is configured.
func DefaultBinary(t Type) string {
	switch t {
	case Claude:
		return "claude"
	case Codex:
		return "codex"
	case Stub:
		return "swarm-hug-stub-engine"
	default:
		return ""
	}
}

// SelectEngine draws uniformly from types. If stubMode is set, Stub is
// always returned regardless of types. A single-element list always
// returns that element. Call this once per task invocation, not once per
// agent, so a weighted list is resampled on every task.
func SelectEngine(types []Type, stubMode bool) Type {
	if stubMode {
		return Stub
	}
	if len(types) == 1 {
		return types[0]
	}
	return types[rand.Intn(len(types))]
}

// Result is what execute returns to its caller.
type Result struct {
	Success  bool
	ExitCode int
	Error    string
}

// Options configures one execute call.
type Options struct {
	AgentName  string
	Prompt     string
	WorkingDir string
	Turn       int
	LogSink    io.Writer
	BinaryPath string        // override; defaults to DefaultBinary(Type)
	Timeout    time.Duration // 0 means DefaultTimeout
	Shutdown   *procreg.ShutdownFlag
	Registry   *procreg.Registry
}

const DefaultTimeout = 3600 * time.Second

// Execute runs one engine invocation to completion. Whichever of timeout,
// shutdown, or clean exit fires first determines the result; the child is
// always reaped and unregistered before Execute returns, even on an early
// return path, so "no zombies" holds unconditionally.
func Execute(t Type, opts Options) Result {
	if t == Stub {
		return executeStub(opts)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	binary := opts.BinaryPath
	if binary == "" {
		binary = DefaultBinary(t)
	}
	argv := buildArgv(t, opts)

	cmd := exec.Command(binary, argv...)
	cmd.Dir = opts.WorkingDir

	ptmx, pts, err := pty.Open()
	if err != nil {
		return Result{Success: false, ExitCode: 1, Error: fmt.Sprintf("opening pty: %s", err)}
	}
	defer ptmx.Close()

	cmd.Stdin = nil // closed; the prompt travels via argv, not stdin
	cmd.Stdout = pts
	cmd.Stderr = pts

	child, err := procgroup.Spawn(cmd, opts.Registry)
	if err != nil {
		pts.Close()
		return Result{Success: false, ExitCode: 1, Error: fmt.Sprintf("spawning engine: %s", err)}
	}
	pts.Close()

	obslog.Logger().Info("engine invocation started",
		"component", "agentengine", "engine", t.String(), "agent", opts.AgentName, "pid", child.Pid)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if opts.LogSink != nil {
			_, _ = io.Copy(opts.LogSink, ptmx)
		} else {
			_, _ = io.Copy(io.Discard, ptmx)
		}
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- child.Wait() }()

	var shutdownCh <-chan struct{}
	if opts.Shutdown != nil {
		shutdownCh = opts.Shutdown.Done()
	}

	select {
	case waitErr := <-waitCh:
		wg.Wait()
		return resultFromWait(waitErr, child.Pid)

	case <-time.After(timeout):
		child.Kill()
		<-waitCh
		wg.Wait()
		obslog.Logger().Warn("engine invocation timed out",
			"component", "agentengine", "agent", opts.AgentName, "pid", child.Pid, "timeout", timeout)
		return Result{
			Success:  false,
			ExitCode: 124,
			Error:    fmt.Sprintf("timed out after %ds (pid %d)", int(timeout.Seconds()), child.Pid),
		}

	case <-shutdownCh:
		child.Kill()
		<-waitCh
		wg.Wait()
		return Result{Success: false, ExitCode: 130, Error: "Shutdown requested"}
	}
}

func resultFromWait(waitErr error, pid int) Result {
	if waitErr == nil {
		return Result{Success: true, ExitCode: 0}
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		return Result{Success: code == 0, ExitCode: code, Error: fmt.Sprintf("engine exited %d (pid %d)", code, pid)}
	}
	return Result{Success: false, ExitCode: 1, Error: waitErr.Error()}
}

// buildArgv builds the variant-specific argv, including the prompt as a
// trailing positional argument — stdin is closed (see Execute), so the
// prompt has nowhere else to travel.
func buildArgv(t Type, opts Options) []string {
	switch t {
	case Claude:
		return []string{"-p", "--output-format", "text", opts.Prompt}
	case Codex:
		return []string{"exec", "--full-auto", opts.Prompt}
	default:
		return nil
	}
}

// executeStub never forks: it writes a deterministic, recognizable line
// to the log sink and returns success. It must touch only the log sink —
// no git operations — so tests can assert on agent log contents without
// any filesystem side effects beyond the sink itself.
func executeStub(opts Options) Result {
	if opts.LogSink != nil {
		line := fmt.Sprintf("Executing with engine: stub (agent=%s turn=%d)\n", opts.AgentName, opts.Turn)
		_, _ = opts.LogSink.Write([]byte(line))
	}
	return Result{Success: true, ExitCode: 0}
}

// WriteTurnLog writes the per-turn transcript file:
// <log_dir>/turn<n>-agent<X>.md.
func WriteTurnLog(logDir string, turn int, agentLetter byte, content string) error {
	path := filepath.Join(logDir, fmt.Sprintf("turn%d-agent%c.md", turn, agentLetter))
	return os.WriteFile(path, []byte(content), 0644)
}

// AgentLogPath returns <log_dir>/agent-<X>.log.
func AgentLogPath(logDir string, agentLetter byte) string {
	return filepath.Join(logDir, fmt.Sprintf("agent-%c.log", agentLetter))
}
