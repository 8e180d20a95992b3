package runner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result holds the structured outcome of one command execution.
type Result struct {
	ExitCode  int
	Log       string // combined stdout+stderr, in arrival order
	TimedOut  bool
	StartedAt time.Time
	EndedAt   time.Time
}

// Ok reports whether the command exited zero within its time budget.
func (r *Result) Ok() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Duration returns the wall-clock time the command ran for.
func (r *Result) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// CommandRunner abstracts CI command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (*Result, error)
}

// Execer abstracts argv-style subprocess execution with stdin. The patch
// applier, git helpers, and the patch-service client all go through it.
type Execer interface {
	Exec(ctx context.Context, dir string, stdin string, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner and Execer by shelling out.
type ExecRunner struct {
	Timeout time.Duration // per-command limit for Run; 0 means ctx only
}

// Run executes a shell command, capturing stdout and stderr into a single
// buffer so the log preserves interleaving. A deadline hit is reported as a
// timed-out Result, not an error; an external cancellation kills the
// subprocess and propagates the context error.
func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (*Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var buf strings.Builder
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	started := time.Now()
	err := cmd.Run()
	res := &Result{
		Log:       buf.String(),
		StartedAt: started,
		EndedAt:   time.Now(),
	}

	if err != nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			res.TimedOut = true
			res.ExitCode = -1
			return res, nil
		case ctx.Err() == context.Canceled:
			return res, fmt.Errorf("command interrupted: %w", ctx.Err())
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				res.ExitCode = exitErr.ExitCode()
			} else {
				return nil, fmt.Errorf("exec: %w", err)
			}
		}
	}
	return res, nil
}

// Exec runs an argv-style command with optional stdin, returning stdout and
// stderr separately. A non-zero exit is reported via exitCode, not err.
func (e *ExecRunner) Exec(ctx context.Context, dir string, stdin string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec %s: %w", name, err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// TailLines returns the last n lines of text.
func TailLines(text string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
