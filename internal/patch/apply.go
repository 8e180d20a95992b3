package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/remedyproject/remedy/internal/runner"
)

// ApplyStatus is the terminal state of one apply attempt.
type ApplyStatus int

const (
	// StatusApplied means the working tree was modified by the diff.
	StatusApplied ApplyStatus = iota
	// StatusAlreadyApplied means the reverse dry-run succeeded: the change
	// is already present and the tree was left untouched.
	StatusAlreadyApplied
	// StatusFailed means every strategy rejected the diff. Retryable.
	StatusFailed
)

func (s ApplyStatus) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusAlreadyApplied:
		return "already_applied"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ApplyResult describes which strategy handled the diff, or why none could.
type ApplyResult struct {
	Status   ApplyStatus
	Strategy string // "git-apply", "git-reverse-check", "patch-tool"
	Detail   string // tool output on failure, for the next prompt
}

// Applier applies unified diffs to a working tree through a strategy
// cascade, short-circuiting on the first success.
type Applier struct {
	exec runner.Execer
	dir  string
}

// NewApplier creates an Applier rooted at the given working tree.
func NewApplier(exec runner.Execer, dir string) *Applier {
	return &Applier{exec: exec, dir: dir}
}

// Apply runs the cascade:
//  1. git apply forward dry-run, then the real apply.
//  2. git apply reverse dry-run; clean means the patch is already present.
//  3. patch(1) line-based apply with its own dry-run, for diffs git
//     rejects due to context drift.
//
// An error is returned only for infrastructure failures (tool missing,
// context canceled); a diff no strategy accepts comes back as StatusFailed.
func (a *Applier) Apply(ctx context.Context, d *Diff) (*ApplyResult, error) {
	checkOut, checkCode, err := a.git(ctx, d.Text, "apply", "--check", "--whitespace=nowarn")
	if err != nil {
		return nil, err
	}
	if checkCode == 0 {
		applyOut, applyCode, err := a.git(ctx, d.Text, "apply", "--allow-empty", "--whitespace=nowarn")
		if err != nil {
			return nil, err
		}
		if applyCode != 0 {
			return &ApplyResult{
				Status:   StatusFailed,
				Strategy: "git-apply",
				Detail:   fmt.Sprintf("git apply failed: %s", firstNonEmpty(applyOut, "(no output)")),
			}, nil
		}
		return &ApplyResult{Status: StatusApplied, Strategy: "git-apply"}, nil
	}

	_, reverseCode, err := a.git(ctx, d.Text, "apply", "--check", "--reverse", "--whitespace=nowarn")
	if err != nil {
		return nil, err
	}
	if reverseCode == 0 {
		return &ApplyResult{Status: StatusAlreadyApplied, Strategy: "git-reverse-check"}, nil
	}

	return a.applyWithPatchTool(ctx, d, checkOut)
}

// applyWithPatchTool is the line-based fallback for context drift.
func (a *Applier) applyWithPatchTool(ctx context.Context, d *Diff, gitCheckOut string) (*ApplyResult, error) {
	dryArgs := []string{"--batch", "--forward", "--reject-file=-", "-p1", "--dry-run"}
	dryOut, dryCode, err := a.patch(ctx, d.Text, dryArgs...)
	if err != nil {
		return nil, err
	}
	if dryCode != 0 {
		return &ApplyResult{
			Status:   StatusFailed,
			Strategy: "patch-tool",
			Detail: fmt.Sprintf("git apply --check output:\n%s\n\npatch --dry-run output:\n%s",
				firstNonEmpty(gitCheckOut, "(none)"), firstNonEmpty(dryOut, "(none)")),
		}, nil
	}

	out, code, err := a.patch(ctx, d.Text, "--batch", "--forward", "--reject-file=-", "-p1")
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return &ApplyResult{
			Status:   StatusFailed,
			Strategy: "patch-tool",
			Detail:   fmt.Sprintf("patch exited %d: %s", code, firstNonEmpty(out, "(no output)")),
		}, nil
	}
	return &ApplyResult{Status: StatusApplied, Strategy: "patch-tool"}, nil
}

func (a *Applier) git(ctx context.Context, stdin string, args ...string) (string, int, error) {
	stdout, stderr, code, err := a.exec.Exec(ctx, a.dir, stdin, "git", args...)
	if err != nil {
		return "", 0, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(stdout + stderr), code, nil
}

func (a *Applier) patch(ctx context.Context, stdin string, args ...string) (string, int, error) {
	stdout, stderr, code, err := a.exec.Exec(ctx, a.dir, stdin, "patch", args...)
	if err != nil {
		return "", 0, fmt.Errorf("patch %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(stdout + stderr), code, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
