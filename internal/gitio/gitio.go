// Package gitio wraps the git operations the repair loop needs: inspecting
// the working tree, staging, committing, and pushing.
package gitio

import (
	"context"
	"fmt"
	"strings"

	"github.com/remedyproject/remedy/internal/runner"
)

// Git runs git commands in a fixed working tree.
type Git struct {
	exec runner.Execer
	dir  string
}

// New returns a Git bound to the given working tree.
func New(exec runner.Execer, dir string) *Git {
	return &Git{exec: exec, dir: dir}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, code, err := g.exec.Exec(ctx, g.dir, "", "git", args...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	if code != 0 {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = strings.TrimSpace(stdout)
		}
		return "", fmt.Errorf("git %s exited %d: %s", strings.Join(args, " "), code, detail)
	}
	return stdout, nil
}

// Status returns porcelain status lines for the working tree. Empty means
// the tree is clean.
func (g *Git) Status(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// Dirty reports whether the working tree has uncommitted changes.
func (g *Git) Dirty(ctx context.Context) (bool, error) {
	status, err := g.Status(ctx)
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// Diff returns the full unstaged-plus-staged diff against HEAD.
func (g *Git) Diff(ctx context.Context) (string, error) {
	return g.run(ctx, "diff", "HEAD")
}

// FileDiff returns the diff against HEAD restricted to one path.
func (g *Git) FileDiff(ctx context.Context, path string) (string, error) {
	return g.run(ctx, "diff", "HEAD", "--", path)
}

// StageAll stages every change in the working tree.
func (g *Git) StageAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "-A")
	return err
}

// Commit creates a commit with the given message.
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes the current branch to its upstream.
func (g *Git) Push(ctx context.Context) error {
	_, err := g.run(ctx, "push")
	return err
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Head returns the current commit hash.
func (g *Git) Head(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
