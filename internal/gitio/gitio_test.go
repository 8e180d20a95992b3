package gitio

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeExecer struct {
	responses map[string]struct {
		stdout string
		stderr string
		code   int
	}
	err   error
	calls []string
}

func (f *fakeExecer) Exec(_ context.Context, _ string, _ string, name string, args ...string) (string, string, int, error) {
	key := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if f.err != nil {
		return "", "", 0, f.err
	}
	if r, ok := f.responses[key]; ok {
		return r.stdout, r.stderr, r.code, nil
	}
	return "", "", 0, nil
}

func newFake() *fakeExecer {
	return &fakeExecer{responses: map[string]struct {
		stdout string
		stderr string
		code   int
	}{}}
}

func TestStatusTrimsTrailingNewline(t *testing.T) {
	exec := newFake()
	exec.responses["git status --porcelain"] = struct {
		stdout string
		stderr string
		code   int
	}{stdout: " M internal/api/server.go\n?? notes.txt\n"}

	g := New(exec, "/repo")
	status, err := g.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != " M internal/api/server.go\n?? notes.txt" {
		t.Errorf("status = %q", status)
	}
}

func TestDirty(t *testing.T) {
	exec := newFake()
	g := New(exec, "/repo")

	dirty, err := g.Dirty(context.Background())
	if err != nil {
		t.Fatalf("Dirty: %v", err)
	}
	if dirty {
		t.Error("empty status should be clean")
	}

	exec.responses["git status --porcelain"] = struct {
		stdout string
		stderr string
		code   int
	}{stdout: " M file.go\n"}
	dirty, err = g.Dirty(context.Background())
	if err != nil {
		t.Fatalf("Dirty: %v", err)
	}
	if !dirty {
		t.Error("modified file should be dirty")
	}
}

func TestCommitArgs(t *testing.T) {
	exec := newFake()
	g := New(exec, "/repo")
	if err := g.Commit(context.Background(), "fix handler typo"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0] != "git commit -m fix handler typo" {
		t.Errorf("calls = %v", exec.calls)
	}
}

func TestNonZeroExitCarriesStderr(t *testing.T) {
	exec := newFake()
	exec.responses["git push"] = struct {
		stdout string
		stderr string
		code   int
	}{stderr: "remote rejected", code: 1}

	g := New(exec, "/repo")
	err := g.Push(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "remote rejected") {
		t.Errorf("error = %v", err)
	}
}

func TestCurrentBranch(t *testing.T) {
	exec := newFake()
	exec.responses["git rev-parse --abbrev-ref HEAD"] = struct {
		stdout string
		stderr string
		code   int
	}{stdout: "main\n"}

	g := New(exec, "/repo")
	branch, err := g.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("branch = %q", branch)
	}
}

func TestExecErrorPropagates(t *testing.T) {
	exec := newFake()
	exec.err = errors.New("git not installed")
	g := New(exec, "/repo")
	if _, err := g.Status(context.Background()); err == nil {
		t.Error("expected an error")
	}
}
