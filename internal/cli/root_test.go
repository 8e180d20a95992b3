package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/remedyproject/remedy/internal/loop"
	"github.com/remedyproject/remedy/internal/patch"
	"github.com/spf13/cobra"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sub := range []string{"run", "check", "coverage", "config", "db", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestRunDryRunExecutesCommandOnly(t *testing.T) {
	out, err := executeCommand("run", "--dry-run", "--command", "echo dry-run-ci-output")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("expected dry run banner, got: %s", out)
	}
	if !strings.Contains(out, "dry-run-ci-output") {
		t.Errorf("expected CI command output, got: %s", out)
	}
}

func TestRunHelpListsFlags(t *testing.T) {
	out, err := executeCommand("run", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, flag := range []string{"--dry-run", "--auto", "--max-attempts", "--model", "--coverage-threshold"} {
		if !strings.Contains(out, flag) {
			t.Errorf("run help missing flag %q", flag)
		}
	}
}

const approverDiff = `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,1 +1,1 @@
-var x = 1
+var x = 2
`

func approverFor(t *testing.T, input string) loop.Approver {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(new(bytes.Buffer))
	return stdinApprover(cmd)
}

func TestStdinApprover(t *testing.T) {
	d, err := patch.ParseDiff(approverDiff)
	if err != nil {
		t.Fatalf("ParseDiff: %v", err)
	}
	cases := []struct {
		input string
		want  loop.Decision
	}{
		{"y\n", loop.DecisionApprove},
		{"YES\n", loop.DecisionApprove},
		{"n\n", loop.DecisionReject},
		{"q\n", loop.DecisionQuit},
		{"maybe\ny\n", loop.DecisionApprove},
	}
	for _, c := range cases {
		got, err := approverFor(t, c.input)(d)
		if err != nil {
			t.Errorf("input %q: %v", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("input %q: decision = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestStdinApproverEOFQuits(t *testing.T) {
	d, err := patch.ParseDiff(approverDiff)
	if err != nil {
		t.Fatalf("ParseDiff: %v", err)
	}
	got, err := approverFor(t, "")(d)
	if err == nil {
		t.Error("expected an error on EOF")
	}
	if got != loop.DecisionQuit {
		t.Errorf("decision = %v, want quit", got)
	}
}
