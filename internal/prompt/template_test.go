package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderVariables(t *testing.T) {
	out, err := Render("run {{command}} (exit {{exit_code}})", Vars{
		"command":   "./scripts/ci.sh",
		"exit_code": "2",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "run ./scripts/ci.sh (exit 2)" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderMissingVariable(t *testing.T) {
	_, err := Render("{{a}} and {{b}}", Vars{"a": "x"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "b") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestRenderConditionalIncluded(t *testing.T) {
	out, err := Render("a{{#if note}} note: {{note}}{{/if}}b", Vars{"note": "hi"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "a note: hib" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderConditionalDropped(t *testing.T) {
	for _, vars := range []Vars{{}, {"note": ""}} {
		out, err := Render("a{{#if note}} note: {{note}}{{/if}}b", vars)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if out != "ab" {
			t.Errorf("out = %q", out)
		}
	}
}

func TestRenderNestedConditionals(t *testing.T) {
	tmpl := "{{#if outer}}O{{#if inner}}I{{/if}}{{/if}}"
	out, err := Render(tmpl, Vars{"outer": "1", "inner": "1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "OI" {
		t.Errorf("out = %q", out)
	}
	out, err = Render(tmpl, Vars{"outer": "1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "O" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderUnbalancedBlocks(t *testing.T) {
	if _, err := Render("{{#if a}}open", Vars{"a": "1"}); err == nil {
		t.Error("unclosed block should error")
	}
	if _, err := Render("stray{{/if}}", Vars{}); err == nil {
		t.Error("dangling close should error")
	}
}

func TestLoadBuiltin(t *testing.T) {
	tmpl, err := Load("", TemplateRepair)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(tmpl, "NOOP") {
		t.Error("repair template should mention NOOP")
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("", "no-such-template"); err == nil {
		t.Error("expected an error")
	}
}

func TestLoadProjectOverride(t *testing.T) {
	workdir := t.TempDir()
	dir := filepath.Join(workdir, ".remedy", "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "repair.tmpl"), []byte("custom {{command}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := RenderNamed(workdir, TemplateRepair, Vars{"command": "make ci"})
	if err != nil {
		t.Fatalf("RenderNamed: %v", err)
	}
	if out != "custom make ci" {
		t.Errorf("out = %q", out)
	}
}

func TestBuiltinRepairRenders(t *testing.T) {
	out, err := RenderNamed("", TemplateRepair, Vars{
		"command":          "./scripts/ci.sh",
		"exit_code":        "1",
		"attempt":          "2",
		"max_attempts":     "5",
		"failure_summary":  "TestGreet failed",
		"implicated_files": "internal/handler/handler.go",
		"focused_diff":     "",
		"previous_note":    "",
		"log_tail":         "--- FAIL: TestGreet",
	})
	if err != nil {
		t.Fatalf("RenderNamed: %v", err)
	}
	if !strings.Contains(out, "Attempt 2 of 5") {
		t.Errorf("missing attempt line:\n%s", out)
	}
	if strings.Contains(out, "previous attempt") {
		t.Error("empty previous_note should drop its block")
	}
}

func TestBuiltinCoverageRenders(t *testing.T) {
	out, err := RenderNamed("", TemplateCoverage, Vars{
		"threshold":     "80",
		"attempt":       "1",
		"max_attempts":  "5",
		"deficits":      "internal/api/server.go  71.7%",
		"previous_note": "",
		"module_source": "",
		"report":        "Name Stmts Miss Cover",
	})
	if err != nil {
		t.Fatalf("RenderNamed: %v", err)
	}
	if !strings.Contains(out, "below the required 80%") {
		t.Errorf("missing threshold:\n%s", out)
	}
}
