package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "remedy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "command: make ci\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Command != "make ci" {
		t.Errorf("expected command preserved, got %q", cfg.Command)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("expected default max_attempts=5, got %d", cfg.MaxAttempts)
	}
	if cfg.LogTailLines != 200 {
		t.Errorf("expected default log_tail_lines=200, got %d", cfg.LogTailLines)
	}
	if cfg.PatchApprovalMode != "prompt" {
		t.Errorf("expected default approval mode prompt, got %q", cfg.PatchApprovalMode)
	}
	if len(cfg.ProtectedPathPrefixes) == 0 {
		t.Error("expected default protected prefixes")
	}
	if cfg.CoverageMaxAttempts != cfg.MaxAttempts {
		t.Errorf("expected coverage budget to default to max_attempts, got %d", cfg.CoverageMaxAttempts)
	}
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
command: ./ci.sh
max_attempts: 3
coverage_threshold: 85
protected_path_prefixes:
  - tooling/
patch_approval_mode: auto
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected max_attempts=3, got %d", cfg.MaxAttempts)
	}
	if cfg.CoverageThreshold != 85 {
		t.Errorf("expected threshold 85, got %v", cfg.CoverageThreshold)
	}
	if len(cfg.ProtectedPathPrefixes) != 1 || cfg.ProtectedPathPrefixes[0] != "tooling/" {
		t.Errorf("expected explicit protected prefixes, got %v", cfg.ProtectedPathPrefixes)
	}
	if cfg.CoverageMaxAttempts != 3 {
		t.Errorf("expected coverage budget to follow max_attempts, got %d", cfg.CoverageMaxAttempts)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "command: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_CleanDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("expected defaults to validate, got %v", errs)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := &Config{
		Command:           "",
		MaxAttempts:       0,
		LogTailLines:      -1,
		CoverageThreshold: 120,
		CommandTimeout:    "not-a-duration",
		PatchApprovalMode: "yolo",
		OnViolation:       "ignore",
		ReasoningEffort:   "extreme",
		RiskyPatterns:     []string{"("},
	}
	errs := Validate(cfg)

	want := map[string]bool{
		"command":             false,
		"max_attempts":        false,
		"log_tail_lines":      false,
		"coverage_threshold":  false,
		"command_timeout":     false,
		"patch_approval_mode": false,
		"on_violation":        false,
		"reasoning_effort":    false,
		"risky_patterns[0]":   false,
	}
	for _, e := range errs {
		if _, ok := want[e.Field]; ok {
			want[e.Field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected validation error for %s", field)
		}
	}
}

func TestCompileRiskyPatterns(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	patterns, err := cfg.CompileRiskyPatterns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patterns) != len(cfg.RiskyPatterns) {
		t.Errorf("expected %d compiled patterns, got %d", len(cfg.RiskyPatterns), len(patterns))
	}

	cfg.RiskyPatterns = []string{"("}
	if _, err := cfg.CompileRiskyPatterns(); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestTimeout(t *testing.T) {
	cfg := &Config{CommandTimeout: "90s"}
	if got := cfg.Timeout().Seconds(); got != 90 {
		t.Errorf("expected 90s, got %vs", got)
	}
	cfg.CommandTimeout = ""
	if cfg.Timeout() != 0 {
		t.Error("expected zero timeout when unset")
	}
}
