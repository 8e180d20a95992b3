package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultProtectedPrefixes guard the repair tooling's own configuration and
// scripts so a patch can never disable the checks it is asked to satisfy.
var DefaultProtectedPrefixes = []string{
	"remedy.yaml",
	".remedy/",
	"scripts/ci.sh",
	"Makefile",
}

// DefaultRiskyPatterns flag diff bodies that relax or suppress checks, or
// perform destructive operations.
var DefaultRiskyPatterns = []string{
	`(?i)\bdrop\s+table\b`,
	`rm\s+-rf`,
	`(?m)^\+.*#\s*noqa`,
	`(?m)^\+.*//\s*nolint`,
	`(?m)^\+.*pragma:\s*no\s*cover`,
}

// ReasoningEffortChoices are the values the patch backend accepts.
var ReasoningEffortChoices = []string{"low", "medium", "high"}

// Load reads and parses a configuration from the given YAML file path,
// then applies defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config found.
// Search order: ./remedy.yaml, ./.remedy.yaml, ~/.remedy/config.yaml.
// When none exists, a config of pure defaults is returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"remedy.yaml", ".remedy.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".remedy", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills in zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Command == "" {
		cfg.Command = "./scripts/ci.sh"
	}
	if cfg.CommandTimeout == "" {
		cfg.CommandTimeout = "30m"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LogTailLines <= 0 {
		cfg.LogTailLines = 200
	}
	if cfg.MaxPatchLines <= 0 {
		cfg.MaxPatchLines = 1500
	}
	if cfg.ProtectedPathPrefixes == nil {
		cfg.ProtectedPathPrefixes = append([]string(nil), DefaultProtectedPrefixes...)
	}
	if cfg.RiskyPatterns == nil {
		cfg.RiskyPatterns = append([]string(nil), DefaultRiskyPatterns...)
	}
	if cfg.OnViolation == "" {
		cfg.OnViolation = ViolationAbort
	}
	if cfg.CoverageMaxAttempts <= 0 {
		cfg.CoverageMaxAttempts = cfg.MaxAttempts
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5-codex"
	}
	if cfg.ReasoningEffort == "" {
		cfg.ReasoningEffort = "high"
	}
	if cfg.PatchApprovalMode == "" {
		cfg.PatchApprovalMode = ApprovalPrompt
	}
	if cfg.MaxDiffChars <= 0 {
		cfg.MaxDiffChars = 60000
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = ".remedy/runs"
	}
}
