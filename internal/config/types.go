package config

// Recognized values for PatchApprovalMode and OnViolation.
const (
	ApprovalPrompt = "prompt"
	ApprovalAuto   = "auto"

	ViolationAbort = "abort"
	ViolationRetry = "retry"
)

// Config is the top-level configuration parsed from remedy YAML.
type Config struct {
	// Command is the CI command run on every attempt. Exit 0 means pass.
	Command string `yaml:"command"`
	// CommandTimeout bounds one CI run, e.g. "30m".
	CommandTimeout string `yaml:"command_timeout"`

	MaxAttempts  int `yaml:"max_attempts"`
	LogTailLines int `yaml:"log_tail_lines"`

	// Patch safety rules.
	MaxPatchLines         int      `yaml:"max_patch_lines"`
	ProtectedPathPrefixes []string `yaml:"protected_path_prefixes"`
	RiskyPatterns         []string `yaml:"risky_patterns"`
	// OnViolation picks what a safety rejection does: "abort" or "retry".
	OnViolation string `yaml:"on_violation"`

	// Coverage gate. Threshold 0 disables the gate entirely.
	CoverageThreshold   float64 `yaml:"coverage_threshold"`
	CoverageMaxAttempts int     `yaml:"coverage_max_attempts"`

	// Patch service selection, forwarded opaquely to the backend CLI.
	Model           string `yaml:"model"`
	ReasoningEffort string `yaml:"reasoning_effort"`

	// PatchApprovalMode is "prompt" (interactive) or "auto".
	PatchApprovalMode string `yaml:"patch_approval_mode"`

	// Post-success worktree handling.
	AutoStage     bool `yaml:"auto_stage"`
	CommitMessage bool `yaml:"commit_message"`
	AutoPush      bool `yaml:"auto_push"`

	// MaxDiffChars caps diff payloads sent to the patch service; larger
	// diffs are summarized stat-only.
	MaxDiffChars int `yaml:"max_diff_chars"`

	ArchiveDir string `yaml:"archive_dir"`

	// DatabaseURL enables the Postgres event store when set.
	DatabaseURL string `yaml:"database_url"`
}
