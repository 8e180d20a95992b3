package config

import (
	"fmt"
	"regexp"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Command == "" {
		errs = append(errs, ValidationError{Field: "command", Message: "is required"})
	}
	if cfg.MaxAttempts <= 0 {
		errs = append(errs, ValidationError{Field: "max_attempts", Message: "must be a positive integer"})
	}
	if cfg.LogTailLines <= 0 {
		errs = append(errs, ValidationError{Field: "log_tail_lines", Message: "must be a positive integer"})
	}
	if cfg.CoverageThreshold < 0 || cfg.CoverageThreshold > 100 {
		errs = append(errs, ValidationError{Field: "coverage_threshold", Message: "must be between 0 and 100"})
	}
	if cfg.CommandTimeout != "" {
		if _, err := time.ParseDuration(cfg.CommandTimeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "command_timeout",
				Message: fmt.Sprintf("invalid duration %q", cfg.CommandTimeout),
			})
		}
	}

	switch cfg.PatchApprovalMode {
	case ApprovalPrompt, ApprovalAuto:
	default:
		errs = append(errs, ValidationError{
			Field:   "patch_approval_mode",
			Message: fmt.Sprintf("must be \"prompt\" or \"auto\", got %q", cfg.PatchApprovalMode),
		})
	}

	switch cfg.OnViolation {
	case ViolationAbort, ViolationRetry:
	default:
		errs = append(errs, ValidationError{
			Field:   "on_violation",
			Message: fmt.Sprintf("must be \"abort\" or \"retry\", got %q", cfg.OnViolation),
		})
	}

	if cfg.ReasoningEffort != "" && !validEffort(cfg.ReasoningEffort) {
		errs = append(errs, ValidationError{
			Field:   "reasoning_effort",
			Message: fmt.Sprintf("must be one of %v, got %q", ReasoningEffortChoices, cfg.ReasoningEffort),
		})
	}

	for i, pattern := range cfg.RiskyPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("risky_patterns[%d]", i),
				Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err),
			})
		}
	}

	return errs
}

// CompileRiskyPatterns compiles the configured risky markers.
func (c *Config) CompileRiskyPatterns() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(c.RiskyPatterns))
	for _, p := range c.RiskyPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("risky pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// Timeout returns the parsed command timeout, or zero when unset.
func (c *Config) Timeout() time.Duration {
	if c.CommandTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.CommandTimeout)
	if err != nil {
		return 0
	}
	return d
}

func validEffort(effort string) bool {
	for _, choice := range ReasoningEffortChoices {
		if effort == choice {
			return true
		}
	}
	return false
}
