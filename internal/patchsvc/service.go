// Package patchsvc talks to the external patch service that proposes fixes
// for failing builds.
package patchsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/remedyproject/remedy/internal/runner"
)

// Service produces a raw response for a prompt. Responses are classified by
// the caller; implementations only transport text.
type Service interface {
	Request(ctx context.Context, prompt string) (string, error)
}

// CLIService shells out to the codex CLI, feeding the prompt on stdin.
type CLIService struct {
	exec runner.Execer
	dir  string

	// Model and ReasoningEffort select the backing model. Both are
	// validated by the config layer before a CLIService is built.
	Model           string
	ReasoningEffort string
}

// NewCLIService builds a CLIService running in the given directory.
func NewCLIService(exec runner.Execer, dir, model, effort string) *CLIService {
	return &CLIService{exec: exec, dir: dir, Model: model, ReasoningEffort: effort}
}

// Request sends the prompt and returns the trimmed response body. A non-zero
// exit from the CLI is a service error, distinct from an unusable response.
func (s *CLIService) Request(ctx context.Context, prompt string) (string, error) {
	args := []string{
		"exec",
		"--model", s.Model,
		"-c", fmt.Sprintf("model_reasoning_effort=%s", s.ReasoningEffort),
		"-",
	}
	stdout, stderr, code, err := s.exec.Exec(ctx, s.dir, prompt, "codex", args...)
	if err != nil {
		return "", fmt.Errorf("invoking patch service: %w", err)
	}
	if code != 0 {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = strings.TrimSpace(stdout)
		}
		return "", fmt.Errorf("patch service exited %d: %s", code, detail)
	}
	return cleanResponse(stdout), nil
}

// cleanResponse strips the transcript framing the CLI wraps around the
// model's reply, leaving only the content.
func cleanResponse(out string) string {
	text := strings.TrimSpace(out)
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "assistant:") {
		text = strings.TrimSpace(text[len("assistant:"):])
	}
	return text
}
