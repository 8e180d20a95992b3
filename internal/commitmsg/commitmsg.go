// Package commitmsg produces commit messages for applied repairs, asking
// the patch service for a descriptive message and falling back to a fixed
// one when it cannot deliver.
package commitmsg

import (
	"context"
	"strings"

	"github.com/remedyproject/remedy/internal/patchsvc"
	"github.com/remedyproject/remedy/internal/prompt"
)

// DefaultMessage is used whenever a generated message is unavailable or
// malformed.
const DefaultMessage = "Apply automated CI repair"

const maxSubjectLen = 72

// Preparer builds commit messages from the staged change.
type Preparer struct {
	svc      patchsvc.Service
	workdir  string
	fallback string
	// MaxDiffChars caps how much diff text goes into the prompt. Larger
	// diffs are summarized as a diffstat instead.
	MaxDiffChars int
}

// New returns a Preparer. An empty fallback selects DefaultMessage.
func New(svc patchsvc.Service, workdir, fallback string, maxDiffChars int) *Preparer {
	if fallback == "" {
		fallback = DefaultMessage
	}
	return &Preparer{svc: svc, workdir: workdir, fallback: fallback, MaxDiffChars: maxDiffChars}
}

// Prepare generates a commit message for the given status and diff. It
// never fails: any service or rendering problem yields the fallback.
func (p *Preparer) Prepare(ctx context.Context, status, diffText, stat string) string {
	vars := prompt.Vars{"status": status, "diff": "", "stat": ""}
	if p.MaxDiffChars > 0 && len(diffText) > p.MaxDiffChars {
		vars["stat"] = stat
	} else {
		vars["diff"] = diffText
	}

	body, err := prompt.RenderNamed(p.workdir, prompt.TemplateCommitMessage, vars)
	if err != nil {
		return p.fallback
	}
	raw, err := p.svc.Request(ctx, body)
	if err != nil {
		return p.fallback
	}
	msg := Sanitize(raw)
	if msg == "" {
		return p.fallback
	}
	return msg
}

// Sanitize strips code fences and rejects messages whose subject line is
// empty or over the subject length limit. Returns "" when unusable.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	subject := strings.SplitN(text, "\n", 2)[0]
	if len(strings.TrimSpace(subject)) == 0 || len(subject) > maxSubjectLen {
		return ""
	}
	return text
}
