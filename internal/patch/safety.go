package patch

import (
	"fmt"
	"regexp"
	"strings"
)

// Rules is the declarative safety rule set evaluated against every diff
// before it may reach the applier.
type Rules struct {
	// ProtectedPrefixes are path prefixes the automation must never touch,
	// typically the repair tooling's own configuration and scripts.
	ProtectedPrefixes []string
	// RiskyPatterns flag diff bodies that suppress checks or relax
	// thresholds instead of fixing the failure.
	RiskyPatterns []*regexp.Regexp
	// MaxChangedLines rejects patches beyond this many +/- lines. Zero
	// disables the cap.
	MaxChangedLines int
}

// Violation reports every rule a diff matched. A nil *Violation means clean.
type Violation struct {
	ProtectedPaths []string
	Patterns       []string
	ChangedLines   int // set when the line cap was exceeded
	MaxLines       int
}

// Protected reports whether the violation involves a protected path.
func (v *Violation) Protected() bool {
	return len(v.ProtectedPaths) > 0
}

// Reason renders a human-readable account of everything that matched.
func (v *Violation) Reason() string {
	var parts []string
	if len(v.ProtectedPaths) > 0 {
		parts = append(parts, fmt.Sprintf("touches protected path(s): %s",
			strings.Join(v.ProtectedPaths, ", ")))
	}
	if len(v.Patterns) > 0 {
		parts = append(parts, fmt.Sprintf("matches risky pattern(s): %s",
			strings.Join(v.Patterns, ", ")))
	}
	if v.ChangedLines > 0 {
		parts = append(parts, fmt.Sprintf("changes %d lines, over the %d line limit",
			v.ChangedLines, v.MaxLines))
	}
	return strings.Join(parts, "; ")
}

// Check evaluates the rule set against a diff. It is a pure function of its
// inputs; all matched rules are reported, not just the first.
func (r Rules) Check(d *Diff) *Violation {
	v := &Violation{}

	for _, path := range d.Paths() {
		for _, prefix := range r.ProtectedPrefixes {
			if strings.HasPrefix(path, prefix) {
				v.ProtectedPaths = append(v.ProtectedPaths, path)
				break
			}
		}
	}

	for _, re := range r.RiskyPatterns {
		if re.MatchString(d.Text) {
			v.Patterns = append(v.Patterns, re.String())
		}
	}

	if r.MaxChangedLines > 0 {
		if changed := d.ChangedLines(); changed > r.MaxChangedLines {
			v.ChangedLines = changed
			v.MaxLines = r.MaxChangedLines
		}
	}

	if len(v.ProtectedPaths) == 0 && len(v.Patterns) == 0 && v.ChangedLines == 0 {
		return nil
	}
	return v
}
