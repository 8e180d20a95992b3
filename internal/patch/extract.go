package patch

import (
	"regexp"
	"strings"
)

// Classification describes what a raw patch-service response turned out to be.
type Classification int

const (
	// ClassSuccess means the response contained a usable unified diff.
	ClassSuccess Classification = iota
	// ClassNoop means the service asserted no fix is needed.
	ClassNoop
	// ClassEmpty means the response carried no content at all.
	ClassEmpty
	// ClassRequiresManual means the service declared the failure beyond
	// automated repair.
	ClassRequiresManual
	// ClassNoDiff means the response had content but no parsable diff.
	ClassNoDiff
)

func (c Classification) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassNoop:
		return "noop"
	case ClassEmpty:
		return "empty"
	case ClassRequiresManual:
		return "requires_manual"
	case ClassNoDiff:
		return "no_diff"
	default:
		return "unknown"
	}
}

// Response is the classified form of one patch-service reply.
type Response struct {
	Raw            string
	Classification Classification
	// Diff is set for ClassSuccess. For ClassRequiresManual it may hold a
	// partial diff the service bundled with its declaration; such a diff is
	// archived but never applied.
	Diff *Diff
}

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:diff)?\\s*(.*?)```")
	headerRe = regexp.MustCompile(`(?m)^(diff --git|--- |\+\+\+ )`)
	manualRe = regexp.MustCompile(`(?i)\b(requires?|needs?)\s+manual\s+intervention\b`)
)

// Classify inspects a raw response and extracts a diff when one is present.
func Classify(raw string) *Response {
	resp := &Response{Raw: raw}
	trimmed := strings.TrimSpace(raw)

	switch {
	case trimmed == "":
		resp.Classification = ClassEmpty
		return resp
	case strings.ToUpper(trimmed) == "NOOP":
		resp.Classification = ClassNoop
		return resp
	case manualRe.MatchString(trimmed):
		resp.Classification = ClassRequiresManual
		// Keep any bundled diff for the audit trail only.
		if candidate := extractDiffText(trimmed); headerRe.MatchString(candidate) {
			if d, err := ParseDiff(candidate); err == nil {
				resp.Diff = d
			}
		}
		return resp
	}

	candidate := extractDiffText(trimmed)
	if !headerRe.MatchString(candidate) {
		resp.Classification = ClassNoDiff
		return resp
	}
	d, err := ParseDiff(candidate)
	if err != nil {
		resp.Classification = ClassNoDiff
		return resp
	}
	resp.Classification = ClassSuccess
	resp.Diff = d
	return resp
}

// extractDiffText pulls the most plausible diff body from a response.
// Fenced code blocks are preferred; within them, a block that opens like a
// diff wins over the first block. Without fences the response itself is the
// candidate.
func extractDiffText(text string) string {
	matches := fenceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	for _, m := range matches {
		block := strings.TrimSpace(m[1])
		if strings.HasPrefix(block, "diff") || strings.HasPrefix(block, "---") ||
			strings.HasPrefix(block, "Index:") || strings.HasPrefix(block, "From ") {
			return block
		}
	}
	return strings.TrimSpace(matches[0][1])
}
