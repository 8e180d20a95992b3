package loop

import (
	"regexp"
	"sort"
	"strings"
)

// failure.go distills a CI log tail into the short signals the prompt
// leads with: a summary of the most telling lines and the source files the
// log implicates.

var (
	failLineRe = regexp.MustCompile(`(?i)^.*\b(FAIL|FAILED|ERROR|AssertionError|panic:|undefined:|cannot find|Traceback)\b.*$`)
	fileRefRe  = regexp.MustCompile(`[\w./-]+\.(?:go|py|js|ts|rb|java|c|cc|cpp|h|rs|sh|yaml|yml|toml|json)\b`)
)

const maxSummaryLines = 12

// SummarizeFailure picks the lines most likely to describe the failure.
// Returns "" when nothing stands out, in which case the prompt relies on
// the raw tail alone.
func SummarizeFailure(logTail string) string {
	var picked []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(logTail, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		if failLineRe.MatchString(trimmed) {
			picked = append(picked, trimmed)
			seen[trimmed] = true
			if len(picked) == maxSummaryLines {
				break
			}
		}
	}
	return strings.Join(picked, "\n")
}

// ImplicatedFiles extracts the source paths the log mentions, deduplicated
// and sorted methodically so prompts are stable across attempts.
func ImplicatedFiles(logTail string) []string {
	seen := make(map[string]bool)
	for _, m := range fileRefRe.FindAllString(logTail, -1) {
		// Bare filenames without a directory are too ambiguous to name.
		if !strings.Contains(m, "/") {
			continue
		}
		m = strings.TrimPrefix(m, "./")
		seen[m] = true
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
