package patch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Diff is a parsed unified diff together with its normalized text form.
type Diff struct {
	Text  string
	Files []*diff.FileDiff
}

// ParseDiff parses unified diff text. The text is normalized to end with a
// newline so it can be piped to git and patch unchanged.
func ParseDiff(text string) (*Diff, error) {
	normalized := text
	if !strings.HasSuffix(normalized, "\n") {
		normalized += "\n"
	}

	files, err := diff.NewMultiFileDiffReader(strings.NewReader(normalized)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing unified diff: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("diff contains no file changes")
	}
	return &Diff{Text: normalized, Files: files}, nil
}

// Paths returns the sorted set of repository-relative paths the diff
// touches, with git's a/ and b/ prefixes stripped.
func (d *Diff) Paths() []string {
	seen := make(map[string]bool)
	for _, fd := range d.Files {
		for _, name := range []string{fd.OrigName, fd.NewName} {
			p := cleanDiffPath(name)
			if p != "" {
				seen[p] = true
			}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ChangedLines counts added plus removed lines across all hunks.
func (d *Diff) ChangedLines() int {
	count := 0
	for _, fd := range d.Files {
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
					count++
				}
			}
		}
	}
	return count
}

// Stat renders a per-file summary suitable for oversized-diff payloads.
func (d *Diff) Stat() string {
	var b strings.Builder
	totalAdd, totalDel := 0, 0
	for _, fd := range d.Files {
		add, del := 0, 0
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					add++
				case strings.HasPrefix(line, "-"):
					del++
				}
			}
		}
		name := cleanDiffPath(fd.NewName)
		if name == "" {
			name = cleanDiffPath(fd.OrigName)
		}
		fmt.Fprintf(&b, " %s | +%d -%d\n", name, add, del)
		totalAdd += add
		totalDel += del
	}
	fmt.Fprintf(&b, " %d files changed, %d insertions(+), %d deletions(-)\n",
		len(d.Files), totalAdd, totalDel)
	return b.String()
}

// cleanDiffPath strips diff name decorations. Empty string means the entry
// carries no real path (e.g. /dev/null on file creation or deletion).
func cleanDiffPath(name string) string {
	if name == "" || name == "/dev/null" {
		return ""
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}
