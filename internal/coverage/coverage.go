// Package coverage parses per-module coverage tables from CI output and
// identifies modules below a threshold.
package coverage

import (
	"sort"
	"strconv"
	"strings"
)

// Module is one row of a coverage table.
type Module struct {
	Path    string
	Percent float64
}

// Table is a parsed coverage report.
type Table struct {
	Modules []Module
}

// Parse scans CI output for a coverage table. The table starts at a header
// line beginning with "Name" that mentions "Cover"; rows end with a percent
// token. Returns nil when no table is present.
func Parse(output string) *Table {
	lines := strings.Split(output, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Name") && strings.Contains(trimmed, "Cover") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var modules []Module
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(trimmed, "---") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 4 {
			continue
		}
		last := fields[len(fields)-1]
		if !strings.HasSuffix(last, "%") {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(last, "%"), 64)
		if err != nil {
			continue
		}
		// Trailing columns are statements, missed, and percent. Everything
		// before them is the path, which may contain spaces.
		path := strings.Join(fields[:len(fields)-3], " ")
		if path == "" || strings.EqualFold(path, "TOTAL") {
			continue
		}
		modules = append(modules, Module{Path: path, Percent: pct})
	}
	if len(modules) == 0 {
		return nil
	}
	return &Table{Modules: modules}
}

// Deficits returns the modules strictly below the threshold, worst first.
func (t *Table) Deficits(threshold float64) []Module {
	var out []Module
	for _, m := range t.Modules {
		if m.Percent < threshold {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent < out[j].Percent
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Lookup returns the coverage row for a path, if present.
func (t *Table) Lookup(path string) (Module, bool) {
	for _, m := range t.Modules {
		if m.Path == path {
			return m, true
		}
	}
	return Module{}, false
}
