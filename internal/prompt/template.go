// Package prompt renders the prompts sent to the patch service. Templates
// use {{variable}} substitution and {{#if variable}}...{{/if}} blocks, and
// can be overridden per project under .remedy/templates/.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const overrideDir = ".remedy/templates"

var (
	varRe    = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	ifOpenRe = regexp.MustCompile(`\{\{#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
)

const ifClose = "{{/if}}"

// Vars maps template variable names to values.
type Vars map[string]string

// Render expands a template. Conditional blocks are kept only when their
// variable is set and non-empty; a {{variable}} with no binding is an error.
func Render(tmpl string, vars Vars) (string, error) {
	body, err := stripConditionals(tmpl, vars)
	if err != nil {
		return "", err
	}

	var missing []string
	out := varRe.ReplaceAllStringFunc(body, func(match string) string {
		name := varRe.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// stripConditionals resolves {{#if}} blocks innermost-first so nesting works.
func stripConditionals(tmpl string, vars Vars) (string, error) {
	out := tmpl
	for {
		closeIdx := strings.Index(out, ifClose)
		if closeIdx < 0 {
			break
		}
		opens := ifOpenRe.FindAllStringSubmatchIndex(out[:closeIdx], -1)
		if opens == nil {
			return "", fmt.Errorf("dangling %s", ifClose)
		}
		inner := opens[len(opens)-1]
		name := out[inner[2]:inner[3]]
		body := out[inner[1]:closeIdx]

		replacement := ""
		if val, ok := vars[name]; ok && val != "" {
			replacement = body
		}
		out = out[:inner[0]] + replacement + out[closeIdx+len(ifClose):]
	}
	if loc := ifOpenRe.FindString(out); loc != "" {
		return "", fmt.Errorf("unclosed conditional block: %s", loc)
	}
	return out, nil
}

// Load returns the template for a name, preferring a project override under
// .remedy/templates/<name>.tmpl and falling back to the built-in.
func Load(workdir, name string) (string, error) {
	if workdir != "" {
		path := filepath.Join(workdir, overrideDir, name+".tmpl")
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	tmpl, ok := builtinTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	return tmpl, nil
}

// RenderNamed loads and renders a template in one step.
func RenderNamed(workdir, name string, vars Vars) (string, error) {
	tmpl, err := Load(workdir, name)
	if err != nil {
		return "", err
	}
	rendered, err := Render(tmpl, vars)
	if err != nil {
		return "", fmt.Errorf("rendering template %q: %w", name, err)
	}
	return rendered, nil
}
