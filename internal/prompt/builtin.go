package prompt

// Template names accepted by Load and RenderNamed.
const (
	TemplateRepair        = "repair"
	TemplateCoverage      = "coverage"
	TemplateCommitMessage = "commit-message"
)

var builtinTemplates = map[string]string{
	TemplateRepair: `You are repairing a failing CI run. Reply with exactly one of:
- a unified diff (in a fenced code block) that fixes the failure,
- the single word NOOP if the build needs no change,
- a short note containing "requires manual intervention" if no automated fix is possible.

Do not disable, skip, or weaken any check. Fix the underlying problem.
Never modify CI configuration or repair tooling files.

Command: {{command}}
Exit code: {{exit_code}}
Attempt {{attempt}} of {{max_attempts}}.
{{#if failure_summary}}
Failure summary:
{{failure_summary}}
{{/if}}{{#if implicated_files}}
Files implicated by the log:
{{implicated_files}}
{{/if}}{{#if focused_diff}}
Current local changes to the implicated files:
{{focused_diff}}
{{/if}}{{#if previous_note}}
The previous attempt did not resolve the failure:
{{previous_note}}
Propose a different fix.
{{/if}}
CI log (tail):
{{log_tail}}
`,

	TemplateCoverage: `CI passes, but test coverage is below the required {{threshold}}% in the
modules listed below. Reply with a unified diff (in a fenced code block)
adding meaningful tests that raise coverage for those modules, or the single
word NOOP if the listed coverage cannot be improved.

Write real assertions against real behavior. Do not add trivial tests that
only execute lines, and never add coverage exclusion pragmas.

Attempt {{attempt}} of {{max_attempts}}.

Modules below threshold (worst first):
{{deficits}}
{{#if previous_note}}
The previous attempt did not close the gap:
{{previous_note}}
{{/if}}{{#if module_source}}
Source of the worst module:
{{module_source}}
{{/if}}
Coverage report:
{{report}}
`,

	TemplateCommitMessage: `Write a git commit message for the change below. First line: an
imperative-mood subject of at most 72 characters. Then a blank line, then
short bullet points describing the changes. Output only the message, no
fences and no commentary.

Changed files:
{{status}}

{{#if diff}}
Diff:
{{diff}}
{{/if}}{{#if stat}}
Diffstat (diff too large to include):
{{stat}}
{{/if}}`,
}
