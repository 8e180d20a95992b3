package loop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/remedyproject/remedy/internal/archive"
	"github.com/remedyproject/remedy/internal/config"
	"github.com/remedyproject/remedy/internal/coverage"
	"github.com/remedyproject/remedy/internal/patch"
	"github.com/remedyproject/remedy/internal/patchsvc"
	"github.com/remedyproject/remedy/internal/prompt"
	"github.com/remedyproject/remedy/internal/runner"
)

// Applier applies a parsed diff to the working tree.
type Applier interface {
	Apply(ctx context.Context, d *patch.Diff) (*patch.ApplyResult, error)
}

// Archiver is the audit trail. Every attempt is archived before the loop
// decides its next move; an archive failure aborts the run.
type Archiver interface {
	Dir() string
	WriteRecord(rec *archive.AttemptRecord) error
	WriteText(phase string, attempt int, kind, content string) error
	WriteOutcome(outcome string, endedAt time.Time) error
}

// Recorder receives best-effort run telemetry. May be nil.
type Recorder interface {
	RecordEvent(ctx context.Context, kind, detail string)
	RecordAttempt(ctx context.Context, phase string, attempt int, exitCode int, classification, applyStatus string)
}

// Workspace is the subset of git operations the loop needs to finalize an
// applied repair. May be nil, in which case nothing is committed.
type Workspace interface {
	Dirty(ctx context.Context) (bool, error)
	Status(ctx context.Context) (string, error)
	Diff(ctx context.Context) (string, error)
	FileDiff(ctx context.Context, path string) (string, error)
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
}

// CommitPreparer produces a commit message for the staged change.
type CommitPreparer interface {
	Prepare(ctx context.Context, status, diffText, stat string) string
}

// Decision is an operator's verdict on a proposed patch.
type Decision int

const (
	DecisionApprove Decision = iota
	DecisionReject
	DecisionQuit
)

// Approver asks the operator about a patch. Consulted only when the
// approval mode is "prompt".
type Approver func(d *patch.Diff) (Decision, error)

// Engine runs the repair loop. All collaborators are injected so the loop
// is testable with fakes.
type Engine struct {
	Config   *config.Config
	Runner   runner.CommandRunner
	Service  patchsvc.Service
	Applier  Applier
	Archive  Archiver
	Recorder Recorder
	Git      Workspace
	Commits  CommitPreparer
	Approve  Approver
	Workdir  string

	progress io.Writer
	rules    patch.Rules
	seen     map[string]bool
}

// SetProgress directs human-readable progress output to w.
func (e *Engine) SetProgress(w io.Writer) { e.progress = w }

func (e *Engine) logf(format string, args ...any) {
	if e.progress != nil {
		fmt.Fprintf(e.progress, format+"\n", args...)
	}
}

// Run executes the repair phase and, when a coverage threshold is set, the
// coverage phase. It returns the run's single outcome; the error return is
// reserved for infrastructure failures (the CI command could not be
// spawned, the archive is unwritable).
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	patterns, err := e.Config.CompileRiskyPatterns()
	if err != nil {
		return OutcomeNoUsablePatch, fmt.Errorf("compiling risky patterns: %w", err)
	}
	e.rules = patch.Rules{
		ProtectedPrefixes: e.Config.ProtectedPathPrefixes,
		RiskyPatterns:     patterns,
		MaxChangedLines:   e.Config.MaxPatchLines,
	}
	e.seen = make(map[string]bool)

	outcome, lastRun, err := e.repairPhase(ctx)
	if err != nil {
		return outcome, err
	}
	if outcome == OutcomePassed && e.Config.CoverageThreshold > 0 {
		outcome, err = e.coveragePhase(ctx, lastRun)
		if err != nil {
			return outcome, err
		}
	}
	if outcome == OutcomePassed {
		e.finalize(ctx)
	}

	if err := e.Archive.WriteOutcome(outcome.String(), time.Now()); err != nil {
		return outcome, err
	}
	e.recordEvent(ctx, "run_finished", outcome.String())
	e.logf("outcome: %s (archive: %s)", outcome, e.Archive.Dir())
	return outcome, nil
}

func (e *Engine) repairPhase(ctx context.Context) (Outcome, *runner.Result, error) {
	machine := Machine{MaxAttempts: e.Config.MaxAttempts}
	attempt := 1
	prevNote := ""

	for {
		e.logf("attempt %d: running %s", attempt, e.Config.Command)
		res, err := e.Runner.Run(ctx, e.Workdir, e.Config.Command)
		if err != nil {
			return OutcomeNoUsablePatch, nil, fmt.Errorf("running CI command: %w", err)
		}
		tail := runner.TailLines(res.Log, e.Config.LogTailLines)
		if err := e.Archive.WriteText("repair", attempt, "ci-log", tail); err != nil {
			return OutcomeNoUsablePatch, nil, err
		}

		if res.Ok() {
			if err := e.writeRecord("repair", attempt, res, "", "", "ci passed"); err != nil {
				return OutcomeNoUsablePatch, nil, err
			}
			tr := machine.Next(StateRunningCI, EventCIPassed{})
			e.logf("attempt %d: CI passed", attempt)
			return *tr.Outcome, res, nil
		}

		e.logf("attempt %d: CI failed (exit %d)", attempt, res.ExitCode)
		tr := machine.Next(StateRunningCI, EventCIFailed{Attempt: attempt})
		if tr.Outcome != nil {
			if err := e.writeRecord("repair", attempt, res, "", "", "attempt budget exhausted"); err != nil {
				return OutcomeNoUsablePatch, nil, err
			}
			return *tr.Outcome, res, nil
		}

		outcome, note, done, err := e.attemptRepair(ctx, machine, attempt, res, tail, prevNote)
		if err != nil {
			return OutcomeNoUsablePatch, nil, err
		}
		if done {
			return outcome, res, nil
		}
		prevNote = note
		attempt++
	}
}

// attemptRepair drives one attempt from prompt to apply. done reports a
// terminal outcome; otherwise note seeds the next attempt's prompt.
func (e *Engine) attemptRepair(ctx context.Context, machine Machine, attempt int, res *runner.Result, tail, prevNote string) (Outcome, string, bool, error) {
	implicated := ImplicatedFiles(tail)
	vars := prompt.Vars{
		"command":          e.Config.Command,
		"exit_code":        strconv.Itoa(res.ExitCode),
		"attempt":          strconv.Itoa(attempt),
		"max_attempts":     strconv.Itoa(e.Config.MaxAttempts),
		"failure_summary":  SummarizeFailure(tail),
		"implicated_files": strings.Join(implicated, "\n"),
		"focused_diff":     e.focusedDiff(ctx, implicated),
		"previous_note":    prevNote,
		"log_tail":         tail,
	}
	if res.TimedOut {
		vars["failure_summary"] = "the CI command timed out\n" + vars["failure_summary"]
	}
	body, err := prompt.RenderNamed(e.Workdir, prompt.TemplateRepair, vars)
	if err != nil {
		return OutcomeNoUsablePatch, "", false, fmt.Errorf("building repair prompt: %w", err)
	}
	return e.attemptPatch(ctx, machine, "repair", attempt, res, body)
}

// attemptPatch is the shared prompt-to-apply tail of one attempt, used by
// both phases.
func (e *Engine) attemptPatch(ctx context.Context, machine Machine, phase string, attempt int, res *runner.Result, promptBody string) (Outcome, string, bool, error) {
	if err := e.Archive.WriteText(phase, attempt, "prompt", promptBody); err != nil {
		return OutcomeNoUsablePatch, "", false, err
	}

	raw, err := e.Service.Request(ctx, promptBody)
	if err != nil {
		e.logf("attempt %d: patch service failed: %v", attempt, err)
		if werr := e.writeRecord(phase, attempt, res, "", "", "patch service error: "+err.Error()); werr != nil {
			return OutcomeNoUsablePatch, "", false, werr
		}
		tr := machine.Next(StateAwaitingPatch, EventServiceFailed{})
		return *tr.Outcome, "", true, nil
	}
	if err := e.Archive.WriteText(phase, attempt, "response", raw); err != nil {
		return OutcomeNoUsablePatch, "", false, err
	}

	resp := patch.Classify(raw)
	class := resp.Classification.String()
	e.logf("attempt %d: response classified as %s", attempt, class)
	if resp.Diff != nil {
		if err := e.Archive.WriteText(phase, attempt, "diff", resp.Diff.Text); err != nil {
			return OutcomeNoUsablePatch, "", false, err
		}
	}

	tr := machine.Next(StateClassifying, EventClassified{Class: resp.Classification, Attempt: attempt})
	if tr.Outcome != nil {
		if err := e.writeRecord(phase, attempt, res, class, "", ""); err != nil {
			return OutcomeNoUsablePatch, "", false, err
		}
		return *tr.Outcome, "", true, nil
	}
	if resp.Classification != patch.ClassSuccess {
		// Retryable non-diff response.
		if err := e.writeRecord(phase, attempt, res, class, "", "retrying"); err != nil {
			return OutcomeNoUsablePatch, "", false, err
		}
		return 0, "the service returned no usable diff", false, nil
	}

	return e.applyPatch(ctx, machine, phase, attempt, res, resp)
}

func (e *Engine) applyPatch(ctx context.Context, machine Machine, phase string, attempt int, res *runner.Result, resp *patch.Response) (Outcome, string, bool, error) {
	class := resp.Classification.String()
	d := resp.Diff

	key := diffKey(d)
	if e.seen[key] {
		e.logf("attempt %d: identical patch proposed again", attempt)
		if err := e.writeRecord(phase, attempt, res, class, "", "duplicate patch"); err != nil {
			return OutcomeNoUsablePatch, "", false, err
		}
		tr := machine.Next(StateClassifying, EventRejected{Attempt: attempt})
		if tr.Outcome != nil {
			return *tr.Outcome, "", true, nil
		}
		return 0, "you proposed this exact patch before and it did not resolve the failure", false, nil
	}
	e.seen[key] = true

	if v := e.rules.Check(d); v != nil {
		e.logf("attempt %d: patch rejected: %s", attempt, v.Reason())
		if err := e.writeRecord(phase, attempt, res, class, "", "guard violation: "+v.Reason()); err != nil {
			return OutcomeNoUsablePatch, "", false, err
		}
		tr := machine.Next(StateClassifying, EventGuardViolation{
			Protected: v.Protected(),
			Abort:     e.Config.OnViolation == config.ViolationAbort,
			Attempt:   attempt,
		})
		if tr.Outcome != nil {
			return *tr.Outcome, "", true, nil
		}
		return 0, "the previous patch violated safety rules: " + v.Reason(), false, nil
	}

	if e.Config.PatchApprovalMode == config.ApprovalPrompt && e.Approve != nil {
		decision, err := e.Approve(d)
		if err != nil {
			return OutcomeNoUsablePatch, "", false, fmt.Errorf("patch approval: %w", err)
		}
		switch decision {
		case DecisionQuit:
			if err := e.writeRecord(phase, attempt, res, class, "", "operator stopped the run"); err != nil {
				return OutcomeNoUsablePatch, "", false, err
			}
			tr := machine.Next(StateClassifying, EventOperatorQuit{})
			return *tr.Outcome, "", true, nil
		case DecisionReject:
			if err := e.writeRecord(phase, attempt, res, class, "", "operator rejected the patch"); err != nil {
				return OutcomeNoUsablePatch, "", false, err
			}
			tr := machine.Next(StateClassifying, EventRejected{Attempt: attempt})
			if tr.Outcome != nil {
				return *tr.Outcome, "", true, nil
			}
			return 0, "the operator rejected the previous patch", false, nil
		}
	}

	applied, err := e.Applier.Apply(ctx, d)
	if err != nil {
		return OutcomeNoUsablePatch, "", false, fmt.Errorf("applying patch: %w", err)
	}
	e.logf("attempt %d: apply %s via %s", attempt, applied.Status, applied.Strategy)
	if err := e.writeRecordFull(phase, attempt, res, class, applied.Status.String(), applied.Strategy, applied.Detail); err != nil {
		return OutcomeNoUsablePatch, "", false, err
	}

	switch applied.Status {
	case patch.StatusApplied:
		return 0, "", false, nil
	case patch.StatusAlreadyApplied:
		// The change is present but CI still failed last time; consume the
		// attempt and ask for a different fix.
		return 0, "your previous patch is already present in the tree yet the failure persists", false, nil
	default:
		tr := machine.Next(StateApplying, EventApplyFailed{Attempt: attempt})
		if tr.Outcome != nil {
			return *tr.Outcome, "", true, nil
		}
		return 0, "the previous patch did not apply:\n" + applied.Detail, false, nil
	}
}

func (e *Engine) coveragePhase(ctx context.Context, lastRun *runner.Result) (Outcome, error) {
	table := coverage.Parse(lastRun.Log)
	if table == nil {
		e.logf("coverage: no report in CI output, skipping")
		return OutcomePassed, nil
	}
	deficits := table.Deficits(e.Config.CoverageThreshold)
	if len(deficits) == 0 {
		e.logf("coverage: all modules at or above %.1f%%", e.Config.CoverageThreshold)
		return OutcomePassed, nil
	}

	machine := Machine{MaxAttempts: e.Config.CoverageMaxAttempts}
	report := lastRun.Log
	res := lastRun
	prevNote := ""

	for attempt := 1; attempt <= e.Config.CoverageMaxAttempts; attempt++ {
		e.logf("coverage attempt %d: %d module(s) below %.1f%%", attempt, len(deficits), e.Config.CoverageThreshold)

		body, err := e.coveragePrompt(attempt, deficits, report, prevNote)
		if err != nil {
			return OutcomeNoUsablePatch, err
		}
		outcome, note, done, err := e.attemptPatch(ctx, machine, "coverage", attempt, res, body)
		if err != nil {
			return OutcomeNoUsablePatch, err
		}
		if done {
			return outcome, nil
		}
		if note != "" {
			// No new patch landed; the tree and report are unchanged.
			prevNote = note
			continue
		}

		res, err = e.Runner.Run(ctx, e.Workdir, e.Config.Command)
		if err != nil {
			return OutcomeNoUsablePatch, fmt.Errorf("running CI command: %w", err)
		}
		if err := e.Archive.WriteText("coverage", attempt, "ci-log", runner.TailLines(res.Log, e.Config.LogTailLines)); err != nil {
			return OutcomeNoUsablePatch, err
		}
		if !res.Ok() {
			// The attempt record is already archived; the re-run log above
			// shows what broke.
			e.logf("coverage attempt %d: patch broke CI (exit %d)", attempt, res.ExitCode)
			e.recordEvent(ctx, "coverage_patch_broke_ci", strconv.Itoa(res.ExitCode))
			return OutcomeManualInterventionRequired, nil
		}

		table = coverage.Parse(res.Log)
		if table == nil {
			e.logf("coverage: report disappeared from CI output, treating as satisfied")
			return OutcomePassed, nil
		}
		deficits = table.Deficits(e.Config.CoverageThreshold)
		if len(deficits) == 0 {
			e.logf("coverage: threshold met for all modules")
			return OutcomePassed, nil
		}
		report = res.Log
		prevNote = "coverage is still below the threshold after your patch"
	}
	return OutcomeMaxAttemptsExceeded, nil
}

func (e *Engine) coveragePrompt(attempt int, deficits []coverage.Module, report, prevNote string) (string, error) {
	var list strings.Builder
	for _, m := range deficits {
		fmt.Fprintf(&list, "%s  %.1f%%\n", m.Path, m.Percent)
	}
	vars := prompt.Vars{
		"threshold":     strconv.FormatFloat(e.Config.CoverageThreshold, 'f', -1, 64),
		"attempt":       strconv.Itoa(attempt),
		"max_attempts":  strconv.Itoa(e.Config.CoverageMaxAttempts),
		"deficits":      strings.TrimRight(list.String(), "\n"),
		"previous_note": prevNote,
		"module_source": e.readModuleSource(deficits[0].Path),
		"report":        runner.TailLines(report, e.Config.LogTailLines),
	}
	body, err := prompt.RenderNamed(e.Workdir, prompt.TemplateCoverage, vars)
	if err != nil {
		return "", fmt.Errorf("building coverage prompt: %w", err)
	}
	return body, nil
}

const maxModuleSourceBytes = 20000

// readModuleSource inlines the worst module's source when it is a readable
// file of reasonable size.
func (e *Engine) readModuleSource(path string) string {
	data, err := os.ReadFile(filepath.Join(e.Workdir, path))
	if err != nil || len(data) > maxModuleSourceBytes {
		return ""
	}
	return string(data)
}

// focusedDiff collects the worktree diff of each file the failure log points
// at, so the service sees what earlier patches already changed there. Diffs
// beyond max_diff_chars are summarized to a stat so the request stays bounded.
func (e *Engine) focusedDiff(ctx context.Context, paths []string) string {
	if e.Git == nil {
		return ""
	}
	var blocks []string
	for _, p := range paths {
		d, err := e.Git.FileDiff(ctx, p)
		if err != nil || strings.TrimSpace(d) == "" {
			continue
		}
		blocks = append(blocks, strings.TrimRight(d, "\n"))
	}
	joined := strings.Join(blocks, "\n\n")
	if max := e.Config.MaxDiffChars; max > 0 && len(joined) > max {
		if d, err := patch.ParseDiff(joined); err == nil {
			return "(diff too large to include)\n" + d.Stat()
		}
		return joined[:max]
	}
	return joined
}

// finalize commits the applied repair when auto-staging is on. A commit
// failure is reported but does not flip a pass into a failure.
func (e *Engine) finalize(ctx context.Context) {
	if !e.Config.AutoStage || e.Git == nil {
		return
	}
	dirty, err := e.Git.Dirty(ctx)
	if err != nil {
		e.logf("finalize: git status failed: %v", err)
		return
	}
	if !dirty {
		return
	}
	if err := e.Git.StageAll(ctx); err != nil {
		e.logf("finalize: git add failed: %v", err)
		return
	}
	status, _ := e.Git.Status(ctx)
	diffText, _ := e.Git.Diff(ctx)

	message := "Apply automated CI repair"
	if e.Config.CommitMessage && e.Commits != nil {
		stat := ""
		if d, err := patch.ParseDiff(diffText); err == nil {
			stat = d.Stat()
		}
		message = e.Commits.Prepare(ctx, status, diffText, stat)
	}
	if err := e.Git.Commit(ctx, message); err != nil {
		e.logf("finalize: git commit failed: %v", err)
		return
	}
	e.logf("finalize: committed repair")
	e.recordEvent(ctx, "committed", strings.SplitN(message, "\n", 2)[0])

	if e.Config.AutoPush {
		if err := e.Git.Push(ctx); err != nil {
			e.logf("finalize: git push failed: %v", err)
			return
		}
		e.logf("finalize: pushed")
	}
}

func (e *Engine) writeRecord(phase string, attempt int, res *runner.Result, classification, applyStatus, note string) error {
	return e.writeRecordFull(phase, attempt, res, classification, applyStatus, "", note)
}

func (e *Engine) writeRecordFull(phase string, attempt int, res *runner.Result, classification, applyStatus, strategy, note string) error {
	rec := &archive.AttemptRecord{
		Phase:          phase,
		Attempt:        attempt,
		Command:        e.Config.Command,
		Classification: classification,
		ApplyStatus:    applyStatus,
		ApplyStrategy:  strategy,
		Note:           note,
	}
	if res != nil {
		rec.StartedAt = res.StartedAt
		rec.EndedAt = res.EndedAt
		rec.ExitCode = res.ExitCode
	}
	if err := e.Archive.WriteRecord(rec); err != nil {
		return err
	}
	if e.Recorder != nil {
		e.Recorder.RecordAttempt(context.Background(), phase, attempt, rec.ExitCode, classification, applyStatus)
	}
	return nil
}

func (e *Engine) recordEvent(ctx context.Context, kind, detail string) {
	if e.Recorder != nil {
		e.Recorder.RecordEvent(ctx, kind, detail)
	}
}

func diffKey(d *patch.Diff) string {
	sum := sha256.Sum256([]byte(d.Text))
	return hex.EncodeToString(sum[:8])
}
