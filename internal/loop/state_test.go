package loop

import (
	"testing"

	"github.com/remedyproject/remedy/internal/patch"
)

func outcomeOf(t *testing.T, tr Transition) Outcome {
	t.Helper()
	if tr.Next != StateTerminal || tr.Outcome == nil {
		t.Fatalf("expected terminal transition, got %+v", tr)
	}
	return *tr.Outcome
}

func TestNextCIPassed(t *testing.T) {
	m := Machine{MaxAttempts: 5}
	if got := outcomeOf(t, m.Next(StateRunningCI, EventCIPassed{})); got != OutcomePassed {
		t.Errorf("got %v", got)
	}
}

func TestNextCIFailedWithinBudget(t *testing.T) {
	m := Machine{MaxAttempts: 5}
	tr := m.Next(StateRunningCI, EventCIFailed{Attempt: 5})
	if tr.Next != StateBuildingPrompt || tr.Outcome != nil {
		t.Errorf("got %+v", tr)
	}
}

func TestNextCIFailedBudgetExhausted(t *testing.T) {
	m := Machine{MaxAttempts: 5}
	got := outcomeOf(t, m.Next(StateRunningCI, EventCIFailed{Attempt: 6}))
	if got != OutcomeMaxAttemptsExceeded {
		t.Errorf("got %v", got)
	}
}

func TestNextServiceFailureIsFatal(t *testing.T) {
	m := Machine{MaxAttempts: 5}
	got := outcomeOf(t, m.Next(StateAwaitingPatch, EventServiceFailed{}))
	if got != OutcomePatchServiceError {
		t.Errorf("got %v", got)
	}
}

func TestNextClassifications(t *testing.T) {
	m := Machine{MaxAttempts: 5}
	cases := []struct {
		class   patch.Classification
		attempt int
		next    State
		outcome *Outcome
	}{
		{patch.ClassSuccess, 1, StateApplying, nil},
		{patch.ClassNoop, 1, StateTerminal, ptr(OutcomeNoopReturned)},
		{patch.ClassRequiresManual, 1, StateTerminal, ptr(OutcomeManualInterventionRequired)},
		{patch.ClassNoDiff, 1, StateRunningCI, nil},
		{patch.ClassNoDiff, 5, StateTerminal, ptr(OutcomeNoUsablePatch)},
		{patch.ClassEmpty, 2, StateRunningCI, nil},
		{patch.ClassEmpty, 5, StateTerminal, ptr(OutcomeNoUsablePatch)},
	}
	for _, c := range cases {
		tr := m.Next(StateClassifying, EventClassified{Class: c.class, Attempt: c.attempt})
		if tr.Next != c.next {
			t.Errorf("class %v attempt %d: next = %v, want %v", c.class, c.attempt, tr.Next, c.next)
		}
		if (tr.Outcome == nil) != (c.outcome == nil) {
			t.Errorf("class %v attempt %d: outcome presence mismatch", c.class, c.attempt)
			continue
		}
		if tr.Outcome != nil && *tr.Outcome != *c.outcome {
			t.Errorf("class %v attempt %d: outcome = %v, want %v", c.class, c.attempt, *tr.Outcome, *c.outcome)
		}
	}
}

func ptr(o Outcome) *Outcome { return &o }

func TestNextNoopTerminalOnFirstAttempt(t *testing.T) {
	m := Machine{MaxAttempts: 100}
	got := outcomeOf(t, m.Next(StateClassifying, EventClassified{Class: patch.ClassNoop, Attempt: 1}))
	if got != OutcomeNoopReturned {
		t.Errorf("got %v", got)
	}
}

func TestNextGuardViolation(t *testing.T) {
	m := Machine{MaxAttempts: 5}

	got := outcomeOf(t, m.Next(StateClassifying, EventGuardViolation{Protected: true, Abort: true, Attempt: 1}))
	if got != OutcomeProtectedPathViolation {
		t.Errorf("protected abort: got %v", got)
	}

	got = outcomeOf(t, m.Next(StateClassifying, EventGuardViolation{Protected: false, Abort: true, Attempt: 1}))
	if got != OutcomeNoUsablePatch {
		t.Errorf("unprotected abort: got %v", got)
	}

	tr := m.Next(StateClassifying, EventGuardViolation{Protected: true, Abort: false, Attempt: 1})
	if tr.Next != StateRunningCI || tr.Outcome != nil {
		t.Errorf("retry policy: got %+v", tr)
	}

	got = outcomeOf(t, m.Next(StateClassifying, EventGuardViolation{Protected: true, Abort: false, Attempt: 5}))
	if got != OutcomeNoUsablePatch {
		t.Errorf("retry policy at budget: got %v", got)
	}
}

func TestNextOperatorEvents(t *testing.T) {
	m := Machine{MaxAttempts: 5}

	got := outcomeOf(t, m.Next(StateClassifying, EventOperatorQuit{}))
	if got != OutcomeManualInterventionRequired {
		t.Errorf("quit: got %v", got)
	}

	tr := m.Next(StateClassifying, EventRejected{Attempt: 2})
	if tr.Next != StateRunningCI {
		t.Errorf("reject: got %+v", tr)
	}
}

func TestNextApplying(t *testing.T) {
	m := Machine{MaxAttempts: 5}

	tr := m.Next(StateApplying, EventApplied{})
	if tr.Next != StateRunningCI || tr.Outcome != nil {
		t.Errorf("applied: got %+v", tr)
	}

	tr = m.Next(StateApplying, EventApplyFailed{Attempt: 3})
	if tr.Next != StateRunningCI {
		t.Errorf("apply failed mid-budget: got %+v", tr)
	}

	got := outcomeOf(t, m.Next(StateApplying, EventApplyFailed{Attempt: 5}))
	if got != OutcomeNoUsablePatch {
		t.Errorf("apply failed at budget: got %v", got)
	}
}

func TestNextUnexpectedPairTerminates(t *testing.T) {
	m := Machine{MaxAttempts: 5}
	tr := m.Next(StateBuildingPrompt, EventCIPassed{})
	if tr.Next != StateTerminal {
		t.Errorf("got %+v", tr)
	}
}

func TestOutcomeExitCodesDistinct(t *testing.T) {
	outcomes := []Outcome{
		OutcomePassed, OutcomeMaxAttemptsExceeded, OutcomePatchServiceError,
		OutcomeNoopReturned, OutcomeNoUsablePatch,
		OutcomeManualInterventionRequired, OutcomeProtectedPathViolation,
	}
	seen := make(map[int]Outcome)
	for _, o := range outcomes {
		code := o.ExitCode()
		if prev, dup := seen[code]; dup {
			t.Errorf("exit code %d shared by %v and %v", code, prev, o)
		}
		seen[code] = o
	}
	if OutcomePassed.ExitCode() != 0 {
		t.Error("passed must map to exit 0")
	}
	for _, o := range outcomes[1:] {
		if o.ExitCode() == 0 {
			t.Errorf("%v must map to a non-zero exit code", o)
		}
	}
}
