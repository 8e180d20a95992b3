package loop

import "github.com/remedyproject/remedy/internal/patch"

// State is a node in the repair loop's state machine.
type State int

const (
	StateRunningCI State = iota
	StateBuildingPrompt
	StateAwaitingPatch
	StateClassifying
	StateApplying
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateRunningCI:
		return "running_ci"
	case StateBuildingPrompt:
		return "building_prompt"
	case StateAwaitingPatch:
		return "awaiting_patch"
	case StateClassifying:
		return "classifying"
	case StateApplying:
		return "applying"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Event is something that happened during an attempt. Events carry the
// attempt number where the transition depends on the budget.
type Event interface{ event() }

type (
	// EventCIPassed fires when the CI command exits zero.
	EventCIPassed struct{}
	// EventCIFailed fires when the CI command exits non-zero or times out.
	EventCIFailed struct{ Attempt int }
	// EventPromptBuilt fires once the failure prompt is assembled.
	EventPromptBuilt struct{}
	// EventServiceFailed fires when invoking the patch service itself
	// fails. Fatal, regardless of remaining budget.
	EventServiceFailed struct{}
	// EventClassified fires once a raw response has been classified.
	EventClassified struct {
		Class   patch.Classification
		Attempt int
	}
	// EventGuardViolation fires when a usable diff breaks a safety rule.
	EventGuardViolation struct {
		Protected bool
		Abort     bool
		Attempt   int
	}
	// EventRejected fires when the operator declines the patch, or an
	// identical patch was already tried. Retryable.
	EventRejected struct{ Attempt int }
	// EventOperatorQuit fires when the operator stops the run.
	EventOperatorQuit struct{}
	// EventApplied fires when the diff modified the working tree, or was
	// already present in it.
	EventApplied struct{}
	// EventApplyFailed fires when every apply strategy rejected the diff.
	EventApplyFailed struct{ Attempt int }
)

func (EventCIPassed) event()       {}
func (EventCIFailed) event()       {}
func (EventPromptBuilt) event()    {}
func (EventServiceFailed) event()  {}
func (EventClassified) event()     {}
func (EventGuardViolation) event() {}
func (EventRejected) event()       {}
func (EventOperatorQuit) event()   {}
func (EventApplied) event()        {}
func (EventApplyFailed) event()    {}

// Transition is the result of feeding an event to the machine. Outcome is
// set only when Next is StateTerminal.
type Transition struct {
	Next    State
	Outcome *Outcome
}

func terminal(o Outcome) Transition {
	return Transition{Next: StateTerminal, Outcome: &o}
}

// Machine is the pure transition function of the repair loop. It holds only
// the attempt budget; all other inputs arrive in events, so transitions are
// deterministic and testable without subprocesses.
type Machine struct {
	MaxAttempts int
}

// Next computes the successor state for an event in a state. Unexpected
// (state, event) pairs terminate with OutcomeNoUsablePatch rather than
// looping in an undefined state.
//
// Budget semantics: the attempt counter increments when a patch is applied
// or a retryable failure sends the loop back to CI. A CI failure seen at
// attempt > MaxAttempts exhausts the budget without another service call;
// a retryable failure at attempt >= MaxAttempts is the final word on the
// last attempt's patch.
func (m Machine) Next(s State, e Event) Transition {
	switch s {
	case StateRunningCI:
		switch ev := e.(type) {
		case EventCIPassed:
			return terminal(OutcomePassed)
		case EventCIFailed:
			if ev.Attempt > m.MaxAttempts {
				return terminal(OutcomeMaxAttemptsExceeded)
			}
			return Transition{Next: StateBuildingPrompt}
		}

	case StateBuildingPrompt:
		if _, ok := e.(EventPromptBuilt); ok {
			return Transition{Next: StateAwaitingPatch}
		}

	case StateAwaitingPatch:
		switch e.(type) {
		case EventServiceFailed:
			return terminal(OutcomePatchServiceError)
		case EventClassified:
			return Transition{Next: StateClassifying}
		}

	case StateClassifying:
		switch ev := e.(type) {
		case EventClassified:
			switch ev.Class {
			case patch.ClassNoop:
				return terminal(OutcomeNoopReturned)
			case patch.ClassRequiresManual:
				return terminal(OutcomeManualInterventionRequired)
			case patch.ClassEmpty, patch.ClassNoDiff:
				return m.retryOrGiveUp(ev.Attempt)
			case patch.ClassSuccess:
				return Transition{Next: StateApplying}
			}
		case EventGuardViolation:
			if ev.Abort {
				if ev.Protected {
					return terminal(OutcomeProtectedPathViolation)
				}
				return terminal(OutcomeNoUsablePatch)
			}
			return m.retryOrGiveUp(ev.Attempt)
		case EventRejected:
			return m.retryOrGiveUp(ev.Attempt)
		case EventOperatorQuit:
			return terminal(OutcomeManualInterventionRequired)
		}

	case StateApplying:
		switch ev := e.(type) {
		case EventApplied:
			return Transition{Next: StateRunningCI}
		case EventApplyFailed:
			return m.retryOrGiveUp(ev.Attempt)
		}

	case StateTerminal:
		// No transitions out of terminal.
	}
	return terminal(OutcomeNoUsablePatch)
}

func (m Machine) retryOrGiveUp(attempt int) Transition {
	if attempt >= m.MaxAttempts {
		return terminal(OutcomeNoUsablePatch)
	}
	return Transition{Next: StateRunningCI}
}
