package loop

// Outcome is the single terminal value of a repair run. Exactly one is
// produced per invocation and each maps to a distinct process exit code so
// callers can branch on cause without parsing output.
type Outcome int

const (
	// OutcomePassed means CI passes and, when a coverage threshold is
	// configured, every module meets it.
	OutcomePassed Outcome = iota
	// OutcomeMaxAttemptsExceeded means the attempt budget ran out with CI
	// still failing or coverage still deficient.
	OutcomeMaxAttemptsExceeded
	// OutcomePatchServiceError means the patch service itself could not be
	// reached or exited abnormally. Distinct from an unusable response.
	OutcomePatchServiceError
	// OutcomeNoopReturned means the service asserted no change is needed
	// while CI still fails.
	OutcomeNoopReturned
	// OutcomeNoUsablePatch means the final attempt's response or patch
	// could not be turned into an applied change.
	OutcomeNoUsablePatch
	// OutcomeManualInterventionRequired means the service declared the
	// failure beyond automated repair, or the operator stopped the run.
	OutcomeManualInterventionRequired
	// OutcomeProtectedPathViolation means a proposed patch touched a
	// protected path and policy is to abort.
	OutcomeProtectedPathViolation
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeMaxAttemptsExceeded:
		return "max_attempts_exceeded"
	case OutcomePatchServiceError:
		return "patch_service_error"
	case OutcomeNoopReturned:
		return "noop_returned"
	case OutcomeNoUsablePatch:
		return "no_usable_patch"
	case OutcomeManualInterventionRequired:
		return "manual_intervention_required"
	case OutcomeProtectedPathViolation:
		return "protected_path_violation"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit code. Zero only for a pass.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomePassed:
		return 0
	case OutcomeMaxAttemptsExceeded:
		return 2
	case OutcomePatchServiceError:
		return 3
	case OutcomeNoopReturned:
		return 4
	case OutcomeNoUsablePatch:
		return 5
	case OutcomeManualInterventionRequired:
		return 6
	case OutcomeProtectedPathViolation:
		return 7
	default:
		return 1
	}
}
