package solve

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of one task instance.
type Outcome int

const (
	// OutcomeSolved means the task reached completion during this run.
	OutcomeSolved Outcome = iota
	// OutcomeAlreadyComplete means the completion marker was set before
	// any input was simulated, so the task was skipped.
	OutcomeAlreadyComplete
	// OutcomeExhausted means every candidate was tried and judged
	// incorrect without the task completing.
	OutcomeExhausted
	// OutcomeNoProgress means a full search pass changed nothing, so
	// continuing would only repeat it.
	OutcomeNoProgress
	// OutcomeTimedOut means feedback or completion never arrived within
	// the configured ceilings.
	OutcomeTimedOut
	// OutcomeStopped means the run was cancelled while this task was in
	// flight.
	OutcomeStopped
	// OutcomeSkipped means the task could not be attempted, typically
	// because expected structure was missing; Result.Err says why.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSolved:
		return "solved"
	case OutcomeAlreadyComplete:
		return "already-complete"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeNoProgress:
		return "no-progress"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeStopped:
		return "stopped"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Success reports whether the task ended complete.
func (o Outcome) Success() bool {
	return o == OutcomeSolved || o == OutcomeAlreadyComplete
}

// Result records how one task instance ended.
type Result struct {
	Task     TaskInstance
	Outcome  Outcome
	Attempts int
	Elapsed  time.Duration
	Err      error
}
