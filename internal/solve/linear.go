package solve

import (
	"context"
	"errors"
	"fmt"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// Candidate is one selectable answer inside a task scope. Attempted
// candidates are tracked per task by linearScan, not on the struct,
// since candidates are re-discovered before every attempt.
type Candidate struct {
	Label string
	Node  surface.Node
}

// staleBudget caps consecutive stale recoveries before a task is given up
// as Skipped. Re-scans normally succeed on the first retry; repeated
// failure means the scope itself is gone.
const staleBudget = 3

// linearScan drives the answer-until-correct strategy shared by radio and
// clickable tasks: activate each untried candidate in document order,
// observe the verdict, stop on the first confirmed correct. Candidates are
// re-discovered before every attempt so a re-render between attempts costs
// a retry, not the task.
func linearScan(ctx context.Context, j *Job, candidatesProbe string) (Outcome, error) {
	if outcome, done, err := j.precheck(ctx); done {
		return outcome, err
	}

	tried := make(map[string]bool)
	pendingSeen := false
	staleLeft := staleBudget

	for {
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}

		cands, err := findCandidates(ctx, j, candidatesProbe)
		if err != nil {
			if errors.Is(err, surface.ErrStale) && staleLeft > 0 {
				staleLeft--
				continue
			}
			return OutcomeSkipped, err
		}
		if len(cands) == 0 {
			return OutcomeSkipped, fmt.Errorf("%w: no candidates under %s task", surface.ErrMissingProbe, j.Task.Type)
		}

		next := pickUntried(cands, tried)
		if next == nil {
			if pendingSeen {
				return OutcomeTimedOut, nil
			}
			return OutcomeExhausted, nil
		}

		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}
		if err := j.Surface.Activate(ctx, next.Node); err != nil {
			if errors.Is(err, surface.ErrStale) && staleLeft > 0 {
				staleLeft--
				continue
			}
			return OutcomeSkipped, err
		}
		j.Attempts++
		staleLeft = staleBudget

		verdict, err := j.observeFeedback(ctx, j.Task.Scope)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return OutcomeStopped, err
			}
			return OutcomeSkipped, err
		}

		switch verdict {
		case VerdictCorrect:
			j.logf("candidate %q correct after %d attempt(s)", next.Label, j.Attempts)
			j.confirmComplete(ctx)
			return OutcomeSolved, nil
		case VerdictIncorrect:
			j.logf("candidate %q incorrect", next.Label)
			tried[next.Node.Key()] = true
		default:
			j.logf("candidate %q got no feedback, moving on", next.Label)
			tried[next.Node.Key()] = true
			pendingSeen = true
		}
	}
}

func findCandidates(ctx context.Context, j *Job, probe string) ([]Candidate, error) {
	nodes, err := j.Surface.Find(ctx, j.Task.Scope, probe)
	if err != nil {
		return nil, err
	}
	cands := make([]Candidate, 0, len(nodes))
	for _, n := range nodes {
		label, _ := n.Text(ctx)
		cands = append(cands, Candidate{Label: label, Node: n})
	}
	return cands, nil
}

func pickUntried(cands []Candidate, tried map[string]bool) *Candidate {
	for i := range cands {
		if !tried[cands[i].Node.Key()] {
			return &cands[i]
		}
	}
	return nil
}
