package solve

import "context"

// ClickableSolver completes click-to-answer selection questions. The
// strategy is the same linear scan as radio; only the probes differ, and
// the page renders the choices as buttons instead of radio labels.
type ClickableSolver struct{}

func (s *ClickableSolver) Type() TaskType { return TaskClickable }

func (s *ClickableSolver) Solve(ctx context.Context, j *Job) (Outcome, error) {
	return linearScan(ctx, j, j.Probes.Clickable.Candidates)
}
