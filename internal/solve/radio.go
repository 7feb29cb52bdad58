package solve

import "context"

// RadioSolver completes multiple-choice questions by selecting each answer
// in turn until one is confirmed correct.
type RadioSolver struct{}

func (s *RadioSolver) Type() TaskType { return TaskRadio }

func (s *RadioSolver) Solve(ctx context.Context, j *Job) (Outcome, error) {
	return linearScan(ctx, j, j.Probes.Radio.Candidates)
}
