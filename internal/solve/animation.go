package solve

import (
	"context"
	"errors"
	"time"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// AnimationSolver completes animation players. These have no answer to
// get right; they complete by being played through every segment. The
// player pauses between segments with the start control showing again, and
// marks the end of playback by rotating that control into a replay glyph.
// The solver presses through the segments at double speed and watches for
// the chevron; a finished player that never earned the chevron is replayed
// through that same control. Everything is bounded by a step ceiling and a
// wall clock ceiling so a looping player cannot hold the run hostage.
type AnimationSolver struct{}

func (s *AnimationSolver) Type() TaskType { return TaskAnimation }

func (s *AnimationSolver) Solve(ctx context.Context, j *Job) (Outcome, error) {
	if outcome, done, err := j.precheck(ctx); done {
		return outcome, err
	}

	s.enableDoubleSpeed(ctx, j)

	maxSteps := j.Timing.AnimationMaxSteps
	if maxSteps <= 0 {
		maxSteps = 60
	}
	ceiling := j.Timing.AnimationCeiling
	if ceiling <= 0 {
		ceiling = 3 * time.Minute
	}
	poll := j.Timing.AnimationPoll
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	deadline := time.Now().Add(ceiling)
	steps := 0
	finishedSeen := false

	for {
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}
		if time.Now().After(deadline) {
			j.logf("playback ceiling reached after %d step(s)", steps)
			return OutcomeTimedOut, nil
		}

		done, cerr := j.Classifier.Complete(ctx, &j.Task)
		if cerr == nil && done {
			j.logf("complete after %d step(s)", steps)
			return OutcomeSolved, nil
		}
		markerMissing := errors.Is(cerr, surface.ErrMissingProbe)
		if finishedSeen && markerMissing {
			// Playback ran to the end and there is no chevron to wait for.
			j.logf("playback finished, no completion marker present")
			return OutcomeSolved, nil
		}

		control, err := surface.First(ctx, j.Surface, j.Task.Scope, j.Probes.Animation.Start)
		if err != nil {
			if errors.Is(err, surface.ErrMissingProbe) || errors.Is(err, surface.ErrStale) {
				// Control hidden while a segment plays.
				if werr := waitFor(ctx, poll); werr != nil {
					return OutcomeStopped, werr
				}
				continue
			}
			return OutcomeSkipped, err
		}

		visible, verr := control.Visible(ctx)
		if verr != nil || !visible {
			if werr := waitFor(ctx, poll); werr != nil {
				return OutcomeStopped, werr
			}
			continue
		}

		rotated, rerr := control.HasClass(ctx, j.Probes.Animation.FinishedClass)
		if rerr == nil && rotated {
			finishedSeen = true
			if markerMissing {
				// Nothing left to wait for; the check at the top of the
				// loop settles it next time around.
				if werr := waitFor(ctx, poll); werr != nil {
					return OutcomeStopped, werr
				}
				continue
			}
			// Played to the end without the chevron filling. The rotated
			// control is the replay button now; press it and play the
			// activity through again instead of idling out the ceiling.
			j.logf("playback finished without completion, replaying")
		}

		// Paused between segments, or restarting a replay: press on.
		if steps >= maxSteps {
			j.logf("step ceiling (%d) reached without completion", maxSteps)
			return OutcomeTimedOut, nil
		}
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}
		if err := j.Surface.Activate(ctx, control); err != nil {
			if errors.Is(err, surface.ErrStale) {
				continue
			}
			return OutcomeSkipped, err
		}
		steps++
		j.Attempts++
		if werr := waitFor(ctx, poll); werr != nil {
			return OutcomeStopped, werr
		}
	}
}

// enableDoubleSpeed flips the 2x control when it is present and not
// already on. Best effort; a player without the control just runs slow.
func (s *AnimationSolver) enableDoubleSpeed(ctx context.Context, j *Job) {
	speed, err := surface.First(ctx, j.Surface, j.Task.Scope, j.Probes.Animation.DoubleSpeed)
	if err != nil {
		return
	}
	if visible, verr := speed.Visible(ctx); verr != nil || !visible {
		return
	}
	if _, checked, _ := speed.Attr(ctx, "checked"); checked {
		return
	}
	if on, cerr := speed.HasClass(ctx, "checked"); cerr == nil && on {
		return
	}
	if err := j.Surface.Activate(ctx, speed); err == nil {
		j.logf("double speed enabled")
	}
}
