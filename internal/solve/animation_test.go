package solve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface/surfacetest"
)

func animationScope(withChevron bool) *surfacetest.Fake {
	f := surfacetest.New()
	f.Add("a1", surfacetest.Sel("animation-scope"))
	if withChevron {
		f.AddUnder("a1", "a1-chevron", surfacetest.Sel("chevron"))
	}
	f.AddUnder("a1", "a1-start", surfacetest.Sel("anim-start"))
	return f
}

func TestAnimationSolver_PressesThroughSegments(t *testing.T) {
	// Three segments: the start control needs three presses, then the
	// player rotates it into the replay glyph and the chevron fills.
	f := animationScope(true)
	f.AddUnder("a1", "a1-speed", surfacetest.Sel("anim-speed"))

	presses := 0
	f.AfterAction = func(a surfacetest.Action) {
		if a.Kind != "activate" || a.Key != "a1-start" {
			return
		}
		presses++
		if presses == 3 {
			f.Node("a1-start").AddClass("rotate-180")
			f.Node("a1-chevron").AddClass("filled")
		}
	}

	j := newJob(f, TaskAnimation, "a1")
	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolved, outcome)
	assert.Equal(t, 3, j.Attempts)
	assert.Equal(t, 3, f.Activations("a1-start"))
	assert.Equal(t, 1, f.Activations("a1-speed"), "double speed flipped once up front")
}

func TestAnimationSolver_LeavesEnabledDoubleSpeedAlone(t *testing.T) {
	f := animationScope(true)
	f.AddUnder("a1", "a1-speed", surfacetest.Sel("anim-speed"), surfacetest.Attr("checked", "true"))
	f.AfterAction = func(a surfacetest.Action) {
		if a.Kind == "activate" && a.Key == "a1-start" {
			f.Node("a1-chevron").AddClass("filled")
		}
	}

	j := newJob(f, TaskAnimation, "a1")
	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolved, outcome)
	assert.Zero(t, f.Activations("a1-speed"))
}

func TestAnimationSolver_WaitsOutPlayingSegment(t *testing.T) {
	// While a segment plays, the start control is hidden. It comes back
	// rotated a beat later, with the chevron filling alongside.
	f := animationScope(true)
	f.AfterAction = func(a surfacetest.Action) {
		if a.Kind != "activate" || a.Key != "a1-start" {
			return
		}
		f.Node("a1-start").SetVisible(false)
		time.AfterFunc(15*time.Millisecond, func() {
			f.Node("a1-start").SetVisible(true)
			f.Node("a1-start").AddClass("rotate-180")
			f.Node("a1-chevron").AddClass("filled")
		})
	}

	j := newJob(f, TaskAnimation, "a1")
	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolved, outcome)
	assert.Equal(t, 1, f.Activations("a1-start"))
}

func TestAnimationSolver_FinishedPlayerWithoutMarker(t *testing.T) {
	// Already played to the end on a page that renders no chevron for
	// it. The rotated control is the only completion evidence.
	f := animationScope(false)
	f.Node("a1-start").AddClass("rotate-180")

	j := newJob(f, TaskAnimation, "a1")
	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolved, outcome)
	assert.Zero(t, f.ActionCount())
}

func TestAnimationSolver_ReplaysFinishedPlayerWithoutCredit(t *testing.T) {
	// Played to the end on an earlier visit, but the chevron never
	// filled. Idling on the rotated control would only run out the
	// clock; it has to be pressed again and the player run through.
	f := animationScope(true)
	f.Node("a1-start").AddClass("rotate-180")

	f.AfterAction = func(a surfacetest.Action) {
		if a.Kind != "activate" || a.Key != "a1-start" {
			return
		}
		if f.Activations("a1-start") == 1 {
			// First press restarts playback: the replay glyph clears.
			f.Node("a1-start").RemoveClass("rotate-180")
			return
		}
		// Second press finishes the replay and the page credits it.
		f.Node("a1-start").AddClass("rotate-180")
		f.Node("a1-chevron").AddClass("filled")
	}

	j := newJob(f, TaskAnimation, "a1")
	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolved, outcome)
	assert.Equal(t, 2, f.Activations("a1-start"))
}

func TestAnimationSolver_ReplayCountsAgainstStepCeiling(t *testing.T) {
	// A player that rotates back to the replay glyph after every press
	// and never earns the chevron must still hit the step ceiling.
	f := animationScope(true)
	f.Node("a1-start").AddClass("rotate-180")

	j := newJob(f, TaskAnimation, "a1")
	j.Timing.AnimationMaxSteps = 2

	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.Equal(t, 2, f.Activations("a1-start"))
}

func TestAnimationSolver_StepCeiling(t *testing.T) {
	// A looping player that never rotates must not be pressed forever.
	f := animationScope(true)

	j := newJob(f, TaskAnimation, "a1")
	j.Timing.AnimationMaxSteps = 3

	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.Equal(t, 3, f.Activations("a1-start"))
}

func TestAnimationSolver_WallClockCeiling(t *testing.T) {
	// Control never reappears: the solver waits, then gives up on the
	// clock without having pressed anything.
	f := animationScope(true)
	f.Node("a1-start").SetVisible(false)

	j := newJob(f, TaskAnimation, "a1")
	j.Timing.AnimationCeiling = 60 * time.Millisecond

	outcome, err := (&AnimationSolver{}).Solve(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.Zero(t, f.ActionCount())
}

func TestAnimationSolver_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := animationScope(true)
	f.AfterAction = func(a surfacetest.Action) {
		if a.Kind == "activate" && a.Key == "a1-start" {
			cancel()
		}
	}

	outcome, err := (&AnimationSolver{}).Solve(ctx, newJob(f, TaskAnimation, "a1"))
	assert.Equal(t, OutcomeStopped, outcome)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.Activations("a1-start"))
}
