package solve

import (
	"context"
	"errors"
	"time"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// Verdict is the observed result of one simulated attempt.
type Verdict int

const (
	// VerdictPending means no feedback arrived within the observation
	// budget. It is a normal state, not an error.
	VerdictPending Verdict = iota
	VerdictCorrect
	VerdictIncorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictIncorrect:
		return "incorrect"
	default:
		return "pending"
	}
}

// Predicate samples one boolean signal from the surface. A wrapped
// surface.ErrStale means the signal could not be read this instant and the
// observer treats it as absent rather than failing the observation.
type Predicate func(ctx context.Context) (bool, error)

// PollSpec bounds one observation.
type PollSpec struct {
	// Interval is the poll cadence.
	Interval time.Duration
	// Timeout is the total budget before the observation yields Pending.
	Timeout time.Duration
	// ConfirmDelay is how long a positive signal must survive before it is
	// believed. zyBooks briefly flashes state while re-rendering feedback,
	// so a single positive sample is not proof. Values below Interval are
	// raised to it.
	ConfirmDelay time.Duration
}

func (s PollSpec) withDefaults() PollSpec {
	if s.Interval <= 0 {
		s.Interval = 100 * time.Millisecond
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Second
	}
	if s.ConfirmDelay < s.Interval {
		// The re-sample must land at least one full interval after the
		// sighting; any closer and a transient flash confirms itself.
		s.ConfirmDelay = s.Interval
	}
	return s
}

// Observe polls the two verdict signals until one resolves or the budget
// runs out. Every solver verifies through this one function so all task
// types share identical feedback semantics:
//
//   - a negative signal is final the first time it is seen
//   - a positive signal must still hold after ConfirmDelay, at least one
//     full Interval later, otherwise the sighting is discarded and polling
//     continues
//   - after Timeout with neither, the verdict is Pending with a nil error
//
// Cancellation surfaces as ctx.Err with a Pending verdict.
func Observe(ctx context.Context, spec PollSpec, isCorrect, isIncorrect Predicate) (Verdict, error) {
	spec = spec.withDefaults()
	deadline := time.Now().Add(spec.Timeout)

	for {
		if err := ctx.Err(); err != nil {
			return VerdictPending, err
		}

		correct, err := sample(ctx, isCorrect)
		if err != nil {
			return VerdictPending, err
		}
		if correct {
			if err := waitFor(ctx, spec.ConfirmDelay); err != nil {
				return VerdictPending, err
			}
			confirmed, err := sample(ctx, isCorrect)
			if err != nil {
				return VerdictPending, err
			}
			if confirmed {
				return VerdictCorrect, nil
			}
		}

		incorrect, err := sample(ctx, isIncorrect)
		if err != nil {
			return VerdictPending, err
		}
		if incorrect {
			return VerdictIncorrect, nil
		}

		if time.Now().After(deadline) {
			return VerdictPending, nil
		}
		if err := waitFor(ctx, spec.Interval); err != nil {
			return VerdictPending, err
		}
	}
}

// sample evaluates a predicate, flattening stale reads into "signal absent".
func sample(ctx context.Context, p Predicate) (bool, error) {
	if p == nil {
		return false, nil
	}
	v, err := p(ctx)
	if err != nil {
		if errors.Is(err, surface.ErrStale) {
			return false, nil
		}
		return false, err
	}
	return v, nil
}

// waitFor sleeps for d or until ctx is done.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Any combines predicates with OR, short-circuiting on the first true.
func Any(ps ...Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		for _, p := range ps {
			v, err := sample(ctx, p)
			if err != nil {
				return false, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	}
}

// ProbeVisiblePredicate is true while any node matching probe under scope
// is visible. It is the standard feedback signal builder.
func ProbeVisiblePredicate(sfc surface.Surface, scope surface.Node, probe string) Predicate {
	return func(ctx context.Context) (bool, error) {
		nodes, err := sfc.Find(ctx, scope, probe)
		if err != nil {
			return false, err
		}
		for _, n := range nodes {
			visible, err := n.Visible(ctx)
			if err != nil {
				return false, err
			}
			if visible {
				return true, nil
			}
		}
		return false, nil
	}
}
