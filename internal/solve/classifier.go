package solve

import (
	"context"
	"errors"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// Classifier decides whether a task instance is already complete by
// reading its chevron marker. Solvers consult it before simulating any
// input and again when confirming a solve; force mode skips the first
// consultation, never this type.
type Classifier struct {
	sfc    surface.Surface
	probes surface.ChevronProbes
}

// NewClassifier creates a classifier reading through sfc.
func NewClassifier(sfc surface.Surface, probes surface.ChevronProbes) *Classifier {
	return &Classifier{sfc: sfc, probes: probes}
}

// Complete reports whether the task's marker carries a completion class.
// A stale marker handle is re-resolved under the task scope once; a task
// with no marker at all yields surface.ErrMissingProbe, which callers
// treat as "cannot tell", not as failure.
func (c *Classifier) Complete(ctx context.Context, task *TaskInstance) (bool, error) {
	if task.Marker == nil {
		if err := c.refresh(ctx, task); err != nil {
			return false, err
		}
	}

	done, err := c.markerComplete(ctx, task.Marker)
	if errors.Is(err, surface.ErrStale) {
		if rerr := c.refresh(ctx, task); rerr != nil {
			return false, rerr
		}
		done, err = c.markerComplete(ctx, task.Marker)
	}
	return done, err
}

// Predicate adapts Complete for an observation, so "the chevron filled"
// can serve as a correctness signal.
func (c *Classifier) Predicate(task *TaskInstance) Predicate {
	return func(ctx context.Context) (bool, error) {
		done, err := c.Complete(ctx, task)
		if errors.Is(err, surface.ErrMissingProbe) {
			return false, nil
		}
		return done, err
	}
}

func (c *Classifier) markerComplete(ctx context.Context, marker surface.Node) (bool, error) {
	for _, class := range c.probes.CompleteClasses {
		has, err := marker.HasClass(ctx, class)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

func (c *Classifier) refresh(ctx context.Context, task *TaskInstance) error {
	markers, err := c.sfc.Find(ctx, task.Scope, c.probes.Marker)
	if err != nil {
		return err
	}
	if len(markers) == 0 {
		task.Marker = nil
		return surface.ErrMissingProbe
	}
	task.Marker = markers[0]
	return nil
}
