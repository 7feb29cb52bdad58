// Package solve implements the zyBooks participation-activity engine: it
// discovers the exercises on a lesson surface, classifies their completion
// state, and drives per-type solvers through a shared act-observe-verify
// protocol until each exercise is complete or proven unsolvable.
package solve

import (
	"context"
	"fmt"
	"strings"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// TaskType identifies which solving strategy an exercise needs. Dispatch is
// by this enum, never by matching selector strings at solve time.
type TaskType int

const (
	TaskRadio TaskType = iota
	TaskClickable
	TaskShortAnswer
	TaskAnimation
	TaskMatching

	// TaskNone tags run-level log entries that belong to no single task.
	TaskNone TaskType = -1
)

// taskTypes lists every type in solve order. Scans and runners iterate
// this, so adding a type here is enough to include it everywhere.
var taskTypes = []TaskType{TaskRadio, TaskClickable, TaskShortAnswer, TaskAnimation, TaskMatching}

// String returns the lowercase name used in logs, flags, and config.
func (t TaskType) String() string {
	switch t {
	case TaskRadio:
		return "radio"
	case TaskClickable:
		return "clickable"
	case TaskShortAnswer:
		return "shortanswer"
	case TaskAnimation:
		return "animation"
	case TaskMatching:
		return "matching"
	case TaskNone:
		return "run"
	default:
		return fmt.Sprintf("tasktype(%d)", int(t))
	}
}

// ParseTaskType maps a name back to its TaskType.
func ParseTaskType(s string) (TaskType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "radio":
		return TaskRadio, nil
	case "clickable":
		return TaskClickable, nil
	case "shortanswer", "short-answer", "short_answer":
		return TaskShortAnswer, nil
	case "animation":
		return TaskAnimation, nil
	case "matching":
		return TaskMatching, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTaskType, s)
	}
}

// scopeProbe returns the probe that locates instances of this type.
func scopeProbe(ps surface.ProbeSet, t TaskType) string {
	switch t {
	case TaskRadio:
		return ps.Radio.Scope
	case TaskClickable:
		return ps.Clickable.Scope
	case TaskShortAnswer:
		return ps.ShortAnswer.Scope
	case TaskAnimation:
		return ps.Animation.Scope
	case TaskMatching:
		return ps.Matching.Scope
	default:
		return ""
	}
}

// TaskInstance is one discovered exercise: its type, the scope node every
// probe for it is evaluated under, and the completion marker when the
// scope carries one. Key de-duplicates instances across overlapping
// probes.
type TaskInstance struct {
	Type   TaskType
	Key    string
	Scope  surface.Node
	Marker surface.Node
}

// Scan discovers every task instance on the surface, in type order and
// document order within a type. Instances whose scope key was already
// seen are dropped, so a scope matched by more than one probe is solved
// once, by the first type that claimed it.
func Scan(ctx context.Context, sfc surface.Surface, ps surface.ProbeSet) ([]TaskInstance, error) {
	seen := make(map[string]bool)
	var tasks []TaskInstance

	for _, t := range taskTypes {
		probe := scopeProbe(ps, t)
		scopes, err := sfc.Find(ctx, nil, probe)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t, err)
		}
		for _, scope := range scopes {
			key := scope.Key()
			if seen[key] {
				continue
			}
			seen[key] = true

			task := TaskInstance{Type: t, Key: key, Scope: scope}
			markers, err := sfc.Find(ctx, scope, ps.Chevron.Marker)
			if err == nil && len(markers) > 0 {
				task.Marker = markers[0]
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}
