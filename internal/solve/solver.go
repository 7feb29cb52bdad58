package solve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/logging"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// Timing bounds every wait the engine performs. Zero values fall back to
// the defaults at the point of use, so a partially filled struct is safe.
type Timing struct {
	// PaceMin and PaceMax bound the random think-time inserted between
	// consecutive tasks of the same type.
	PaceMin time.Duration
	PaceMax time.Duration

	// PollInterval, ConfirmDelay and VerifyTimeout parameterize every
	// feedback observation.
	PollInterval  time.Duration
	ConfirmDelay  time.Duration
	VerifyTimeout time.Duration

	// RevealSettle separates the two reveal activations a short-answer
	// question requires before it shows its answer.
	RevealSettle time.Duration

	// MatchSettle is how long a dropped tile must stay in its slot before
	// the placement counts. Rejected tiles animate back to the bank, so
	// judging too early reads a bounce as a success.
	MatchSettle time.Duration

	// AnimationPoll is the cadence for watching playback, AnimationMaxSteps
	// caps resume presses, and AnimationCeiling caps wall time per player.
	AnimationPoll     time.Duration
	AnimationMaxSteps int
	AnimationCeiling  time.Duration
}

// DefaultTiming returns the timings used against the real site.
func DefaultTiming() Timing {
	return Timing{
		PaceMin:           500 * time.Millisecond,
		PaceMax:           1500 * time.Millisecond,
		PollInterval:      250 * time.Millisecond,
		ConfirmDelay:      250 * time.Millisecond,
		VerifyTimeout:     6 * time.Second,
		RevealSettle:      400 * time.Millisecond,
		MatchSettle:       600 * time.Millisecond,
		AnimationPoll:     500 * time.Millisecond,
		AnimationMaxSteps: 60,
		AnimationCeiling:  3 * time.Minute,
	}
}

func (t Timing) pollSpec() PollSpec {
	return PollSpec{
		Interval:     t.PollInterval,
		Timeout:      t.VerifyTimeout,
		ConfirmDelay: t.ConfirmDelay,
	}
}

// Solver completes one kind of task. Implementations hold no per-run
// state; everything they need arrives in the Job.
type Solver interface {
	Type() TaskType
	Solve(ctx context.Context, job *Job) (Outcome, error)
}

// Job carries one task instance plus the shared machinery a solver needs
// to act on it.
type Job struct {
	Surface    surface.Surface
	Probes     surface.ProbeSet
	Timing     Timing
	Classifier *Classifier
	Log        *RunLog
	RunID      string
	Force      bool
	Task       TaskInstance

	// Attempts counts the inputs this job has simulated. Solvers increment
	// it; the runner copies it into the Result.
	Attempts int
}

// logf records a line against this job's task in the run log and the
// category log for its type.
func (j *Job) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if j.Log != nil {
		j.Log.Append(Entry{RunID: j.RunID, TaskKey: j.Task.Key, TaskType: j.Task.Type, Message: msg})
	}
	logging.Get(categoryFor(j.Task.Type)).Info("%s: %s", j.Task.Key, msg)
}

// precheck consults the classifier before any input is simulated. The
// returned bool says the task is settled and solving should stop. Force
// mode never short-circuits here.
func (j *Job) precheck(ctx context.Context) (Outcome, bool, error) {
	if j.Force {
		return 0, false, nil
	}
	done, err := j.Classifier.Complete(ctx, &j.Task)
	if err != nil {
		if errors.Is(err, surface.ErrMissingProbe) {
			return 0, false, nil
		}
		return OutcomeSkipped, true, err
	}
	if done {
		j.logf("already complete, skipping")
		return OutcomeAlreadyComplete, true, nil
	}
	return 0, false, nil
}

// observeFeedback runs the standard observation for an attempt under
// scope: correct is the visible correct-feedback block or a filled
// chevron, incorrect is the visible incorrect-feedback block.
func (j *Job) observeFeedback(ctx context.Context, scope surface.Node) (Verdict, error) {
	isCorrect := Any(
		ProbeVisiblePredicate(j.Surface, scope, j.Probes.Feedback.Correct),
		j.Classifier.Predicate(&j.Task),
	)
	isIncorrect := ProbeVisiblePredicate(j.Surface, scope, j.Probes.Feedback.Incorrect)
	return Observe(ctx, j.Timing.pollSpec(), isCorrect, isIncorrect)
}

// confirmComplete waits briefly for the chevron to fill after a correct
// verdict. Verification already double-confirmed the feedback, so a
// missing or lagging chevron downgrades nothing; it is only logged.
func (j *Job) confirmComplete(ctx context.Context) {
	spec := PollSpec{
		Interval:     j.Timing.PollInterval,
		Timeout:      j.Timing.VerifyTimeout / 2,
		ConfirmDelay: time.Millisecond,
	}
	verdict, err := Observe(ctx, spec, j.Classifier.Predicate(&j.Task), nil)
	if err != nil || verdict != VerdictCorrect {
		j.logf("chevron did not confirm completion (verdict=%s err=%v)", verdict, err)
	}
}

// Registry maps task types to solvers.
type Registry struct {
	solvers map[TaskType]Solver
}

// NewRegistry creates a registry holding the given solvers.
func NewRegistry(solvers ...Solver) *Registry {
	r := &Registry{solvers: make(map[TaskType]Solver)}
	for _, s := range solvers {
		r.Register(s)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in solver.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&RadioSolver{},
		&ClickableSolver{},
		&ShortAnswerSolver{},
		&AnimationSolver{},
		&MatchingSolver{},
	)
}

// Register adds or replaces the solver for its type.
func (r *Registry) Register(s Solver) {
	r.solvers[s.Type()] = s
}

// Lookup returns the solver for t or ErrUnknownTaskType.
func (r *Registry) Lookup(t TaskType) (Solver, error) {
	s, ok := r.solvers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, t)
	}
	return s, nil
}

func categoryFor(t TaskType) logging.Category {
	switch t {
	case TaskRadio:
		return logging.CategoryRadio
	case TaskClickable:
		return logging.CategoryClickable
	case TaskShortAnswer:
		return logging.CategoryShortAnswer
	case TaskAnimation:
		return logging.CategoryAnimation
	case TaskMatching:
		return logging.CategoryMatching
	default:
		return logging.CategoryRun
	}
}
