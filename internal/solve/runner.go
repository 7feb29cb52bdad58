package solve

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/logging"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// RunnerConfig configures one Runner.
type RunnerConfig struct {
	Probes surface.ProbeSet
	Timing Timing
	// Force re-solves tasks whose chevron is already filled.
	Force bool
	// Types restricts the run to the listed task types; empty runs all.
	Types []TaskType
	// Registry defaults to DefaultRegistry when nil.
	Registry *Registry
	// LogBuffer sizes the run log event channel.
	LogBuffer int
}

// Runner drives one solving run: scan the surface, de-duplicate, then
// solve. Tasks of the same type run strictly one after another with a
// random pause between them, while different types proceed concurrently,
// each type in its own goroutine. A failed or panicking task never takes
// the run down; it becomes a Result and the run moves on.
type Runner struct {
	sfc      surface.Surface
	registry *Registry
	timing   Timing
	force    bool
	types    []TaskType
	log      *RunLog

	mu      sync.RWMutex
	probes  surface.ProbeSet
	cancel  context.CancelFunc
	running bool
	runID   string
	results []Result
}

// NewRunner creates a runner over sfc.
func NewRunner(sfc surface.Surface, cfg RunnerConfig) *Runner {
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Runner{
		sfc:      sfc,
		registry: registry,
		timing:   cfg.Timing,
		force:    cfg.Force,
		types:    cfg.Types,
		probes:   cfg.Probes,
		log:      NewRunLog(cfg.LogBuffer),
	}
}

// Log returns the run log.
func (r *Runner) Log() *RunLog { return r.log }

// RunID returns the id of the current or most recent run.
func (r *Runner) RunID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runID
}

// SetProbes swaps the probe set. Tasks that start after the swap use the
// new set; the probe watcher calls this on hot reload.
func (r *Runner) SetProbes(ps surface.ProbeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = ps
}

// Probes returns the probe set currently in force.
func (r *Runner) Probes() surface.ProbeSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.probes
}

// Results returns a copy of the results collected so far.
func (r *Runner) Results() []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Stop cancels the current run. In-flight observations return promptly
// with Stopped outcomes; no new input is simulated afterward.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Run executes one full solving pass and blocks until every task reached
// a terminal state. The returned error is the scan failure or the
// cancellation cause; per-task errors live in the results.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, errors.New("run already in progress")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.runID = uuid.NewString()
	r.results = nil
	runID := r.runID
	probes := r.probes
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
		r.log.Close()
	}()

	tasks, err := Scan(runCtx, r.sfc, probes)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	tasks = r.filterTypes(tasks)

	r.logRun(runID, "run started: %d task(s) after de-duplication", len(tasks))
	logging.Run("run %s: %d task(s)", runID, len(tasks))
	logging.AuditRunStarted(runID, len(tasks))

	groups := groupByType(tasks)
	eg, gctx := errgroup.WithContext(runCtx)
	for _, group := range groups {
		group := group
		eg.Go(func() error {
			r.solveGroup(gctx, runID, group)
			// Task failures are isolated into results, never group errors.
			return nil
		})
	}
	_ = eg.Wait()

	results := r.Results()
	sort.SliceStable(results, func(i, k int) bool {
		if results[i].Task.Type != results[k].Task.Type {
			return results[i].Task.Type < results[k].Task.Type
		}
		return results[i].Task.Key < results[k].Task.Key
	})

	counts := CountOutcomes(results)
	r.logRun(runID, "run finished: %s", formatCounts(counts))
	logging.Run("run %s finished: %s", runID, formatCounts(counts))
	logging.AuditRunFinished(runID, formatCounts(counts))

	return results, runCtx.Err()
}

// solveGroup works through one type's tasks sequentially with pacing
// jitter between them.
func (r *Runner) solveGroup(ctx context.Context, runID string, tasks []TaskInstance) {
	for i, task := range tasks {
		if ctx.Err() != nil {
			r.addResult(Result{Task: task, Outcome: OutcomeStopped, Err: ctx.Err()})
			continue
		}
		if i > 0 {
			if err := r.pace(ctx); err != nil {
				r.addResult(Result{Task: task, Outcome: OutcomeStopped, Err: err})
				continue
			}
		}
		r.addResult(r.solveOne(ctx, runID, task))
	}
}

// solveOne runs a single task to a terminal state, converting panics and
// cancellation into outcomes.
func (r *Runner) solveOne(ctx context.Context, runID string, task TaskInstance) (res Result) {
	start := time.Now()
	job := &Job{
		Surface:    r.sfc,
		Probes:     r.Probes(),
		Timing:     r.timing,
		Classifier: NewClassifier(r.sfc, r.Probes().Chevron),
		Log:        r.log,
		RunID:      runID,
		Force:      r.force,
		Task:       task,
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = Result{
				Task:    task,
				Outcome: OutcomeSkipped,
				Err:     fmt.Errorf("solver panic: %v", rec),
			}
			logging.Get(categoryFor(task.Type)).Error("%s: solver panic: %v", task.Key, rec)
		}
		res.Attempts = job.Attempts
		res.Elapsed = time.Since(start)
		r.log.Append(Entry{
			RunID:    runID,
			TaskKey:  task.Key,
			TaskType: task.Type,
			Message:  fmt.Sprintf("outcome=%s attempts=%d err=%v", res.Outcome, res.Attempts, res.Err),
		})
		errMsg := ""
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
		logging.AuditTaskResulted(runID, task.Key, task.Type.String(), res.Outcome.String(),
			res.Outcome.Success(), res.Attempts, res.Elapsed, errMsg)
	}()

	solver, err := r.registry.Lookup(task.Type)
	if err != nil {
		return Result{Task: task, Outcome: OutcomeSkipped, Err: err}
	}

	outcome, err := solver.Solve(ctx, job)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		outcome = OutcomeStopped
	}
	return Result{Task: task, Outcome: outcome, Err: err}
}

// pace sleeps a uniformly random duration between PaceMin and PaceMax.
func (r *Runner) pace(ctx context.Context) error {
	min, max := r.timing.PaceMin, r.timing.PaceMax
	if min < 0 {
		min = 0
	}
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)+1))
	}
	return waitFor(ctx, d)
}

func (r *Runner) addResult(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *Runner) filterTypes(tasks []TaskInstance) []TaskInstance {
	if len(r.types) == 0 {
		return tasks
	}
	allowed := make(map[TaskType]bool, len(r.types))
	for _, t := range r.types {
		allowed[t] = true
	}
	var out []TaskInstance
	for _, task := range tasks {
		if allowed[task.Type] {
			out = append(out, task)
		}
	}
	return out
}

func (r *Runner) logRun(runID, format string, args ...interface{}) {
	r.log.Append(Entry{
		RunID:    runID,
		TaskKey:  "-",
		TaskType: TaskNone,
		Message:  fmt.Sprintf(format, args...),
	})
}

// groupByType splits tasks into per-type groups, preserving both the type
// order and the document order inside each group.
func groupByType(tasks []TaskInstance) [][]TaskInstance {
	byType := make(map[TaskType][]TaskInstance)
	for _, task := range tasks {
		byType[task.Type] = append(byType[task.Type], task)
	}
	var groups [][]TaskInstance
	for _, t := range taskTypes {
		if group, ok := byType[t]; ok {
			groups = append(groups, group)
		}
	}
	return groups
}

// CountOutcomes tallies results by outcome.
func CountOutcomes(results []Result) map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, res := range results {
		counts[res.Outcome]++
	}
	return counts
}

func formatCounts(counts map[Outcome]int) string {
	order := []Outcome{
		OutcomeSolved, OutcomeAlreadyComplete, OutcomeExhausted,
		OutcomeNoProgress, OutcomeTimedOut, OutcomeStopped, OutcomeSkipped,
	}
	out := ""
	for _, o := range order {
		if counts[o] == 0 {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", o, counts[o])
	}
	if out == "" {
		return "no tasks"
	}
	return out
}
