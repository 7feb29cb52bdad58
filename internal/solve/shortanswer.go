package solve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// ShortAnswerSolver completes free-text questions by forfeiting: it
// reveals the accepted answer through the show-answer affordance, commits
// that text into the entry field, and submits. The site only arms the
// reveal on a second press, so the gate is pressed twice with a settle
// pause between.
type ShortAnswerSolver struct{}

func (s *ShortAnswerSolver) Type() TaskType { return TaskShortAnswer }

func (s *ShortAnswerSolver) Solve(ctx context.Context, j *Job) (Outcome, error) {
	if outcome, done, err := j.precheck(ctx); done {
		return outcome, err
	}

	answers, err := s.revealAnswers(ctx, j)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return OutcomeStopped, err
		}
		return OutcomeSkipped, err
	}
	if len(answers) == 0 {
		return OutcomeSkipped, fmt.Errorf("%w: no revealed answers", surface.ErrMissingProbe)
	}

	entries, err := j.Surface.Find(ctx, j.Task.Scope, j.Probes.ShortAnswer.Entry)
	if err != nil {
		return OutcomeSkipped, err
	}
	if len(entries) == 0 {
		return OutcomeSkipped, fmt.Errorf("%w: no entry field", surface.ErrMissingProbe)
	}

	if len(entries) > 1 {
		return s.solveMultiEntry(ctx, j, entries, answers)
	}
	return s.solveSingleEntry(ctx, j, answers)
}

// solveSingleEntry tries each revealed answer in turn. Usually the first
// one lands; the rest cover questions that reveal several acceptable
// forms of which only some survive the page's exact-match check.
func (s *ShortAnswerSolver) solveSingleEntry(ctx context.Context, j *Job, answers []string) (Outcome, error) {
	pendingSeen := false
	for _, answer := range answers {
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}
		verdict, err := s.submitAnswer(ctx, j, 0, answer)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return OutcomeStopped, err
			}
			return OutcomeSkipped, err
		}
		switch verdict {
		case VerdictCorrect:
			j.logf("answer %q accepted", answer)
			j.confirmComplete(ctx)
			return OutcomeSolved, nil
		case VerdictIncorrect:
			j.logf("answer %q rejected", answer)
		default:
			j.logf("answer %q got no feedback", answer)
			pendingSeen = true
		}
	}
	if pendingSeen {
		return OutcomeTimedOut, nil
	}
	return OutcomeExhausted, nil
}

// solveMultiEntry fills every entry pairwise from the revealed answers and
// submits once. There is nothing sensible to retry with, so the single
// verdict decides the outcome.
func (s *ShortAnswerSolver) solveMultiEntry(ctx context.Context, j *Job, entries []surface.Node, answers []string) (Outcome, error) {
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}
		answer := answers[len(answers)-1]
		if i < len(answers) {
			answer = answers[i]
		}
		if err := j.Surface.CommitText(ctx, entries[i], answer); err != nil {
			return OutcomeSkipped, err
		}
	}

	verdict, err := s.pressSubmit(ctx, j)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return OutcomeStopped, err
		}
		return OutcomeSkipped, err
	}
	switch verdict {
	case VerdictCorrect:
		j.confirmComplete(ctx)
		return OutcomeSolved, nil
	case VerdictIncorrect:
		return OutcomeExhausted, nil
	default:
		return OutcomeTimedOut, nil
	}
}

func (s *ShortAnswerSolver) submitAnswer(ctx context.Context, j *Job, entryIdx int, answer string) (Verdict, error) {
	entries, err := j.Surface.Find(ctx, j.Task.Scope, j.Probes.ShortAnswer.Entry)
	if err != nil {
		return VerdictPending, err
	}
	if entryIdx >= len(entries) {
		return VerdictPending, fmt.Errorf("%w: entry field disappeared", surface.ErrMissingProbe)
	}
	if err := j.Surface.CommitText(ctx, entries[entryIdx], answer); err != nil {
		return VerdictPending, err
	}
	return s.pressSubmit(ctx, j)
}

func (s *ShortAnswerSolver) pressSubmit(ctx context.Context, j *Job) (Verdict, error) {
	submit, err := surface.First(ctx, j.Surface, j.Task.Scope, j.Probes.ShortAnswer.Submit)
	if err != nil {
		return VerdictPending, err
	}
	if err := j.Surface.Activate(ctx, submit); err != nil {
		return VerdictPending, err
	}
	j.Attempts++
	return j.observeFeedback(ctx, j.Task.Scope)
}

// revealAnswers presses the show-answer gate twice and collects the
// revealed texts. A missing gate is not fatal: some questions render with
// answers already shown, and a second solve pass arrives after the button
// was consumed.
func (s *ShortAnswerSolver) revealAnswers(ctx context.Context, j *Job) ([]string, error) {
	for press := 0; press < 2; press++ {
		reveal, err := surface.First(ctx, j.Surface, j.Task.Scope, j.Probes.ShortAnswer.Reveal)
		if err != nil {
			if errors.Is(err, surface.ErrMissingProbe) || errors.Is(err, surface.ErrStale) {
				break
			}
			return nil, err
		}
		if visible, _ := reveal.Visible(ctx); !visible {
			break
		}
		if err := j.Surface.Activate(ctx, reveal); err != nil {
			if errors.Is(err, surface.ErrStale) {
				continue
			}
			return nil, err
		}
		if err := waitFor(ctx, j.Timing.RevealSettle); err != nil {
			return nil, err
		}
	}

	// The answer block renders asynchronously after the second press.
	var answers []string
	for attempt := 0; attempt < 3; attempt++ {
		nodes, err := j.Surface.Find(ctx, j.Task.Scope, j.Probes.ShortAnswer.Answers)
		if err != nil && !errors.Is(err, surface.ErrStale) {
			return nil, err
		}
		answers = answers[:0]
		seen := make(map[string]bool)
		for _, n := range nodes {
			text, terr := n.Text(ctx)
			if terr != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true
			answers = append(answers, text)
		}
		if len(answers) > 0 {
			break
		}
		if err := waitFor(ctx, j.Timing.PollInterval); err != nil {
			return nil, err
		}
	}
	return answers, nil
}
