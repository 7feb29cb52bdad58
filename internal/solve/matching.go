package solve

import (
	"context"
	"errors"
	"time"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// MatchingSolver completes drag-and-drop matching activities. Each slot is
// filled by trying candidate tiles against it until one sticks: the page
// keeps an accepted tile in the slot and bounces a rejected one back to
// the bank, so the verdict is whether the tile survives a settle period.
// A slot whose tile stuck is done for the rest of the run and its occupant
// is never offered anywhere else again.
//
// Candidates come from the bank first, then from tiles parked in slots not
// yet done, and every slot-tile pair is attempted at most once, which
// bounds the whole search by slots x tiles. A full pass that places
// nothing ends the task as NoProgress rather than spinning on a page that
// has stopped responding to drops.
//
// Tiles already sitting in slots when the solve starts are leftovers this
// run never saw graded. They are cleared through the reset control up
// front, force or not; a board that cannot be cleared only counts as
// solved if the completion marker vouches for it.
type MatchingSolver struct{}

func (s *MatchingSolver) Type() TaskType { return TaskMatching }

func (s *MatchingSolver) Solve(ctx context.Context, j *Job) (Outcome, error) {
	if outcome, done, err := j.precheck(ctx); done {
		return outcome, err
	}

	if err := s.resetIfOccupied(ctx, j); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return OutcomeStopped, err
		}
		return OutcomeSkipped, err
	}

	tried := make(map[string]map[string]bool) // slot key -> tile key -> attempted
	done := make(map[string]bool)             // slot key -> occupant verified this run

	for {
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}

		slots, err := j.Surface.Find(ctx, j.Task.Scope, j.Probes.Matching.Slots)
		if err != nil {
			return OutcomeSkipped, err
		}
		if len(slots) == 0 {
			return OutcomeSkipped, surface.ErrMissingProbe
		}

		unfilled, err := s.unfilledSlots(ctx, j, slots)
		if err != nil {
			return OutcomeSkipped, err
		}
		if len(unfilled) == 0 {
			return s.settleFullBoard(ctx, j, slots, done)
		}

		placed, attempted, err := s.pass(ctx, j, slots, unfilled, tried, done)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return OutcomeStopped, err
			}
			return OutcomeSkipped, err
		}
		if placed > 0 {
			continue
		}
		if attempted == 0 {
			j.logf("search space exhausted with %d slot(s) unfilled", len(unfilled))
			return OutcomeExhausted, nil
		}
		j.logf("full pass placed nothing, stopping")
		return OutcomeNoProgress, nil
	}
}

// settleFullBoard decides a board with every slot occupied. Slots filled by
// this run's observed placements prove themselves; anything left over is
// prior state, believed only if the completion marker vouches for it.
func (s *MatchingSolver) settleFullBoard(ctx context.Context, j *Job, slots []surface.Node, done map[string]bool) (Outcome, error) {
	unverified := 0
	for _, slot := range slots {
		if !done[slot.Key()] {
			unverified++
		}
	}
	if unverified == 0 {
		j.logf("all %d slots filled after %d attempt(s)", len(slots), j.Attempts)
		j.confirmComplete(ctx)
		return OutcomeSolved, nil
	}

	verdict, err := Observe(ctx, j.Timing.pollSpec(), j.Classifier.Predicate(&j.Task), nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return OutcomeStopped, err
		}
		return OutcomeSkipped, err
	}
	if verdict == VerdictCorrect {
		j.logf("%d pre-filled slot(s) vouched for by the completion marker", unverified)
		return OutcomeSolved, nil
	}
	j.logf("board full with %d unverified slot(s) and no way to clear them, stopping", unverified)
	return OutcomeNoProgress, nil
}

// pass tries to fill each unfilled slot once. It returns how many tiles
// stuck and how many transfers it attempted. A slot whose tile stuck is
// marked done so later passes leave its occupant alone.
func (s *MatchingSolver) pass(ctx context.Context, j *Job, all, unfilled []surface.Node, tried map[string]map[string]bool, done map[string]bool) (placed, attempted int, err error) {
	for _, slot := range unfilled {
		slotKey := slot.Key()
		if tried[slotKey] == nil {
			tried[slotKey] = make(map[string]bool)
		}

		cands, cerr := s.candidatesFor(ctx, j, all, slot, done)
		if cerr != nil {
			return placed, attempted, cerr
		}

		for _, cand := range cands {
			candKey := cand.Key()
			if tried[slotKey][candKey] {
				continue
			}
			tried[slotKey][candKey] = true

			if err := ctx.Err(); err != nil {
				return placed, attempted, err
			}
			if terr := j.Surface.Transfer(ctx, cand, slot); terr != nil {
				if errors.Is(terr, surface.ErrStale) {
					continue
				}
				return placed, attempted, terr
			}
			attempted++
			j.Attempts++

			verdict, oerr := s.observeSlot(ctx, j, slot, candKey)
			if oerr != nil {
				return placed, attempted, oerr
			}
			if verdict == VerdictCorrect {
				j.logf("tile %s stuck in slot %s", candKey, slotKey)
				done[slotKey] = true
				placed++
				break
			}
			j.logf("tile %s bounced from slot %s", candKey, slotKey)
		}
	}
	return placed, attempted, nil
}

// candidatesFor lists tiles to try against slot: every bank tile first,
// then tiles parked in other slots that are not done. Occupants of done
// slots stay where they are.
func (s *MatchingSolver) candidatesFor(ctx context.Context, j *Job, all []surface.Node, slot surface.Node, done map[string]bool) ([]surface.Node, error) {
	bank, err := j.Surface.Find(ctx, j.Task.Scope, j.Probes.Matching.Bank)
	if err != nil {
		return nil, err
	}

	var cands []surface.Node
	seen := make(map[string]bool)
	for _, tile := range bank {
		if inSlot, ierr := s.tileInAnySlot(ctx, j, all, tile.Key()); ierr == nil && inSlot {
			continue
		}
		if seen[tile.Key()] {
			continue
		}
		seen[tile.Key()] = true
		cands = append(cands, tile)
	}

	for _, other := range all {
		if other.Key() == slot.Key() || done[other.Key()] {
			continue
		}
		occupants, oerr := j.Surface.Find(ctx, other, j.Probes.Matching.Occupants)
		if oerr != nil {
			if errors.Is(oerr, surface.ErrStale) {
				continue
			}
			return nil, oerr
		}
		for _, occ := range occupants {
			if seen[occ.Key()] {
				continue
			}
			seen[occ.Key()] = true
			cands = append(cands, occ)
		}
	}
	return cands, nil
}

// tileInAnySlot reports whether the tile key is currently an occupant of
// some slot. Bank probes on the real page can match parked tiles too, so
// the bank list is filtered through this.
func (s *MatchingSolver) tileInAnySlot(ctx context.Context, j *Job, slots []surface.Node, tileKey string) (bool, error) {
	for _, slot := range slots {
		occupants, err := j.Surface.Find(ctx, slot, j.Probes.Matching.Occupants)
		if err != nil {
			if errors.Is(err, surface.ErrStale) {
				continue
			}
			return false, err
		}
		for _, occ := range occupants {
			if occ.Key() == tileKey {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *MatchingSolver) unfilledSlots(ctx context.Context, j *Job, slots []surface.Node) ([]surface.Node, error) {
	var unfilled []surface.Node
	for _, slot := range slots {
		occupants, err := j.Surface.Find(ctx, slot, j.Probes.Matching.Occupants)
		if err != nil {
			if errors.Is(err, surface.ErrStale) {
				continue
			}
			return nil, err
		}
		if len(occupants) == 0 {
			unfilled = append(unfilled, slot)
		}
	}
	return unfilled, nil
}

// observeSlot waits out the bounce animation and reports whether the tile
// is still in the slot. Correct means it stuck; a re-emptied slot is the
// rejection signal.
func (s *MatchingSolver) observeSlot(ctx context.Context, j *Job, slot surface.Node, tileKey string) (Verdict, error) {
	settle := j.Timing.MatchSettle
	if settle <= 0 {
		settle = 600 * time.Millisecond
	}
	spec := PollSpec{
		Interval:     j.Timing.PollInterval,
		Timeout:      j.Timing.VerifyTimeout,
		ConfirmDelay: settle,
	}
	stuck := func(ctx context.Context) (bool, error) {
		occupants, err := j.Surface.Find(ctx, slot, j.Probes.Matching.Occupants)
		if err != nil {
			return false, err
		}
		for _, occ := range occupants {
			if occ.Key() == tileKey {
				return true, nil
			}
		}
		return false, nil
	}
	bounced := func(ctx context.Context) (bool, error) {
		occupants, err := j.Surface.Find(ctx, slot, j.Probes.Matching.Occupants)
		if err != nil {
			return false, err
		}
		return len(occupants) == 0, nil
	}
	return Observe(ctx, spec, stuck, bounced)
}

// resetIfOccupied presses the reset control once when any slot already
// holds a tile, clearing prior state before the fresh solve. It never
// presses twice in one task; a page without the control is solved in
// place. Cleared tiles animate back to the bank, so the same settle as a
// bounce applies before the first pass.
func (s *MatchingSolver) resetIfOccupied(ctx context.Context, j *Job) error {
	slots, err := j.Surface.Find(ctx, j.Task.Scope, j.Probes.Matching.Slots)
	if err != nil {
		return err
	}
	occupied := false
	for _, slot := range slots {
		occupants, oerr := j.Surface.Find(ctx, slot, j.Probes.Matching.Occupants)
		if oerr != nil {
			if errors.Is(oerr, surface.ErrStale) {
				continue
			}
			return oerr
		}
		if len(occupants) > 0 {
			occupied = true
			break
		}
	}
	if !occupied {
		return nil
	}

	reset, err := surface.First(ctx, j.Surface, j.Task.Scope, j.Probes.Matching.Reset)
	if err != nil {
		if errors.Is(err, surface.ErrMissingProbe) {
			j.logf("slots occupied but no reset control, solving in place")
			return nil
		}
		return err
	}
	if err := j.Surface.Activate(ctx, reset); err != nil {
		return err
	}
	j.logf("reset pressed to clear occupied slots")
	settle := j.Timing.MatchSettle
	if settle <= 0 {
		settle = 600 * time.Millisecond
	}
	return waitFor(ctx, settle)
}
