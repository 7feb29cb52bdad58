package solve

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface/surfacetest"
)

// scripted returns a predicate that replays vals in order, repeating the
// last value once exhausted, and counts every call through calls.
func scripted(calls *int, vals ...bool) Predicate {
	i := 0
	return func(context.Context) (bool, error) {
		*calls++
		v := vals[len(vals)-1]
		if i < len(vals) {
			v = vals[i]
			i++
		}
		return v, nil
	}
}

func steady(v bool) Predicate {
	return func(context.Context) (bool, error) { return v, nil }
}

func fastSpec() PollSpec {
	return PollSpec{
		Interval:     5 * time.Millisecond,
		Timeout:      2 * time.Second,
		ConfirmDelay: 10 * time.Millisecond,
	}
}

func TestObserve_ConfirmsCorrect(t *testing.T) {
	calls := 0
	v, err := Observe(context.Background(), fastSpec(), scripted(&calls, true), steady(false))
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, v)
	// One sighting plus the confirming re-sample.
	assert.Equal(t, 2, calls)
}

func TestObserve_DiscardsTransientCorrect(t *testing.T) {
	// The first sighting dies on re-sample. Only the later, stable
	// sighting is allowed to resolve the verdict.
	calls := 0
	seq := scripted(&calls, true, false, false, true, true)
	v, err := Observe(context.Background(), fastSpec(), seq, steady(false))
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, v)
	assert.Equal(t, 5, calls)
}

func TestObserve_IncorrectIsFinal(t *testing.T) {
	incorrectCalls := 0
	v, err := Observe(context.Background(), fastSpec(), steady(false), scripted(&incorrectCalls, true))
	require.NoError(t, err)
	assert.Equal(t, VerdictIncorrect, v)
	// No double-confirm for rejections.
	assert.Equal(t, 1, incorrectCalls)
}

func TestObserve_CorrectWinsOverIncorrect(t *testing.T) {
	incorrectCalls := 0
	v, err := Observe(context.Background(), fastSpec(), steady(true), scripted(&incorrectCalls, true))
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, v)
	assert.Equal(t, 0, incorrectCalls, "incorrect signal must not be sampled once correct confirmed")
}

func TestObserve_TimeoutIsPendingNotError(t *testing.T) {
	spec := fastSpec()
	spec.Timeout = 50 * time.Millisecond
	v, err := Observe(context.Background(), spec, steady(false), steady(false))
	assert.NoError(t, err)
	assert.Equal(t, VerdictPending, v)
}

func TestObserve_Cancellation(t *testing.T) {
	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		v, err := Observe(ctx, fastSpec(), steady(false), steady(false))
		assert.Equal(t, VerdictPending, v)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
	t.Run("explicit cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		v, err := Observe(ctx, fastSpec(), steady(false), steady(false))
		<-done
		assert.Equal(t, VerdictPending, v)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestObserve_StaleSignalReadsAsAbsent(t *testing.T) {
	// A correct probe that went stale must not abort the watch; the
	// incorrect signal still gets its turn.
	staleCorrect := func(context.Context) (bool, error) {
		return false, fmt.Errorf("feedback banner: %w", surface.ErrStale)
	}
	incorrectCalls := 0
	v, err := Observe(context.Background(), fastSpec(), staleCorrect, scripted(&incorrectCalls, false, true))
	require.NoError(t, err)
	assert.Equal(t, VerdictIncorrect, v)
	assert.Equal(t, 2, incorrectCalls)
}

func TestObserve_ProbeErrorAborts(t *testing.T) {
	boom := errors.New("evaluate failed")
	broken := func(context.Context) (bool, error) { return false, boom }
	v, err := Observe(context.Background(), fastSpec(), broken, steady(false))
	assert.Equal(t, VerdictPending, v)
	assert.ErrorIs(t, err, boom)
}

func TestObserve_SubIntervalFlashNeverConfirms(t *testing.T) {
	// A correct flash shorter than one poll interval must not confirm,
	// whatever ConfirmDelay the caller left unset.
	start := time.Now()
	flash := func(context.Context) (bool, error) {
		return time.Since(start) < 75*time.Millisecond, nil
	}
	spec := PollSpec{Interval: 100 * time.Millisecond, Timeout: 350 * time.Millisecond}
	v, err := Observe(context.Background(), spec, flash, steady(false))
	require.NoError(t, err)
	assert.Equal(t, VerdictPending, v)
}

func TestPollSpecConfirmSpansInterval(t *testing.T) {
	spec := PollSpec{Interval: 100 * time.Millisecond, ConfirmDelay: 20 * time.Millisecond}.withDefaults()
	assert.Equal(t, 100*time.Millisecond, spec.ConfirmDelay, "short confirm gaps are stretched to the interval")

	spec = PollSpec{Interval: 100 * time.Millisecond}.withDefaults()
	assert.Equal(t, 100*time.Millisecond, spec.ConfirmDelay)

	tm := DefaultTiming()
	assert.GreaterOrEqual(t, tm.ConfirmDelay, tm.PollInterval)
}

func TestAny(t *testing.T) {
	t.Run("short-circuits on first hit", func(t *testing.T) {
		tail := 0
		p := Any(steady(false), steady(true), scripted(&tail, true))
		got, err := p(context.Background())
		require.NoError(t, err)
		assert.True(t, got)
		assert.Equal(t, 0, tail)
	})
	t.Run("stale member is skipped", func(t *testing.T) {
		stale := func(context.Context) (bool, error) { return false, surface.ErrStale }
		p := Any(stale, steady(true))
		got, err := p(context.Background())
		require.NoError(t, err)
		assert.True(t, got)
	})
	t.Run("all false", func(t *testing.T) {
		p := Any(steady(false), steady(false))
		got, err := p(context.Background())
		require.NoError(t, err)
		assert.False(t, got)
	})
	t.Run("empty", func(t *testing.T) {
		got, err := Any()(context.Background())
		require.NoError(t, err)
		assert.False(t, got)
	})
	t.Run("hard error propagates", func(t *testing.T) {
		boom := errors.New("gone")
		broken := func(context.Context) (bool, error) { return false, boom }
		_, err := Any(broken, steady(true))(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestProbeVisiblePredicate(t *testing.T) {
	f := surfacetest.New()
	scope := f.Add("q1", surfacetest.Sel("radio-scope"))
	banner := f.AddUnder("q1", "q1-ok", surfacetest.Sel("feedback-correct"), surfacetest.Hidden())

	p := ProbeVisiblePredicate(f, scope, "feedback-correct")

	got, err := p(context.Background())
	require.NoError(t, err)
	assert.False(t, got, "hidden banner must read as absent")

	banner.SetVisible(true)
	got, err = p(context.Background())
	require.NoError(t, err)
	assert.True(t, got)

	got, err = ProbeVisiblePredicate(f, scope, "feedback-incorrect")(context.Background())
	require.NoError(t, err)
	assert.False(t, got, "unmatched probe must read as absent")
}
