package config

import (
	"fmt"
	"time"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/solve"
)

// TimingConfig tunes the solver waits. Durations are strings like
// "250ms"; empty or unparsable values fall back to the built-in
// defaults.
type TimingConfig struct {
	// Think-time bounds between consecutive tasks of the same type.
	PaceMin string `yaml:"pace_min"`
	PaceMax string `yaml:"pace_max"`

	// Feedback observation: sampling cadence, double-confirmation gap,
	// and the per-submission deadline.
	PollInterval  string `yaml:"poll_interval"`
	ConfirmDelay  string `yaml:"confirm_delay"`
	VerifyTimeout string `yaml:"verify_timeout"`

	// Settle time after pressing a short-answer reveal button.
	RevealSettle string `yaml:"reveal_settle"`

	// How long a dropped tile must hold its slot before it counts.
	MatchSettle string `yaml:"match_settle"`

	// Animation playback: watch cadence, resume press cap, wall clock cap.
	AnimationPoll     string `yaml:"animation_poll"`
	AnimationMaxSteps int    `yaml:"animation_max_steps"`
	AnimationCeiling  string `yaml:"animation_ceiling"`
}

// SolveTiming resolves the section into concrete durations, falling back
// to the defaults for anything empty or malformed.
func (c *Config) SolveTiming() solve.Timing {
	t := solve.DefaultTiming()
	overrideDuration(&t.PaceMin, c.Timing.PaceMin)
	overrideDuration(&t.PaceMax, c.Timing.PaceMax)
	overrideDuration(&t.PollInterval, c.Timing.PollInterval)
	overrideDuration(&t.ConfirmDelay, c.Timing.ConfirmDelay)
	overrideDuration(&t.VerifyTimeout, c.Timing.VerifyTimeout)
	overrideDuration(&t.RevealSettle, c.Timing.RevealSettle)
	overrideDuration(&t.MatchSettle, c.Timing.MatchSettle)
	overrideDuration(&t.AnimationPoll, c.Timing.AnimationPoll)
	overrideDuration(&t.AnimationCeiling, c.Timing.AnimationCeiling)
	if c.Timing.AnimationMaxSteps > 0 {
		t.AnimationMaxSteps = c.Timing.AnimationMaxSteps
	}
	return t
}

// overrideDuration replaces dst when s holds a valid non-negative
// duration. "0s" is an explicit zero, not a fallback to the default.
func overrideDuration(dst *time.Duration, s string) {
	if s == "" {
		return
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		*dst = d
	}
}

func (t *TimingConfig) validate() error {
	fields := map[string]string{
		"timing.pace_min":          t.PaceMin,
		"timing.pace_max":          t.PaceMax,
		"timing.poll_interval":     t.PollInterval,
		"timing.confirm_delay":     t.ConfirmDelay,
		"timing.verify_timeout":    t.VerifyTimeout,
		"timing.reveal_settle":     t.RevealSettle,
		"timing.match_settle":      t.MatchSettle,
		"timing.animation_poll":    t.AnimationPoll,
		"timing.animation_ceiling": t.AnimationCeiling,
	}
	for name, val := range fields {
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s: must not be negative", name)
		}
	}

	if t.AnimationMaxSteps < 0 {
		return fmt.Errorf("invalid timing.animation_max_steps: must not be negative")
	}

	min, err1 := time.ParseDuration(t.PaceMin)
	max, err2 := time.ParseDuration(t.PaceMax)
	if err1 == nil && err2 == nil && min > max {
		return fmt.Errorf("timing.pace_min (%v) exceeds timing.pace_max (%v)", min, max)
	}
	return nil
}
