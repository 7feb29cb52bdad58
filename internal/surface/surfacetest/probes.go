package surfacetest

import "github.com/DevGuyRash/zybooks-problem-solver/internal/surface"

// Probes returns a probe set with plain token selectors for use against a
// Fake, which matches selectors by exact string. Tests register nodes
// under these tokens instead of real CSS.
func Probes() surface.ProbeSet {
	return surface.ProbeSet{
		Chevron: surface.ChevronProbes{
			Marker:          "chevron",
			CompleteClasses: []string{"filled", "check"},
		},
		Feedback: surface.FeedbackProbes{
			Correct:   "feedback-correct",
			Incorrect: "feedback-incorrect",
		},
		Radio: surface.RadioProbes{
			Scope:      "radio-scope",
			Candidates: "radio-candidate",
		},
		Clickable: surface.ClickableProbes{
			Scope:      "clickable-scope",
			Candidates: "clickable-candidate",
		},
		ShortAnswer: surface.ShortAnswerProbes{
			Scope:   "shortanswer-scope",
			Reveal:  "sa-reveal",
			Answers: "sa-answer",
			Entry:   "sa-entry",
			Submit:  "sa-submit",
		},
		Animation: surface.AnimationProbes{
			Scope:         "animation-scope",
			Start:         "anim-start",
			DoubleSpeed:   "anim-speed",
			FinishedClass: "rotate-180",
		},
		Matching: surface.MatchingProbes{
			Scope:     "matching-scope",
			Bank:      "match-bank-item",
			Slots:     "match-slot",
			Occupants: "match-occupant",
			Reset:     "match-reset",
		},
	}
}
