package surface

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProbeSet names every structural query the engine performs against a
// lesson page. Selectors live here, not in solver code, so a zyBooks markup
// change is a config edit rather than a rebuild. The zero value is not
// usable; start from DefaultProbes or LoadProbes.
type ProbeSet struct {
	Chevron     ChevronProbes     `yaml:"chevron"`
	Feedback    FeedbackProbes    `yaml:"feedback"`
	Radio       RadioProbes       `yaml:"radio"`
	Clickable   ClickableProbes   `yaml:"clickable"`
	ShortAnswer ShortAnswerProbes `yaml:"short_answer"`
	Animation   AnimationProbes   `yaml:"animation"`
	Matching    MatchingProbes    `yaml:"matching"`
}

// ChevronProbes locate the completion chevron zyBooks renders in every
// activity title bar. An activity is complete when the chevron carries any
// of the listed classes.
type ChevronProbes struct {
	Marker          string   `yaml:"marker"`
	CompleteClasses []string `yaml:"complete_classes"`
}

// FeedbackProbes locate the verdict zyBooks attaches to an attempt. The
// selectors are evaluated under the task scope; a visible match decides the
// verdict.
type FeedbackProbes struct {
	Correct   string `yaml:"correct"`
	Incorrect string `yaml:"incorrect"`
}

// RadioProbes cover multiple-choice questions.
type RadioProbes struct {
	Scope      string `yaml:"scope"`
	Candidates string `yaml:"candidates"`
}

// ClickableProbes cover click-to-answer selection questions.
type ClickableProbes struct {
	Scope      string `yaml:"scope"`
	Candidates string `yaml:"candidates"`
}

// ShortAnswerProbes cover free-text questions with a reveal affordance.
type ShortAnswerProbes struct {
	Scope   string `yaml:"scope"`
	Reveal  string `yaml:"reveal"`
	Answers string `yaml:"answers"`
	Entry   string `yaml:"entry"`
	Submit  string `yaml:"submit"`
}

// AnimationProbes cover animation players. FinishedClass is the rotation
// class the start control gains once playback has run to the end.
type AnimationProbes struct {
	Scope         string `yaml:"scope"`
	Start         string `yaml:"start"`
	DoubleSpeed   string `yaml:"double_speed"`
	FinishedClass string `yaml:"finished_class"`
}

// MatchingProbes cover drag-and-drop matching activities. Occupants is
// evaluated under a single slot node and yields the draggable currently
// placed there, if any.
type MatchingProbes struct {
	Scope     string `yaml:"scope"`
	Bank      string `yaml:"bank"`
	Slots     string `yaml:"slots"`
	Occupants string `yaml:"occupants"`
	Reset     string `yaml:"reset"`
}

// DefaultProbes returns the selectors for the current zyBooks markup.
func DefaultProbes() ProbeSet {
	return ProbeSet{
		Chevron: ChevronProbes{
			Marker:          ".zb-chevron",
			CompleteClasses: []string{"filled", "check"},
		},
		Feedback: FeedbackProbes{
			Correct:   ".zb-explanation.correct, .feedback.correct",
			Incorrect: ".zb-explanation.incorrect, .feedback.incorrect",
		},
		Radio: RadioProbes{
			Scope:      ".interactive-activity-container.multiple-choice-content-resource .question-set-question",
			Candidates: "label.zb-radio-button",
		},
		Clickable: ClickableProbes{
			Scope:      ".interactive-activity-container.selection-problem-content-resource .question-set-question",
			Candidates: "button.choice-button, .clickable-choice",
		},
		ShortAnswer: ShortAnswerProbes{
			Scope:   ".interactive-activity-container.short-answer-content-resource .question-set-question",
			Reveal:  "button.show-answer-button",
			Answers: ".forfeit-answer",
			Entry:   "textarea.zb-text-area, input.zb-input",
			Submit:  "button.check-button",
		},
		Animation: AnimationProbes{
			Scope:         ".interactive-activity-container.animation-player-content-resource",
			Start:         "button.start-button, button.play-button",
			DoubleSpeed:   ".speed-control input[type=checkbox]",
			FinishedClass: "rotate-180",
		},
		Matching: MatchingProbes{
			Scope:     ".interactive-activity-container.definition-match-content-resource",
			Bank:      ".draggable-objects-container .draggable-object",
			Slots:     ".definition-match-table .droppable-container",
			Occupants: ".draggable-object",
			Reset:     "button.reset-button",
		},
	}
}

// LoadProbes reads a probe set from a YAML file. A missing file yields the
// defaults, matching how the rest of the tool treats optional config.
func LoadProbes(path string) (ProbeSet, error) {
	ps := DefaultProbes()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ps, nil
		}
		return ps, fmt.Errorf("failed to read probe file: %w", err)
	}
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return ps, fmt.Errorf("failed to parse probe file: %w", err)
	}
	if err := ps.Validate(); err != nil {
		return ps, err
	}
	return ps, nil
}

// Save writes the probe set as YAML, creating parent directories as needed.
// Used by `zysolver probes init` to give users a file to edit.
func (ps ProbeSet) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create probe dir: %w", err)
		}
	}
	data, err := yaml.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to marshal probes: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write probe file: %w", err)
	}
	return nil
}

// Validate rejects probe sets with blank required selectors. The watcher
// calls this before swapping in a reloaded set so a half-edited file never
// reaches a running solve.
func (ps ProbeSet) Validate() error {
	required := map[string]string{
		"chevron.marker":       ps.Chevron.Marker,
		"feedback.correct":     ps.Feedback.Correct,
		"feedback.incorrect":   ps.Feedback.Incorrect,
		"radio.scope":          ps.Radio.Scope,
		"radio.candidates":     ps.Radio.Candidates,
		"clickable.scope":      ps.Clickable.Scope,
		"clickable.candidates": ps.Clickable.Candidates,
		"short_answer.scope":   ps.ShortAnswer.Scope,
		"short_answer.reveal":  ps.ShortAnswer.Reveal,
		"short_answer.answers": ps.ShortAnswer.Answers,
		"short_answer.entry":   ps.ShortAnswer.Entry,
		"short_answer.submit":  ps.ShortAnswer.Submit,
		"animation.scope":      ps.Animation.Scope,
		"animation.start":      ps.Animation.Start,
		"matching.scope":       ps.Matching.Scope,
		"matching.bank":        ps.Matching.Bank,
		"matching.slots":       ps.Matching.Slots,
		"matching.occupants":   ps.Matching.Occupants,
		"matching.reset":       ps.Matching.Reset,
	}
	for name, sel := range required {
		if sel == "" {
			return fmt.Errorf("probe %s must not be empty", name)
		}
	}
	if len(ps.Chevron.CompleteClasses) == 0 {
		return fmt.Errorf("probe chevron.complete_classes must list at least one class")
	}
	return nil
}
