package dialogs

import (
	"encoding/json"
	"fmt"
	"strings"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts"
	"storyteller/internal/tokens"
)

const maxRosterNames = 15

// Definition implements analysis.Definition for dialog attribution. Input
// sections are page-sized slices of one chapter; prompts embed the speakers
// seen in earlier batches so attribution stays consistent, which is why
// batches must run in order.
type Definition struct {
	budget         tokens.Budget
	systemOverride string
	userOverride   string
}

// New returns the dialog attribution definition for the given budget.
func New(budget tokens.Budget) *Definition {
	return &Definition{budget: budget}
}

// NewWithOverrides returns a definition using book-level prompt overrides.
func NewWithOverrides(budget tokens.Budget, system, user string) *Definition {
	return &Definition{budget: budget, systemOverride: system, userOverride: user}
}

func (d *Definition) PromptID() string { return "analysis.dialogs" }

func (d *Definition) DisplayName() string { return "Dialog Attribution" }

func (d *Definition) Budget() tokens.Budget { return d.budget }

func (d *Definition) Partition(sections []analysis.Section) [][]analysis.Section {
	return prompts.Partition(sections, d.budget.MaxInputChars())
}

func (d *Definition) PrepareInput(batch []analysis.Section) analysis.PreparedInput {
	return prompts.PrepareSections(batch, d.budget.MaxInputChars())
}

func (d *Definition) SystemPrompt() string {
	if d.systemOverride != "" {
		return d.systemOverride
	}
	return SystemPrompt()
}

func (d *Definition) ResponseSchema() map[string]any { return ResponseSchema }

func (d *Definition) BuildUserPrompt(in analysis.PreparedInput, context analysis.Result) (string, error) {
	roster := "[]"
	if prior, ok := context.(Result); ok {
		names := speakerRoster(prior, maxRosterNames)
		if len(names) > 0 {
			encoded, err := json.Marshal(names)
			if err != nil {
				return "", fmt.Errorf("encoding roster: %w", err)
			}
			roster = string(encoded)
		}
	}

	data := UserPromptData{
		Roster: roster,
		Text:   renderPages(in.Sections),
	}
	return UserPromptWithOverride(data, d.userOverride), nil
}

// ParseResponse validates and normalizes the dialog list: blank speakers
// fall back to Unknown, emotions outside the vocabulary become neutral,
// intensity is clamped to [0, 1], and page labels map back to 0-indexed.
// Any failure yields the empty result.
func (d *Definition) ParseResponse(raw string) analysis.Result {
	var wire struct {
		Dialogs []Dialog `json:"dialogs"`
	}
	if err := prompts.Parse(raw, ResponseSchema, &wire); err != nil {
		return Result{}
	}

	var res Result
	for _, dl := range wire.Dialogs {
		dl.Text = strings.TrimSpace(dl.Text)
		if dl.Text == "" {
			continue
		}
		dl.Speaker = normalizeSpeaker(dl.Speaker)
		dl.Emotion = NormalizeEmotion(dl.Emotion)
		dl.Intensity = clamp01(dl.Intensity)
		if dl.Page > 0 {
			dl.Page--
		} else {
			dl.Page = 0
		}
		res.Dialogs = append(res.Dialogs, dl)
	}
	return res
}

func (d *Definition) NewAccumulator() analysis.Accumulator {
	return NewAccumulated()
}

// NormalizeEmotion maps free-form emotion labels onto the closed vocabulary,
// defaulting to neutral.
func NormalizeEmotion(emotion string) string {
	emotion = strings.ToLower(strings.TrimSpace(emotion))
	for _, e := range Emotions {
		if emotion == e {
			return e
		}
	}
	return "neutral"
}

func normalizeSpeaker(speaker string) string {
	speaker = strings.TrimSpace(speaker)
	switch strings.ToLower(speaker) {
	case "", "unknown":
		return SpeakerUnknown
	case "narrator":
		return SpeakerNarrator
	}
	return speaker
}

// speakerRoster lists distinct named speakers in first-appearance order,
// skipping the Unknown and Narrator placeholders.
func speakerRoster(res Result, limit int) []string {
	seen := make(map[string]bool)
	var names []string
	for _, dl := range res.Dialogs {
		if dl.Speaker == SpeakerUnknown || dl.Speaker == SpeakerNarrator {
			continue
		}
		if seen[dl.Speaker] {
			continue
		}
		seen[dl.Speaker] = true
		names = append(names, dl.Speaker)
		if len(names) == limit {
			break
		}
	}
	return names
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func renderPages(sections []analysis.Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "PAGE %d:\n%s", s.Index+1, s.Text)
	}
	return b.String()
}
