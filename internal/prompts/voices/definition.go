package voices

import (
	"fmt"
	"strings"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts"
	"storyteller/internal/prompts/characters"
	"storyteller/internal/tokens"
)

const (
	maxSampleDialogs   = 10
	maxSampleTextChars = 100
	maxSampleTraits    = 15
)

// Definition implements analysis.Definition for voice profile synthesis.
// Input sections are character blocks built with CharacterSection; each
// character gets its own inference call.
type Definition struct {
	budget         tokens.Budget
	systemOverride string
	userOverride   string
}

// New returns the voice synthesis definition for the given budget.
func New(budget tokens.Budget) *Definition {
	return &Definition{budget: budget}
}

// NewWithOverrides returns a definition using book-level prompt overrides.
func NewWithOverrides(budget tokens.Budget, system, user string) *Definition {
	return &Definition{budget: budget, systemOverride: system, userOverride: user}
}

func (d *Definition) PromptID() string { return "analysis.voices" }

func (d *Definition) DisplayName() string { return "Voice Profiles" }

func (d *Definition) Budget() tokens.Budget { return d.budget }

// Partition puts each character block in its own batch: profiles come out
// better when the model considers one character at a time.
func (d *Definition) Partition(sections []analysis.Section) [][]analysis.Section {
	batches := make([][]analysis.Section, 0, len(sections))
	for _, s := range sections {
		batches = append(batches, []analysis.Section{s})
	}
	return batches
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

func (d *Definition) BuildUserPrompt(in analysis.PreparedInput, _ analysis.Result) (string, error) {
	if len(in.Sections) == 0 {
		return "", fmt.Errorf("voice prompt requires a character section")
	}
	var blocks []string
	for _, s := range in.Sections {
		blocks = append(blocks, s.Text)
	}
	data := UserPromptData{Text: strings.Join(blocks, "\n\n")}
	return UserPromptWithOverride(data, d.userOverride), nil
}

// ParseResponse accepts either the single {"character", "voice_profile"}
// object or a {"profiles": [...]} list. Multipliers are clamped to
// [0.5, 1.5] and speaker IDs to the VCTK range; a missing or out-of-range
// speaker ID is filled from the gender/age ranges. Any failure yields the
// empty result.
func (d *Definition) ParseResponse(raw string) analysis.Result {
	var single Profile
	if err := prompts.Parse(raw, ResponseSchema, &single); err == nil && single.Character != "" {
		return Result{Profiles: []Profile{normalizeProfile(single)}}
	}

	var list Result
	listSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"profiles": map[string]any{"type": "array"},
		},
		"required": []string{"profiles"},
	}
	if err := prompts.Parse(raw, listSchema, &list); err != nil {
		return Result{}
	}
	var res Result
	for _, p := range list.Profiles {
		if strings.TrimSpace(p.Character) == "" {
			continue
		}
		res.Profiles = append(res.Profiles, normalizeProfile(p))
	}
	return res
}

func (d *Definition) NewAccumulator() analysis.Accumulator {
	return NewAccumulated()
}

// CharacterSection renders one character's accumulated data as an input
// section for voice synthesis, mirroring the traits and dialog samples the
// casting prompt expects.
func CharacterSection(index int, c characters.Character) analysis.Section {
	var b strings.Builder
	fmt.Fprintf(&b, "CHARACTER: %q\n\n", c.Name)

	traits := c.Traits
	if len(traits) > maxSampleTraits {
		traits = traits[:maxSampleTraits]
	}
	if len(traits) > 0 {
		fmt.Fprintf(&b, "EXTRACTED TRAITS: %s\n", strings.Join(traits, ", "))
	} else {
		b.WriteString("EXTRACTED TRAITS: (no traits extracted)\n")
	}
	if c.Voice != "" {
		fmt.Fprintf(&b, "VOICE HINT: %s\n", c.Voice)
	}

	b.WriteString("\nSAMPLE DIALOGS:\n")
	if len(c.Dialogs) == 0 {
		b.WriteString("  (no dialogs extracted)")
	}
	for i, dl := range c.Dialogs {
		if i == maxSampleDialogs {
			break
		}
		text := dl.Text
		if len(text) > maxSampleTextChars {
			text = text[:maxSampleTextChars]
		}
		fmt.Fprintf(&b, "  - %q\n", text)
	}

	return analysis.Section{Index: index, Text: strings.TrimRight(b.String(), "\n")}
}

// NarratorProfile returns the fixed default profile for narration: a calm,
// neutral adult voice.
func NarratorProfile() VoiceProfile {
	return VoiceProfile{
		Pitch:     1.0,
		Speed:     0.95,
		Energy:    0.6,
		Gender:    "female",
		Age:       "middle-aged",
		Tone:      "calm, measured narration",
		Accent:    "neutral",
		SpeakerID: 35,
	}
}

// DefaultSpeakerID picks a VCTK speaker from the middle of the range
// matching gender and age.
func DefaultSpeakerID(gender, age string) int {
	gender = strings.ToLower(gender)
	age = strings.ToLower(age)
	elderly := age == "elderly"
	young := age == "child" || age == "young"

	switch {
	case elderly:
		return 99
	case gender == "female" && young:
		return 20
	case gender == "female":
		return 40
	case young:
		return 60
	default:
		return 80
	}
}

func normalizeProfile(p Profile) Profile {
	p.Character = strings.TrimSpace(p.Character)
	v := &p.Voice
	v.Pitch = clampMultiplier(v.Pitch)
	v.Speed = clampMultiplier(v.Speed)
	v.Energy = clampMultiplier(v.Energy)
	v.Gender = strings.ToLower(strings.TrimSpace(v.Gender))
	v.Age = strings.ToLower(strings.TrimSpace(v.Age))
	if v.Accent == "" {
		v.Accent = "neutral"
	}
	// Zero doubles as "not provided"; the ranges the prompt suggests
	// start at 10, so no real assignment is lost.
	if v.SpeakerID <= 0 || v.SpeakerID > 108 {
		v.SpeakerID = DefaultSpeakerID(v.Gender, v.Age)
	}
	return p
}

func clampMultiplier(v float64) float64 {
	if v == 0 {
		return 1.0
	}
	if v < 0.5 {
		return 0.5
	}
	if v > 1.5 {
		return 1.5
	}
	return v
}
