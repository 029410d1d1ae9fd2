package voices

import (
	"strings"
	"testing"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts/characters"
	"storyteller/internal/tokens"
)

func testBudget() tokens.Budget {
	return tokens.Budget{PromptTokens: 500, InputTokens: 1500, OutputTokens: 500}
}

func TestParseResponseSingleProfile(t *testing.T) {
	d := New(testBudget())
	raw := `{
		"character": "Alice",
		"voice_profile": {"pitch": 1.2, "speed": 1.0, "energy": 0.8, "gender": "Female",
			"age": "young", "tone": "bright", "accent": "", "speaker_id": 22}
	}`

	res := d.ParseResponse(raw).(Result)
	if len(res.Profiles) != 1 {
		t.Fatalf("expected one profile, got %d", len(res.Profiles))
	}
	p := res.Profiles[0]
	if p.Voice.Gender != "female" || p.Voice.Accent != "neutral" || p.Voice.SpeakerID != 22 {
		t.Errorf("bad normalization: %+v", p.Voice)
	}
}

func TestParseResponseClampsRanges(t *testing.T) {
	d := New(testBudget())
	raw := `{"character": "Bob", "voice_profile": {"pitch": 3.0, "speed": 0.1, "energy": 0, "gender": "male", "age": "middle-aged", "speaker_id": 300}}`

	p := d.ParseResponse(raw).(Result).Profiles[0]
	if p.Voice.Pitch != 1.5 || p.Voice.Speed != 0.5 {
		t.Errorf("expected multipliers clamped to [0.5, 1.5], got %+v", p.Voice)
	}
	if p.Voice.Energy != 1.0 {
		t.Errorf("expected zero energy defaulted to 1.0, got %v", p.Voice.Energy)
	}
	if p.Voice.SpeakerID != 80 {
		t.Errorf("expected out-of-range speaker id replaced with male adult default, got %d", p.Voice.SpeakerID)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	d := New(testBudget())
	for _, raw := range []string{"not json", `{"character": ""}`, ""} {
		res := d.ParseResponse(raw).(Result)
		if len(res.Profiles) != 0 {
			t.Errorf("expected empty result for %q", raw)
		}
	}
}

func TestDefaultSpeakerIDRanges(t *testing.T) {
	cases := []struct {
		gender, age string
		want        int
	}{
		{"female", "young", 20},
		{"female", "middle-aged", 40},
		{"male", "child", 60},
		{"male", "middle-aged", 80},
		{"female", "elderly", 99},
		{"", "", 80},
	}
	for _, c := range cases {
		if got := DefaultSpeakerID(c.gender, c.age); got != c.want {
			t.Errorf("DefaultSpeakerID(%q, %q) = %d, want %d", c.gender, c.age, got, c.want)
		}
	}
}

func TestCharacterSection(t *testing.T) {
	c := characters.Character{
		Name:   "Alice",
		Traits: []string{"brave", "quick"},
		Voice:  "bright and clear",
		Dialogs: []characters.Dialog{
			{Page: 0, Text: "Hello there"},
		},
	}
	s := CharacterSection(3, c)
	if s.Index != 3 {
		t.Errorf("expected index preserved, got %d", s.Index)
	}
	for _, want := range []string{`CHARACTER: "Alice"`, "brave, quick", "bright and clear", `"Hello there"`} {
		if !strings.Contains(s.Text, want) {
			t.Errorf("section missing %q:\n%s", want, s.Text)
		}
	}
}

func TestCharacterSectionEmpty(t *testing.T) {
	s := CharacterSection(0, characters.Character{Name: "Ghost"})
	if !strings.Contains(s.Text, "(no traits extracted)") || !strings.Contains(s.Text, "(no dialogs extracted)") {
		t.Errorf("expected placeholders for missing data:\n%s", s.Text)
	}
}

func TestPartitionOnePerBatch(t *testing.T) {
	d := New(testBudget())
	sections := []analysis.Section{
		{Index: 0, Text: "block a"},
		{Index: 1, Text: "block b"},
		{Index: 2, Text: "block c"},
	}
	batches := d.Partition(sections)
	if len(batches) != 3 {
		t.Fatalf("expected one batch per character, got %d", len(batches))
	}
	for i, b := range batches {
		if len(b) != 1 || b[0].Index != i {
			t.Errorf("batch %d: %+v", i, b)
		}
	}
}
