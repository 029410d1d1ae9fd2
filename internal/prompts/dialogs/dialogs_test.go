package dialogs

import (
	"strings"
	"testing"

	"storyteller/internal/analysis"
	"storyteller/internal/tokens"
)

func testBudget() tokens.Budget {
	return tokens.Budget{PromptTokens: 500, InputTokens: 2000, OutputTokens: 1000}
}

func TestParseResponseNormalizes(t *testing.T) {
	d := New(testBudget())
	raw := `{"dialogs": [
		{"page": 1, "speaker": "Alice", "text": "Hello!", "emotion": "HAPPY", "intensity": 1.7},
		{"page": 2, "speaker": "", "text": "Who's there?", "emotion": "spooky", "intensity": -0.2},
		{"page": 2, "speaker": "narrator", "text": "The door creaked open."}
	]}`

	res := d.ParseResponse(raw).(Result)
	if len(res.Dialogs) != 3 {
		t.Fatalf("expected 3 dialogs, got %d", len(res.Dialogs))
	}

	if res.Dialogs[0].Page != 0 || res.Dialogs[0].Emotion != "happy" || res.Dialogs[0].Intensity != 1.0 {
		t.Errorf("bad normalization: %+v", res.Dialogs[0])
	}
	if res.Dialogs[1].Speaker != SpeakerUnknown || res.Dialogs[1].Emotion != "neutral" || res.Dialogs[1].Intensity != 0 {
		t.Errorf("bad fallback: %+v", res.Dialogs[1])
	}
	if res.Dialogs[2].Speaker != SpeakerNarrator {
		t.Errorf("expected Narrator canonicalized, got %q", res.Dialogs[2].Speaker)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	d := New(testBudget())
	for _, raw := range []string{"not json", `{"wrong": true}`, ""} {
		res := d.ParseResponse(raw).(Result)
		if len(res.Dialogs) != 0 {
			t.Errorf("expected empty result for %q", raw)
		}
	}
}

func TestBuildUserPromptRoster(t *testing.T) {
	d := New(testBudget())
	prior := Result{Dialogs: []Dialog{
		{Page: 0, Speaker: "Alice", Text: "Hi"},
		{Page: 0, Speaker: SpeakerNarrator, Text: "She waved."},
		{Page: 1, Speaker: "Bob", Text: "Hey"},
		{Page: 1, Speaker: SpeakerUnknown, Text: "Psst"},
	}}
	in := analysis.PreparedInput{Sections: []analysis.Section{{Index: 2, Text: "More text."}}}

	prompt, err := d.BuildUserPrompt(in, prior)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	if !strings.Contains(prompt, `["Alice","Bob"]`) {
		t.Errorf("expected named speakers only in roster:\n%s", prompt)
	}
	if !strings.Contains(prompt, "PAGE 3:") {
		t.Errorf("expected 1-indexed page label for section 2:\n%s", prompt)
	}
}

func TestAccumulatedDedupAndOrder(t *testing.T) {
	acc := NewAccumulated()
	acc.Fold(Result{Dialogs: []Dialog{
		{Page: 2, Speaker: "Alice", Text: "later"},
		{Page: 0, Speaker: "Alice", Text: "first"},
	}})
	acc.Fold(Result{Dialogs: []Dialog{
		{Page: 2, Speaker: "Alice", Text: "later"},
		{Page: 1, Speaker: "Bob", Text: "middle"},
	}})

	res := acc.Result().(Result)
	if len(res.Dialogs) != 3 {
		t.Fatalf("expected dedup to 3 dialogs, got %d", len(res.Dialogs))
	}
	for i, want := range []string{"first", "middle", "later"} {
		if res.Dialogs[i].Text != want {
			t.Errorf("position %d: expected %q, got %q", i, want, res.Dialogs[i].Text)
		}
	}
}

func TestNormalizeEmotion(t *testing.T) {
	cases := map[string]string{
		"happy":    "happy",
		" Defiant": "defiant",
		"FEARFUL":  "fearful",
		"spooky":   "neutral",
		"":         "neutral",
	}
	for in, want := range cases {
		if got := NormalizeEmotion(in); got != want {
			t.Errorf("NormalizeEmotion(%q) = %q, want %q", in, got, want)
		}
	}
}
