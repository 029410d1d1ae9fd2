package characters

import (
	"strings"
	"testing"

	"storyteller/internal/analysis"
	"storyteller/internal/tokens"
)

func testBudget() tokens.Budget {
	return tokens.Budget{PromptTokens: 500, InputTokens: 2000, OutputTokens: 1000}
}

func TestParseResponseBatchedForm(t *testing.T) {
	d := New(testBudget())
	raw := `{
		"Alice": {"D": [{"page": 2, "text": "Hello there"}], "T": ["brave", "quick"], "V": "bright and clear"},
		"Bob": {"dialogs": ["Who goes there?"], "traits": ["gruff"], "voice": "deep"}
	}`

	res, ok := d.ParseResponse(raw).(Result)
	if !ok {
		t.Fatalf("expected characters.Result")
	}
	if len(res.Found) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(res.Found))
	}

	alice := res.Found[0]
	if alice.Name != "Alice" {
		t.Errorf("expected Alice first (sorted), got %q", alice.Name)
	}
	if len(alice.Dialogs) != 1 || alice.Dialogs[0].Page != 1 {
		t.Errorf("expected page 2 mapped to 0-indexed 1, got %+v", alice.Dialogs)
	}
	if alice.Voice != "bright and clear" {
		t.Errorf("unexpected voice hint: %q", alice.Voice)
	}

	bob := res.Found[1]
	if len(bob.Dialogs) != 1 || bob.Dialogs[0].Text != "Who goes there?" {
		t.Errorf("expected string dialog tolerated, got %+v", bob.Dialogs)
	}
	if bob.Voice != "deep" {
		t.Errorf("expected lowercase voice key tolerated, got %q", bob.Voice)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	d := New(testBudget())
	for _, raw := range []string{"not json", "", "[1,2,3]", `{"Alice": "just a string"}`} {
		res, ok := d.ParseResponse(raw).(Result)
		if !ok {
			t.Fatalf("expected characters.Result for %q", raw)
		}
		if len(res.Found) != 0 {
			t.Errorf("expected empty result for %q, got %+v", raw, res.Found)
		}
	}
}

func TestParseResponseSkipsNarratorAndUnknown(t *testing.T) {
	d := New(testBudget())
	raw := `{"Narrator": {"T": ["calm"]}, "unknown": {"T": ["?"]}, "Carol": {"T": ["sly"]}}`
	res := d.ParseResponse(raw).(Result)
	if len(res.Found) != 1 || res.Found[0].Name != "Carol" {
		t.Fatalf("expected only Carol, got %+v", res.Found)
	}
}

func TestAccumulatedTraitUnion(t *testing.T) {
	acc := NewAccumulated()
	acc.Fold(Result{Found: []Character{{Name: "Alice", Traits: []string{"brave"}}}})
	acc.Fold(Result{Found: []Character{{Name: "Alice", Traits: []string{"kind", "brave"}}}})

	res := acc.Result().(Result)
	if len(res.Found) != 1 {
		t.Fatalf("expected one character, got %d", len(res.Found))
	}
	got := strings.Join(res.Found[0].Traits, ",")
	if got != "brave,kind" {
		t.Errorf("expected order-preserving union brave,kind, got %s", got)
	}
}

func TestAccumulatedFoldIdempotent(t *testing.T) {
	partial := Result{Found: []Character{{
		Name:    "Alice",
		Traits:  []string{"brave"},
		Voice:   "bright",
		Dialogs: []Dialog{{Page: 0, Text: "Hello"}},
	}}}

	acc := NewAccumulated()
	acc.Fold(partial)
	acc.Fold(partial)

	res := acc.Result().(Result)
	c := res.Found[0]
	if len(c.Traits) != 1 || len(c.Dialogs) != 1 {
		t.Errorf("double fold changed state: %+v", c)
	}
}

func TestAccumulatedNewestVoiceWins(t *testing.T) {
	acc := NewAccumulated()
	acc.Fold(Result{Found: []Character{{Name: "Bob", Voice: "deep", SpeakerID: 75}}})
	acc.Fold(Result{Found: []Character{{Name: "Bob", Voice: "gravelly"}}})
	acc.Fold(Result{Found: []Character{{Name: "Bob"}}})

	c := acc.Result().(Result).Found[0]
	if c.Voice != "gravelly" {
		t.Errorf("expected newest non-empty voice to win, got %q", c.Voice)
	}
	if c.SpeakerID != 75 {
		t.Errorf("expected empty speaker id to not overwrite, got %d", c.SpeakerID)
	}
}

func TestAccumulatedDialogPageOrder(t *testing.T) {
	acc := NewAccumulated()
	acc.Fold(Result{Found: []Character{{Name: "Alice", Dialogs: []Dialog{{Page: 3, Text: "later"}}}}})
	acc.Fold(Result{Found: []Character{{Name: "Alice", Dialogs: []Dialog{
		{Page: 1, Text: "earlier"},
		{Page: 3, Text: "later"},
	}}}})

	c := acc.Result().(Result).Found[0]
	if len(c.Dialogs) != 2 {
		t.Fatalf("expected dedup by (page, text), got %+v", c.Dialogs)
	}
	if c.Dialogs[0].Page != 1 || c.Dialogs[1].Page != 3 {
		t.Errorf("expected page order, got %+v", c.Dialogs)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	acc := NewAccumulated()
	acc.Fold(Result{Found: []Character{{Name: "Alice", Traits: []string{"brave"}}}})
	acc.Fold(Result{Found: []Character{{Name: "Bob", Voice: "deep"}}})

	data, err := acc.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored := NewAccumulated()
	if err := restored.Restore(data); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got := restored.Result().(Result)
	if len(got.Found) != 2 || got.Found[0].Name != "Alice" || got.Found[1].Name != "Bob" {
		t.Errorf("round trip lost data: %+v", got.Found)
	}
}

func TestBuildUserPromptEmbedsRoster(t *testing.T) {
	d := New(testBudget())
	in := analysis.PreparedInput{Sections: []analysis.Section{{Index: 0, Text: "Some text."}}}
	prior := Result{Found: []Character{{Name: "Alice"}, {Name: "Bob"}}}

	prompt, err := d.BuildUserPrompt(in, prior)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	if !strings.Contains(prompt, `["Alice","Bob"]`) {
		t.Errorf("expected roster in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "PAGE 1:") {
		t.Errorf("expected 1-indexed page label:\n%s", prompt)
	}
	if !strings.Contains(prompt, "no trailing commas") {
		t.Errorf("expected JSON reminder line:\n%s", prompt)
	}
}

func TestBuildUserPromptNilContext(t *testing.T) {
	d := New(testBudget())
	in := analysis.PreparedInput{Sections: []analysis.Section{{Index: 0, Text: "Text."}}}
	prompt, err := d.BuildUserPrompt(in, nil)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	if !strings.Contains(prompt, "CHARACTERS FROM PREVIOUS SEGMENTS: []") {
		t.Errorf("expected empty roster:\n%s", prompt)
	}
}
