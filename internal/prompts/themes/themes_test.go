package themes

import (
	"reflect"
	"testing"

	"storyteller/internal/tokens"
)

func newDef() *Definition {
	return New(tokens.Budget{PromptTokens: 500, InputTokens: 6000, OutputTokens: 1000})
}

func TestParseResponse(t *testing.T) {
	raw := `{"themes": [
		{"name": "Loyalty", "description": "Tested repeatedly.", "chapters": [1, 3]},
		{"name": "  ", "description": "Nameless."}
	]}`

	res := newDef().ParseResponse(raw).(Result)
	if len(res.Themes) != 1 {
		t.Fatalf("expected one theme, got %d", len(res.Themes))
	}
	if !reflect.DeepEqual(res.Themes[0].Chapters, []int{0, 2}) {
		t.Errorf("expected 0-indexed chapters, got %v", res.Themes[0].Chapters)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	for _, raw := range []string{"not json", `{"themes": "nope"}`, ""} {
		res := newDef().ParseResponse(raw).(Result)
		if len(res.Themes) != 0 {
			t.Errorf("expected empty result for %q", raw)
		}
	}
}

func TestAccumulatedMergeByName(t *testing.T) {
	acc := newDef().NewAccumulator()
	acc.Fold(Result{Themes: []Theme{{Name: "Loyalty", Description: "Short.", Chapters: []int{2, 0}}}})
	acc.Fold(Result{Themes: []Theme{
		{Name: "Loyalty", Description: "A longer description wins.", Chapters: []int{1, 2}},
		{Name: "Loss", Chapters: []int{3}},
	}})

	res := acc.Result().(Result)
	if len(res.Themes) != 2 {
		t.Fatalf("expected merge by name, got %d themes", len(res.Themes))
	}
	loyalty := res.Themes[0]
	if !reflect.DeepEqual(loyalty.Chapters, []int{0, 1, 2}) {
		t.Errorf("expected sorted chapter union, got %v", loyalty.Chapters)
	}
	if loyalty.Description != "A longer description wins." {
		t.Errorf("expected longer description kept, got %q", loyalty.Description)
	}
}

func TestFoldIdempotent(t *testing.T) {
	partial := Result{Themes: []Theme{{Name: "Ambition", Chapters: []int{0, 1}}}}
	acc := newDef().NewAccumulator()
	acc.Fold(partial)
	acc.Fold(partial)

	res := acc.Result().(Result)
	if len(res.Themes) != 1 || !reflect.DeepEqual(res.Themes[0].Chapters, []int{0, 1}) {
		t.Errorf("double fold changed state: %+v", res.Themes)
	}
}
