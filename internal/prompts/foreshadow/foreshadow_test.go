package foreshadow

import (
	"testing"

	"storyteller/internal/tokens"
)

func newDef() *Definition {
	return New(tokens.Budget{PromptTokens: 500, InputTokens: 6000, OutputTokens: 1000})
}

func TestParseResponse(t *testing.T) {
	raw := `{"foreshadowing": [
		{"source_chapter": 1, "target_chapter": 3, "hint": "The locked drawer.", "payoff": "The drawer holds the will."},
		{"source_chapter": 4, "target_chapter": 2, "hint": "Backwards link."},
		{"source_chapter": 2, "target_chapter": 2, "hint": "Same chapter."}
	]}`

	res := newDef().ParseResponse(raw).(Result)
	if len(res.Links) != 1 {
		t.Fatalf("expected only the forward link kept, got %+v", res.Links)
	}
	l := res.Links[0]
	if l.SourceChapter != 0 || l.TargetChapter != 2 {
		t.Errorf("expected 0-indexed chapters, got %+v", l)
	}
}

func TestParseResponseEmptyFindings(t *testing.T) {
	res := newDef().ParseResponse(`{"foreshadowing": []}`).(Result)
	if len(res.Links) != 0 {
		t.Errorf("expected empty findings, got %+v", res.Links)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	res := newDef().ParseResponse("not json").(Result)
	if len(res.Links) != 0 {
		t.Errorf("expected empty result on garbage, got %+v", res.Links)
	}
}

func TestAccumulatedDedupAndPayoffFill(t *testing.T) {
	acc := newDef().NewAccumulator()
	acc.Fold(Result{Links: []Link{{SourceChapter: 0, TargetChapter: 2, Hint: "The locked drawer."}}})
	acc.Fold(Result{Links: []Link{
		{SourceChapter: 0, TargetChapter: 2, Hint: "The locked drawer.", Payoff: "Holds the will."},
		{SourceChapter: 1, TargetChapter: 3, Hint: "The limp."},
	}})

	res := acc.Result().(Result)
	if len(res.Links) != 2 {
		t.Fatalf("expected dedup by (source, target, hint), got %d", len(res.Links))
	}
	if res.Links[0].Payoff != "Holds the will." {
		t.Errorf("expected empty payoff filled, got %q", res.Links[0].Payoff)
	}
}

func TestFoldIdempotent(t *testing.T) {
	partial := Result{Links: []Link{{SourceChapter: 0, TargetChapter: 1, Hint: "A glance."}}}
	acc := newDef().NewAccumulator()
	acc.Fold(partial)
	acc.Fold(partial)
	if got := acc.Result().(Result); len(got.Links) != 1 {
		t.Errorf("double fold changed state: %+v", got.Links)
	}
}
