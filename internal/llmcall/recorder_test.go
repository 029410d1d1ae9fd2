package llmcall

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storyteller/internal/providers"
	"storyteller/internal/store"
)

func TestRecorderPersistsCall(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "calls.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	rec := NewRecorder(s, nil)
	res := providers.GenerateResult{
		Text:             `{"ok": true}`,
		PromptTokens:     120,
		CompletionTokens: 40,
		Engine:           "llama-server",
		ModelUsed:        "test-model",
		Duration:         250 * time.Millisecond,
	}

	rec.Record(res, "analysis.characters", 1, 2, nil)
	rec.Record(providers.GenerateResult{Engine: "llama-server"}, "analysis.characters", 1, 2, errors.New("timeout"))

	calls, err := s.ListLLMCalls(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}

	var ok, failed int
	for _, c := range calls {
		if c.PromptKey != "analysis.characters" {
			t.Errorf("unexpected prompt key %q", c.PromptKey)
		}
		if c.Success {
			ok++
			if c.PromptTokens != 120 || c.CompletionTokens != 40 {
				t.Errorf("token usage not recorded: %+v", c)
			}
			if c.DurationMS != 250 {
				t.Errorf("expected duration 250ms, got %d", c.DurationMS)
			}
		} else {
			failed++
			if c.Error != "timeout" {
				t.Errorf("expected error message recorded, got %q", c.Error)
			}
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("expected one success and one failure, got %d/%d", ok, failed)
	}
}

func TestRecorderNilStoreIsNoop(t *testing.T) {
	rec := NewRecorder(nil, nil)
	rec.Record(providers.GenerateResult{}, "analysis.themes", 1, 1, nil)

	var nilRec *Recorder
	if nilRec.Observer() != nil {
		t.Error("nil recorder should yield nil observer")
	}
}
