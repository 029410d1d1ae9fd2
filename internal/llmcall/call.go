// Package llmcall records every inference call for traceability. Each
// call is stored with its prompt key, token usage, and timing so a run
// can be audited after the fact.
package llmcall

import (
	"github.com/google/uuid"

	"storyteller/internal/providers"
	"storyteller/internal/store"
)

// FromResult builds a call record from one inference outcome. The
// record carries the prompt key and the (book, chapter) it served so
// calls can be filtered per analysis later.
func FromResult(res providers.GenerateResult, promptKey string, bookID, chapterID int64, callErr error) *store.LLMCallRecord {
	rec := &store.LLMCallRecord{
		ID:               uuid.New().String(),
		BookID:           bookID,
		ChapterID:        chapterID,
		PromptKey:        promptKey,
		Engine:           res.Engine,
		Model:            res.ModelUsed,
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
		DurationMS:       res.Duration.Milliseconds(),
		Success:          callErr == nil,
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	return rec
}
