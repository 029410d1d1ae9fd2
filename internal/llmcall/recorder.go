package llmcall

import (
	"context"
	"log/slog"
	"time"

	"storyteller/internal/analysis"
	"storyteller/internal/providers"
	"storyteller/internal/store"
)

// recordTimeout bounds each insert so a wedged database cannot stall
// the analysis loop that triggered the recording.
const recordTimeout = 5 * time.Second

// Recorder persists call records to the store. Recording is best
// effort: a failed insert is logged and never fails the call that
// produced it.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to st.
func NewRecorder(st *store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: st, logger: logger}
}

// Record captures one inference call.
func (r *Recorder) Record(res providers.GenerateResult, promptKey string, bookID, chapterID int64, callErr error) {
	if r == nil || r.store == nil {
		return
	}

	rec := FromResult(res, promptKey, bookID, chapterID, callErr)

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.store.InsertLLMCall(ctx, rec); err != nil {
		r.logger.Warn("failed to record llm call",
			"prompt_key", promptKey,
			"book_id", bookID,
			"chapter_id", chapterID,
			"error", err)
	}
}

// Observer adapts the recorder to the analysis call hook.
func (r *Recorder) Observer() analysis.CallObserver {
	if r == nil {
		return nil
	}
	return r.Record
}
