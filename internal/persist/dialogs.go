package persist

import (
	"context"
	"fmt"
	"log/slog"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts/characters"
	"storyteller/internal/prompts/dialogs"
	"storyteller/internal/store"
)

// DialogPersister folds attributed dialogs into the characters table,
// grouped by speaker. Unknown-speaker dialogs have no character to attach
// to and are skipped.
type DialogPersister struct {
	store  *store.Store
	logger *slog.Logger
}

// NewDialogPersister returns the persister for the dialogs kind.
func NewDialogPersister(st *store.Store, logger *slog.Logger) *DialogPersister {
	return &DialogPersister{store: st, logger: ensureLogger(logger)}
}

// Kind implements analysis.Persister.
func (p *DialogPersister) Kind() analysis.Kind { return analysis.KindDialogs }

// Persist implements analysis.Persister.
func (p *DialogPersister) Persist(ctx context.Context, bookID int64, res analysis.Result) (int, error) {
	r, ok := res.(dialogs.Result)
	if !ok {
		return 0, fmt.Errorf("dialog persister got %s result", res.ResultKind())
	}

	grouped := make(map[string][]characters.Dialog)
	var order []string
	skipped := 0
	for _, dl := range r.Dialogs {
		if dl.Speaker == dialogs.SpeakerUnknown {
			skipped++
			continue
		}
		if _, seen := grouped[dl.Speaker]; !seen {
			order = append(order, dl.Speaker)
		}
		grouped[dl.Speaker] = append(grouped[dl.Speaker], characters.Dialog{
			Page:      dl.Page,
			Text:      dl.Text,
			Emotion:   dl.Emotion,
			Intensity: dl.Intensity,
		})
	}
	if skipped > 0 {
		p.logger.Debug("skipped unattributed dialogs", "book_id", bookID, "count", skipped)
	}

	count := 0
	for _, speaker := range order {
		c := characters.Character{Name: speaker, Dialogs: grouped[speaker]}
		if err := mergeAndStoreCharacter(ctx, p.store, bookID, c); err != nil {
			return count, fmt.Errorf("speaker %q: %w", speaker, err)
		}
		count += len(grouped[speaker])
	}
	return count, nil
}
