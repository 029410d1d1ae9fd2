package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts/characters"
	"storyteller/internal/store"
)

// CharacterPersister merges character findings into the characters table.
// It loads the stored record first and merges in Go, so data from earlier
// runs that the new partial lacks is never dropped.
type CharacterPersister struct {
	store  *store.Store
	logger *slog.Logger
}

// NewCharacterPersister returns the persister for the characters kind.
func NewCharacterPersister(st *store.Store, logger *slog.Logger) *CharacterPersister {
	return &CharacterPersister{store: st, logger: ensureLogger(logger)}
}

// Kind implements analysis.Persister.
func (p *CharacterPersister) Kind() analysis.Kind { return analysis.KindCharacters }

// Persist implements analysis.Persister.
func (p *CharacterPersister) Persist(ctx context.Context, bookID int64, res analysis.Result) (int, error) {
	r, ok := res.(characters.Result)
	if !ok {
		return 0, fmt.Errorf("character persister got %s result", res.ResultKind())
	}

	count := 0
	for _, c := range r.Found {
		if c.Name == "" {
			p.logger.Warn("skipping unnamed character", "book_id", bookID)
			continue
		}
		if err := mergeAndStoreCharacter(ctx, p.store, bookID, c); err != nil {
			return count, fmt.Errorf("character %q: %w", c.Name, err)
		}
		count++
	}
	return count, nil
}

// mergeAndStoreCharacter folds c into the stored record for (bookID, name)
// and writes it back.
func mergeAndStoreCharacter(ctx context.Context, st *store.Store, bookID int64, c characters.Character) error {
	merged := c
	rec, err := st.GetCharacterByName(ctx, bookID, c.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = &store.CharacterRecord{BookID: bookID, Name: c.Name}
	case err != nil:
		return err
	default:
		stored, decodeErr := decodeCharacter(rec)
		if decodeErr != nil {
			// Unreadable stored JSON; keep the row but rebuild from the
			// new data rather than failing the whole batch.
			stored = characters.Character{Name: c.Name}
		}
		characters.MergeCharacter(&stored, c)
		merged = stored
	}

	traits, err := json.Marshal(sliceOrEmpty(merged.Traits))
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}
	dialogs, err := json.Marshal(dialogsOrEmpty(merged.Dialogs))
	if err != nil {
		return fmt.Errorf("encode dialogs: %w", err)
	}

	rec.TraitsJSON = string(traits)
	rec.DialogsJSON = string(dialogs)
	if merged.Voice != "" {
		rec.VoiceProfile = encodeVoiceHint(merged.Voice, rec.VoiceProfile)
	}
	if merged.SpeakerID != 0 {
		rec.SpeakerID = merged.SpeakerID
	}
	return st.UpsertCharacter(ctx, rec)
}

// decodeCharacter rebuilds the in-memory character from a stored record.
func decodeCharacter(rec *store.CharacterRecord) (characters.Character, error) {
	c := characters.Character{Name: rec.Name, SpeakerID: rec.SpeakerID}
	if rec.TraitsJSON != "" {
		if err := json.Unmarshal([]byte(rec.TraitsJSON), &c.Traits); err != nil {
			return c, fmt.Errorf("decode traits: %w", err)
		}
	}
	if rec.DialogsJSON != "" {
		if err := json.Unmarshal([]byte(rec.DialogsJSON), &c.Dialogs); err != nil {
			return c, fmt.Errorf("decode dialogs: %w", err)
		}
	}
	c.Voice = decodeVoiceHint(rec.VoiceProfile)
	return c, nil
}

// The voice_profile column holds either a full profile (set by the voices
// persister) or a {"hint": ...} placeholder from the characters pass. A full
// profile is never downgraded to a hint.
func encodeVoiceHint(hint, existing string) string {
	if existing != "" && !isHintOnly(existing) {
		return existing
	}
	data, err := json.Marshal(map[string]string{"hint": hint})
	if err != nil {
		return existing
	}
	return string(data)
}

func decodeVoiceHint(profileJSON string) string {
	if profileJSON == "" {
		return ""
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(profileJSON), &probe); err != nil {
		return ""
	}
	raw, ok := probe["hint"]
	if !ok {
		return ""
	}
	var hint string
	if err := json.Unmarshal(raw, &hint); err != nil {
		return ""
	}
	return hint
}

func isHintOnly(profileJSON string) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(profileJSON), &probe); err != nil {
		return false
	}
	_, hasHint := probe["hint"]
	return hasHint && len(probe) == 1
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func dialogsOrEmpty(d []characters.Dialog) []characters.Dialog {
	if d == nil {
		return []characters.Dialog{}
	}
	return d
}
