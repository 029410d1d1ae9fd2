package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts/voices"
	"storyteller/internal/store"
)

// VoicePersister writes synthesized voice profiles onto character records.
// A full profile replaces any earlier hint placeholder.
type VoicePersister struct {
	store  *store.Store
	logger *slog.Logger
}

// NewVoicePersister returns the persister for the voices kind.
func NewVoicePersister(st *store.Store, logger *slog.Logger) *VoicePersister {
	return &VoicePersister{store: st, logger: ensureLogger(logger)}
}

// Kind implements analysis.Persister.
func (p *VoicePersister) Kind() analysis.Kind { return analysis.KindVoices }

// Persist implements analysis.Persister.
func (p *VoicePersister) Persist(ctx context.Context, bookID int64, res analysis.Result) (int, error) {
	r, ok := res.(voices.Result)
	if !ok {
		return 0, fmt.Errorf("voice persister got %s result", res.ResultKind())
	}

	count := 0
	for _, profile := range r.Profiles {
		rec, err := p.store.GetCharacterByName(ctx, bookID, profile.Character)
		if errors.Is(err, store.ErrNotFound) {
			rec = &store.CharacterRecord{
				BookID:      bookID,
				Name:        profile.Character,
				TraitsJSON:  "[]",
				DialogsJSON: "[]",
			}
		} else if err != nil {
			return count, fmt.Errorf("character %q: %w", profile.Character, err)
		}

		encoded, err := json.Marshal(profile.Voice)
		if err != nil {
			p.logger.Warn("skipping voice profile", "book_id", bookID, "name", profile.Character, "error", err)
			continue
		}
		rec.VoiceProfile = string(encoded)
		rec.SpeakerID = profile.Voice.SpeakerID
		if err := p.store.UpsertCharacter(ctx, rec); err != nil {
			return count, fmt.Errorf("character %q: %w", profile.Character, err)
		}
		count++
	}
	return count, nil
}
