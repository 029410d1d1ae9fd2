package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetCharacterByName returns one character record, or ErrNotFound.
func (s *Store) GetCharacterByName(ctx context.Context, bookID int64, name string) (*CharacterRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, book_id, name, traits, dialogs, voice_profile, speaker_id, updated_at
         FROM characters WHERE book_id = ? AND name = ?`, bookID, name)

	var c CharacterRecord
	err := row.Scan(&c.ID, &c.BookID, &c.Name, &c.TraitsJSON, &c.DialogsJSON,
		&c.VoiceProfile, &c.SpeakerID, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("character %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	return &c, nil
}

// UpsertCharacter inserts or replaces the record identified by
// (book_id, name). Callers merge against the loaded record first so stored
// data is never dropped.
func (s *Store) UpsertCharacter(ctx context.Context, c *CharacterRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO characters (book_id, name, traits, dialogs, voice_profile, speaker_id, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (book_id, name) DO UPDATE SET
             traits = excluded.traits,
             dialogs = excluded.dialogs,
             voice_profile = excluded.voice_profile,
             speaker_id = excluded.speaker_id,
             updated_at = excluded.updated_at`,
		c.BookID, c.Name, c.TraitsJSON, c.DialogsJSON, c.VoiceProfile, c.SpeakerID, timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert character %q: %w", c.Name, err)
	}
	return nil
}

// ListCharacters returns a book's characters sorted by name.
func (s *Store) ListCharacters(ctx context.Context, bookID int64) ([]CharacterRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, name, traits, dialogs, voice_profile, speaker_id, updated_at
         FROM characters WHERE book_id = ? ORDER BY name`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var chars []CharacterRecord
	for rows.Next() {
		var c CharacterRecord
		if err := rows.Scan(&c.ID, &c.BookID, &c.Name, &c.TraitsJSON, &c.DialogsJSON,
			&c.VoiceProfile, &c.SpeakerID, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}
