package store

import (
	"context"
	"fmt"
)

// InsertLLMCall records one inference call.
func (s *Store) InsertLLMCall(ctx context.Context, rec *LLMCallRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_calls (id, book_id, chapter_id, prompt_key, engine, model,
             prompt_tokens, completion_tokens, duration_ms, success, error, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BookID, rec.ChapterID, rec.PromptKey, rec.Engine, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.DurationMS, success, rec.Error, timestamp(),
	)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// ListLLMCalls returns the recorded calls for a book, most recent first,
// capped at limit (0 means no cap).
func (s *Store) ListLLMCalls(ctx context.Context, bookID int64, limit int) ([]LLMCallRecord, error) {
	query := `SELECT id, book_id, chapter_id, prompt_key, engine, model,
                  prompt_tokens, completion_tokens, duration_ms, success, error, created_at
              FROM llm_calls WHERE book_id = ? ORDER BY created_at DESC`
	args := []any{bookID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list llm calls: %w", err)
	}
	defer rows.Close()

	var calls []LLMCallRecord
	for rows.Next() {
		var rec LLMCallRecord
		var success int
		if err := rows.Scan(&rec.ID, &rec.BookID, &rec.ChapterID, &rec.PromptKey, &rec.Engine,
			&rec.Model, &rec.PromptTokens, &rec.CompletionTokens, &rec.DurationMS,
			&success, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan llm call: %w", err)
		}
		rec.Success = success == 1
		calls = append(calls, rec)
	}
	return calls, rows.Err()
}

// CallStats summarizes recorded inference calls for a book.
type CallStats struct {
	Calls            int   `json:"calls"`
	Failures         int   `json:"failures"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	DurationMS       int64 `json:"duration_ms"`
}

// LLMCallStats aggregates call counts and token totals for a book.
func (s *Store) LLMCallStats(ctx context.Context, bookID int64) (*CallStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(prompt_tokens), 0),
                COALESCE(SUM(completion_tokens), 0),
                COALESCE(SUM(duration_ms), 0)
         FROM llm_calls WHERE book_id = ?`, bookID)

	var stats CallStats
	if err := row.Scan(&stats.Calls, &stats.Failures, &stats.PromptTokens,
		&stats.CompletionTokens, &stats.DurationMS); err != nil {
		return nil, fmt.Errorf("llm call stats: %w", err)
	}
	return &stats, nil
}
