package store

import (
	"context"
	"fmt"
)

// UpsertPlotPoint inserts or updates the plot point identified by
// (book_id, chapter_index, title). A non-empty description or significance
// replaces the stored value; empty fields leave it untouched.
func (s *Store) UpsertPlotPoint(ctx context.Context, p *PlotPointRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plot_points (book_id, chapter_index, title, description, significance)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (book_id, chapter_index, title) DO UPDATE SET
             description = CASE WHEN excluded.description != '' THEN excluded.description ELSE plot_points.description END,
             significance = CASE WHEN excluded.significance != '' THEN excluded.significance ELSE plot_points.significance END`,
		p.BookID, p.ChapterIndex, p.Title, p.Description, p.Significance,
	)
	if err != nil {
		return fmt.Errorf("upsert plot point %q: %w", p.Title, err)
	}
	return nil
}

// ListPlotPoints returns a book's plot points in story order.
func (s *Store) ListPlotPoints(ctx context.Context, bookID int64) ([]PlotPointRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, chapter_index, title, description, significance
         FROM plot_points WHERE book_id = ? ORDER BY chapter_index, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list plot points: %w", err)
	}
	defer rows.Close()

	var points []PlotPointRecord
	for rows.Next() {
		var p PlotPointRecord
		if err := rows.Scan(&p.ID, &p.BookID, &p.ChapterIndex, &p.Title, &p.Description, &p.Significance); err != nil {
			return nil, fmt.Errorf("scan plot point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// UpsertForeshadowing inserts or updates the link identified by
// (book_id, source_chapter, target_chapter, hint).
func (s *Store) UpsertForeshadowing(ctx context.Context, f *ForeshadowRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO foreshadowing (book_id, source_chapter, target_chapter, hint, payoff)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (book_id, source_chapter, target_chapter, hint) DO UPDATE SET
             payoff = CASE WHEN excluded.payoff != '' THEN excluded.payoff ELSE foreshadowing.payoff END`,
		f.BookID, f.SourceChapter, f.TargetChapter, f.Hint, f.Payoff,
	)
	if err != nil {
		return fmt.Errorf("upsert foreshadowing: %w", err)
	}
	return nil
}

// ListForeshadowing returns a book's foreshadowing links ordered by source
// chapter.
func (s *Store) ListForeshadowing(ctx context.Context, bookID int64) ([]ForeshadowRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, source_chapter, target_chapter, hint, payoff
         FROM foreshadowing WHERE book_id = ? ORDER BY source_chapter, target_chapter, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list foreshadowing: %w", err)
	}
	defer rows.Close()

	var links []ForeshadowRecord
	for rows.Next() {
		var f ForeshadowRecord
		if err := rows.Scan(&f.ID, &f.BookID, &f.SourceChapter, &f.TargetChapter, &f.Hint, &f.Payoff); err != nil {
			return nil, fmt.Errorf("scan foreshadowing: %w", err)
		}
		links = append(links, f)
	}
	return links, rows.Err()
}

// UpsertTheme inserts or updates the theme identified by (book_id, name).
func (s *Store) UpsertTheme(ctx context.Context, t *ThemeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO themes (book_id, name, description, chapters)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (book_id, name) DO UPDATE SET
             description = CASE WHEN excluded.description != '' THEN excluded.description ELSE themes.description END,
             chapters = excluded.chapters`,
		t.BookID, t.Name, t.Description, t.ChaptersJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert theme %q: %w", t.Name, err)
	}
	return nil
}

// ListThemes returns a book's themes sorted by name.
func (s *Store) ListThemes(ctx context.Context, bookID int64) ([]ThemeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, name, description, chapters
         FROM themes WHERE book_id = ? ORDER BY name`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var themes []ThemeRecord
	for rows.Next() {
		var t ThemeRecord
		if err := rows.Scan(&t.ID, &t.BookID, &t.Name, &t.Description, &t.ChaptersJSON); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}
