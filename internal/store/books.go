package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// CreateBook inserts a book and returns it with its assigned ID.
func (s *Store) CreateBook(ctx context.Context, title, author, sourcePath string) (*Book, error) {
	now := timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO books (title, author, source_path, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		title, author, sourcePath, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("book id: %w", err)
	}
	return &Book{ID: id, Title: title, Author: author, SourcePath: sourcePath, CreatedAt: now, UpdatedAt: now}, nil
}

// GetBook returns one book by ID.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT b.id, b.title, b.author, b.source_path, b.created_at, b.updated_at,
                (SELECT COUNT(1) FROM chapters c WHERE c.book_id = b.id)
         FROM books b WHERE b.id = ?`, id)

	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.SourcePath, &b.CreatedAt, &b.UpdatedAt, &b.Chapters)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}

// ListBooks returns all books in creation order.
func (s *Store) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.title, b.author, b.source_path, b.created_at, b.updated_at,
                (SELECT COUNT(1) FROM chapters c WHERE c.book_id = b.id)
         FROM books b ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.SourcePath, &b.CreatedAt, &b.UpdatedAt, &b.Chapters); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// DeleteBook removes a book and all dependent records.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateChapter inserts one chapter. Index is 0-based and unique per book.
func (s *Store) CreateChapter(ctx context.Context, bookID int64, index int, title, content string) (*Chapter, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters (book_id, chapter_index, title, content, char_count)
         VALUES (?, ?, ?, ?, ?)`,
		bookID, index, title, content, len(content),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("chapter id: %w", err)
	}
	return &Chapter{ID: id, BookID: bookID, Index: index, Title: title, Content: content, CharCount: len(content)}, nil
}

// GetChapter returns one chapter with content.
func (s *Store) GetChapter(ctx context.Context, bookID int64, index int) (*Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, book_id, chapter_index, title, content, char_count
         FROM chapters WHERE book_id = ? AND chapter_index = ?`, bookID, index)

	var c Chapter
	err := row.Scan(&c.ID, &c.BookID, &c.Index, &c.Title, &c.Content, &c.CharCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chapter %d/%d: %w", bookID, index, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return &c, nil
}

// ListChapters returns a book's chapters in reading order, without content.
func (s *Store) ListChapters(ctx context.Context, bookID int64) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, chapter_index, title, char_count
         FROM chapters WHERE book_id = ? ORDER BY chapter_index`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.BookID, &c.Index, &c.Title, &c.CharCount); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}
